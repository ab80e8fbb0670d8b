// Package action exposes the three session actions application code calls
// directly: get current session, sign in, sign out. Each one funnels through
// the core invoker and projects the result back onto net/http primitives.
package action

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/authbridge/authbridge/internal/core"
	httperrors "github.com/authbridge/authbridge/pkg/http/errors"
)

// ErrNoRequest is returned when a Source cannot produce an inbound request,
// e.g. FromContext on a context no middleware has seeded.
var ErrNoRequest = errors.New("action: no inbound request available")

// Session is the decoded session object. A nil *Session means the request is
// unauthenticated; that is not an error.
type Session struct {
	User    map[string]any `json:"user,omitempty"`
	Expires time.Time      `json:"expires,omitempty"`
}

// Source identifies where the inbound request comes from. The three variants
// mirror the call shapes applications use: an explicit request, a legacy
// writer/request pair, and a context seeded by Middleware. All of them
// resolve through the same normalization path.
type Source interface {
	httpRequest() (*http.Request, error)
}

type requestSource struct{ r *http.Request }

func (s requestSource) httpRequest() (*http.Request, error) {
	if s.r == nil {
		return nil, ErrNoRequest
	}
	return s.r, nil
}

// FromRequest sources the session from an explicit request.
func FromRequest(r *http.Request) Source { return requestSource{r: r} }

// FromPair sources the session from a legacy handler-style writer/request
// pair. The writer is accepted for signature compatibility; session reads
// never touch it.
func FromPair(w http.ResponseWriter, r *http.Request) Source { return requestSource{r: r} }

type contextSource struct{ ctx context.Context }

func (s contextSource) httpRequest() (*http.Request, error) {
	if r, ok := s.ctx.Value(requestKey{}).(*http.Request); ok {
		return r, nil
	}
	return nil, ErrNoRequest
}

// FromContext sources the session from the per-request context seeded by
// Middleware. This replaces ambient request lookup with explicit context
// plumbing.
func FromContext(ctx context.Context) Source { return contextSource{ctx: ctx} }

type requestKey struct{}
type sessionKey struct{}

// Actions bundles the invoker with the logger shared by all three actions.
type Actions struct {
	inv    *core.Invoker
	logger zerolog.Logger
}

// New creates the action surface over a bound invoker.
func New(inv *core.Invoker, logger zerolog.Logger) *Actions {
	return &Actions{inv: inv, logger: logger}
}

// Session fetches the current session via the core's session endpoint.
// Returns (nil, nil) when unauthenticated.
func (a *Actions) Session(ctx context.Context, src Source) (*Session, error) {
	r, err := src.httpRequest()
	if err != nil {
		return nil, err
	}

	nreq, err := a.inv.EndpointRequest(r, http.MethodGet, core.PathSession, nil)
	if err != nil {
		return nil, err
	}

	res, err := a.inv.Invoke(ctx, nreq, core.Options{})
	if err != nil {
		return nil, err
	}

	return decodeSession(res.Body)
}

// SessionHandler is a route handler that receives the precomputed session
// (nil when unauthenticated) alongside the usual pair.
type SessionHandler func(w http.ResponseWriter, r *http.Request, session *Session)

// Handle wraps fn in a handler that computes the session once, consults the
// configured Authorized hook, exposes the session via SessionFromContext, and
// delegates. This is the composition point for session-aware routes; fn never
// re-derives the session itself.
func (a *Actions) Handle(fn SessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := a.Session(r.Context(), FromRequest(r))
		if err != nil {
			a.logger.Error().Err(err).Msg("session lookup failed")
			httperrors.RespondInternalError(w, "session lookup failed")
			return
		}

		if hook := a.inv.Config().Callbacks.Authorized; hook != nil {
			var raw json.RawMessage
			if session != nil {
				raw, err = json.Marshal(session)
				if err != nil {
					httperrors.RespondInternalError(w, "session lookup failed")
					return
				}
			}
			ok, err := hook(r.Context(), raw, r)
			if err != nil {
				a.logger.Error().Err(err).Msg("authorized hook failed")
				httperrors.RespondInternalError(w, "authorization check failed")
				return
			}
			if !ok {
				httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, "not authorized")
				return
			}
		}

		fn(w, r.WithContext(a.seed(r, session)), session)
	})
}

// Middleware is the chainable form of Handle: it seeds the request context
// with the session and the request itself (for FromContext callers), then
// delegates.
func (a *Actions) Middleware(next http.Handler) http.Handler {
	return a.Handle(func(w http.ResponseWriter, r *http.Request, _ *Session) {
		next.ServeHTTP(w, r)
	})
}

// SessionFromContext returns the session seeded by Handle/Middleware, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

func (a *Actions) seed(r *http.Request, session *Session) context.Context {
	ctx := context.WithValue(r.Context(), requestKey{}, r)
	return context.WithValue(ctx, sessionKey{}, session)
}

func decodeSession(body []byte) (*Session, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return nil, nil
	}

	var raw struct {
		User    map[string]any `json:"user"`
		Expires string         `json:"expires"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode session body: %w", err)
	}
	if raw.User == nil && raw.Expires == "" {
		return nil, nil
	}

	session := &Session{User: raw.User}
	if raw.Expires != "" {
		t, err := time.Parse(time.RFC3339, raw.Expires)
		if err != nil {
			return nil, fmt.Errorf("decode session expiry: %w", err)
		}
		session.Expires = t
	}
	return session, nil
}

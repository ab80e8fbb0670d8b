// Package devcore is an in-process auth core for development and tests.
//
// It implements the full endpoint surface the bridge expects (session, csrf,
// signin, signout, callback) over a signed JWT session cookie, with no
// persistence. Providers without configured credentials short-circuit the
// external hop: sign-in redirects straight to the simulated callback so the
// whole flow works offline. It is not a session store and must not be
// deployed as one.
package devcore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/authbridge/authbridge/internal/config"
	"github.com/authbridge/authbridge/internal/core"
	"github.com/authbridge/authbridge/internal/origin"
)

// Cookie names issued by the development core.
const (
	SessionCookie  = "authbridge.session-token"
	CSRFCookie     = "authbridge.csrf-token"
	CallbackCookie = "authbridge.callback-url"
)

// Core is the development auth core.
type Core struct {
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a development core.
func New(logger zerolog.Logger) *Core {
	return &Core{logger: logger, now: time.Now}
}

// Handle dispatches on the sub-path under cfg.BasePath.
func (c *Core) Handle(ctx context.Context, req *origin.Request, cfg *config.Auth, opts core.Options) (*core.Result, error) {
	sub := strings.TrimPrefix(req.URL.Path, strings.TrimSuffix(cfg.BasePath, "/"))

	switch {
	case req.Method == http.MethodGet && sub == core.PathSession:
		return c.session(req, cfg)
	case req.Method == http.MethodGet && sub == core.PathCSRF:
		return c.csrf(req)
	case req.Method == http.MethodPost && strings.HasPrefix(sub, core.PathSignIn):
		return c.signIn(req, cfg, opts, strings.TrimPrefix(strings.TrimPrefix(sub, core.PathSignIn), "/"))
	case req.Method == http.MethodPost && sub == core.PathSignOut:
		return c.signOut(req, cfg, opts)
	case req.Method == http.MethodGet && strings.HasPrefix(sub, "/callback/"):
		return c.callback(req, cfg, strings.TrimPrefix(sub, "/callback/"))
	default:
		return &core.Result{
			Status: http.StatusNotFound,
			Header: jsonHeader(),
			Body:   []byte(`{"error":"unknown auth endpoint"}`),
		}, nil
	}
}

func (c *Core) session(req *origin.Request, cfg *config.Auth) (*core.Result, error) {
	cookie := req.Cookie(SessionCookie)
	if cookie == nil {
		return nullSession(nil), nil
	}

	claims, err := parseSessionToken([]byte(cfg.Secret), cookie.Value)
	if err != nil {
		// Stale or forged cookie: unauthenticated, and drop the cookie.
		c.logger.Debug().Err(err).Msg("discarding unusable session cookie")
		return nullSession([]*http.Cookie{expired(SessionCookie)}), nil
	}

	body, err := json.Marshal(map[string]any{
		"user":    claims.User,
		"expires": claims.ExpiresAt.Time.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}

	return &core.Result{Status: http.StatusOK, Header: jsonHeader(), Body: body}, nil
}

func (c *Core) csrf(req *origin.Request) (*core.Result, error) {
	token := uuid.NewString()

	body, err := json.Marshal(map[string]string{"csrfToken": token})
	if err != nil {
		return nil, fmt.Errorf("encode csrf token: %w", err)
	}

	return &core.Result{
		Status:  http.StatusOK,
		Header:  jsonHeader(),
		Body:    body,
		Cookies: []*http.Cookie{secureCookie(CSRFCookie, token, 0)},
	}, nil
}

func (c *Core) signIn(req *origin.Request, cfg *config.Auth, opts core.Options, providerID string) (*core.Result, error) {
	if err := c.checkCSRF(req, opts); err != nil {
		return nil, err
	}

	target := resolveCallback(req, req.Form().Get("callbackUrl"))

	if providerID == "" {
		// No provider chosen: send the browser to the sign-in page.
		u := *req.URL
		u.Path = joinBase(cfg.BasePath, core.PathSignIn)
		return &core.Result{Status: http.StatusFound, Redirect: u.String()}, nil
	}

	p, ok := cfg.Provider(providerID)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", providerID)
	}

	state := uuid.NewString()
	callbackURL := originURL(req) + joinBase(cfg.BasePath, "/callback/"+p.ID)

	var redirect string
	if p.ClientID != "" {
		redirect = p.OAuth2(callbackURL).AuthCodeURL(state)
	} else {
		// No credentials: simulate the provider hop locally.
		redirect = callbackURL + "?code=dev&state=" + state
	}

	cookies := []*http.Cookie{
		secureCookie(CallbackCookie, url.QueryEscape(target), 0),
		secureCookie(CSRFCookie, uuid.NewString(), 0),
	}

	return &core.Result{Status: http.StatusFound, Redirect: redirect, Cookies: cookies}, nil
}

func (c *Core) callback(req *origin.Request, cfg *config.Auth, providerID string) (*core.Result, error) {
	p, ok := cfg.Provider(providerID)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", providerID)
	}

	user := map[string]any{
		"name":     "Developer",
		"provider": p.ID,
	}

	token, _, err := mintSessionToken([]byte(cfg.Secret), user, c.now())
	if err != nil {
		return nil, fmt.Errorf("mint session token: %w", err)
	}

	target := originURL(req) + "/"
	if cb := req.Cookie(CallbackCookie); cb != nil {
		if v, err := url.QueryUnescape(cb.Value); err == nil && v != "" {
			target = v
		}
	}

	cookies := []*http.Cookie{
		secureCookie(SessionCookie, token, sessionTTL),
		expired(CallbackCookie),
	}

	c.logger.Info().Str("provider", p.ID).Msg("development session established")
	return &core.Result{Status: http.StatusFound, Redirect: target, Cookies: cookies}, nil
}

func (c *Core) signOut(req *origin.Request, cfg *config.Auth, opts core.Options) (*core.Result, error) {
	if err := c.checkCSRF(req, opts); err != nil {
		return nil, err
	}

	target := resolveCallback(req, req.Form().Get("callbackUrl"))

	return &core.Result{
		Status:   http.StatusFound,
		Redirect: target,
		Cookies:  []*http.Cookie{expired(SessionCookie)},
	}, nil
}

func (c *Core) checkCSRF(req *origin.Request, opts core.Options) error {
	if opts.SkipCSRFCheck {
		return nil
	}
	cookie := req.Cookie(CSRFCookie)
	submitted := req.Form().Get("csrfToken")
	if cookie == nil || submitted == "" || cookie.Value != submitted {
		return fmt.Errorf("csrf token mismatch")
	}
	return nil
}

// resolveCallback makes the post-action destination absolute against the
// request origin. Defaults to the site root.
func resolveCallback(req *origin.Request, target string) string {
	if target == "" {
		target = "/"
	}
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return originURL(req) + "/" + strings.TrimPrefix(target, "/")
	}
	return target
}

func originURL(req *origin.Request) string {
	return req.URL.Scheme + "://" + req.URL.Host
}

func joinBase(base, sub string) string {
	return strings.TrimSuffix(base, "/") + sub
}

func nullSession(cookies []*http.Cookie) *core.Result {
	return &core.Result{
		Status:  http.StatusOK,
		Header:  jsonHeader(),
		Body:    []byte("null"),
		Cookies: cookies,
	}
}

func secureCookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		c.MaxAge = int(ttl.Seconds())
	}
	return c
}

func expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	}
}

func jsonHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return h
}

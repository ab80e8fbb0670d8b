// Package handler maps the auth protocol's two HTTP verbs onto net/http
// route-handler signatures. It holds no routing logic of its own; the core
// branches on the sub-path.
package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/authbridge/authbridge/internal/core"
	"github.com/authbridge/authbridge/internal/origin"
	httperrors "github.com/authbridge/authbridge/pkg/http/errors"
)

// Handlers adapts the invoker to framework route handlers.
type Handlers struct {
	inv    *core.Invoker
	logger zerolog.Logger
}

// New creates handlers over a bound invoker.
func New(inv *core.Invoker, logger zerolog.Logger) *Handlers {
	return &Handlers{inv: inv, logger: logger}
}

// GET handles GET requests under the auth base path.
func (h *Handlers) GET(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r)
}

// POST handles POST requests under the auth base path.
func (h *Handlers) POST(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r)
}

func (h *Handlers) serve(w http.ResponseWriter, r *http.Request) {
	res, err := h.inv.InvokeHTTP(r.Context(), r, core.Options{})
	if err != nil {
		if errors.Is(err, origin.ErrNoOrigin) {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeOriginUnresolved, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("auth core invocation failed")
		httperrors.RespondInternalError(w, err.Error())
		return
	}
	WriteResult(w, res)
}

// WriteResult projects a core result onto the response writer verbatim:
// headers, then cookies in instruction order (later same-name instructions
// overwrite earlier ones by write order), then redirect or body.
func WriteResult(w http.ResponseWriter, res *core.Result) {
	for key, values := range res.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}

	for _, c := range res.Cookies {
		http.SetCookie(w, c)
	}

	if res.Redirect != "" {
		status := res.Status
		if status < 300 || status > 399 {
			status = http.StatusFound
		}
		w.Header().Set("Location", res.Redirect)
		w.WriteHeader(status)
		return
	}

	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(res.Body) > 0 {
		_, _ = w.Write(res.Body)
	}
}

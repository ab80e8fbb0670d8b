package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/authbridge/authbridge/internal/action"
	"github.com/authbridge/authbridge/internal/config"
	"github.com/authbridge/authbridge/internal/csrf"
	"github.com/authbridge/authbridge/internal/handler"
	"github.com/authbridge/authbridge/internal/logging"
	httperrors "github.com/authbridge/authbridge/pkg/http/errors"
)

// NewHTTPServer wires the auth endpoints plus base routes (health, metrics).
//
// The auth prefix takes GET and POST only; sub-path routing below it is the
// core's job. Everything mounted under the session middleware sees the
// current session via action.SessionFromContext.
func NewHTTPServer(cfg *config.App, authCfg *config.Auth, logger zerolog.Logger, h *handler.Handlers, acts *action.Actions, issuer *csrf.Issuer) *http.Server {
	r := chi.NewRouter()
	r.Use(logging.Middleware(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route(authCfg.BasePath, func(r chi.Router) {
		r.Get("/*", h.GET)
		r.Post("/*", h.POST)
	})

	// Server-invoked actions, CSRF-protected via the hidden-field flow.
	r.Post("/actions/signin/{provider}", func(w http.ResponseWriter, r *http.Request) {
		act := acts.SignIn(chi.URLParam(r, "provider"), action.Params{
			RedirectTo: r.FormValue("redirectTo"),
		})
		if _, err := act.Execute(w, r); err != nil {
			logger.Error().Err(err).Msg("sign-in action failed")
			httperrors.RespondBadRequest(w, httperrors.ErrCodeCoreFailure, err.Error())
		}
	})

	r.Post("/actions/signout", func(w http.ResponseWriter, r *http.Request) {
		act := acts.SignOut(action.Params{RedirectTo: r.FormValue("redirectTo")})
		if _, err := act.Execute(w, r); err != nil {
			logger.Error().Err(err).Msg("sign-out action failed")
			httperrors.RespondBadRequest(w, httperrors.ErrCodeCoreFailure, err.Error())
		}
	})

	r.Get("/actions/csrf", func(w http.ResponseWriter, r *http.Request) {
		field, err := issuer.FieldTo(r.Context(), w, r)
		if err != nil {
			logger.Error().Err(err).Msg("csrf issuance failed")
			httperrors.RespondInternalError(w, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"name": field.Name, "value": field.Value})
	})

	// Session-aware application routes.
	r.Group(func(r chi.Router) {
		r.Use(acts.Middleware)

		r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
			session := action.SessionFromContext(r.Context())
			if session == nil {
				httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "no active session")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(session)
		})
	})

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}
}

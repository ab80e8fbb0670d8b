package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// Environment variable names honored by ResolveEnv. The AUTHBRIDGE_ names
// are the pre-1.0 spellings and are kept working, with a deprecation warning,
// so existing deployments do not break on upgrade.
const (
	EnvSecret       = "AUTH_SECRET"
	EnvURL          = "AUTH_URL"
	EnvLegacySecret = "AUTHBRIDGE_SECRET"
	EnvLegacyURL    = "AUTHBRIDGE_URL"

	envProviderPrefix = "AUTH_"
)

// DefaultBasePath is the route prefix all auth endpoints live under when the
// caller does not choose one.
const DefaultBasePath = "/auth"

// ErrMissingSecret is returned by Finalize when no secret could be resolved
// in production mode. Serving requests with an unset secret would make every
// issued session forgeable, so startup must abort instead.
var ErrMissingSecret = errors.New("config: AUTH_SECRET is required in production")

// LookupFunc reads one environment variable, os.LookupEnv-shaped.
// Tests substitute a map-backed lookup.
type LookupFunc func(key string) (string, bool)

// Provider describes one external identity provider.
//
// ClientID and ClientSecret may be left empty and resolved from the
// environment by ResolveEnv using the AUTH_{PROVIDER}_ID / AUTH_{PROVIDER}_SECRET
// convention, where {PROVIDER} is the uppercased ID with every
// non-alphanumeric byte replaced by an underscore.
type Provider struct {
	ID           string
	Name         string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// OAuth2 builds the oauth2 client configuration for this provider.
// Endpoints for the bundled providers are mapped by ID; anything else gets a
// zero Endpoint and is expected to be driven by the auth core directly.
func (p Provider) OAuth2(redirectURL string) *oauth2.Config {
	var endpoint oauth2.Endpoint
	switch p.ID {
	case "github":
		endpoint = github.Endpoint
	case "google":
		endpoint = google.Endpoint
	}
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       p.Scopes,
		Endpoint:     endpoint,
	}
}

// Callbacks are application hooks consulted by the core and by the session
// middleware.
type Callbacks struct {
	// Authorized decides whether a request with the given session (nil when
	// unauthenticated) may proceed. A nil hook allows everything.
	Authorized func(ctx context.Context, session json.RawMessage, r *http.Request) (bool, error)
}

// Auth is the shared auth configuration handed to the core on every request.
//
// It is mutated exactly once, by ResolveEnv/Finalize during startup, and is
// read-only afterwards; concurrent readers need no locking.
type Auth struct {
	// Secret signs and verifies everything the core issues.
	Secret string

	// URL is the canonical base URL of the deployment
	// (e.g. https://app.example.com). When set, its scheme and host override
	// anything derived from inbound request headers.
	URL string

	// BasePath is the route prefix the auth endpoints are mounted under.
	BasePath string

	Providers []Provider
	Callbacks Callbacks

	// Debug turns on verbose core logging in development.
	Debug bool

	canonical *url.URL
}

// Canonical returns the parsed canonical URL, or nil when none is configured.
// Only valid after Finalize.
func (c *Auth) Canonical() *url.URL {
	return c.canonical
}

// Provider returns the descriptor for the given id, or false.
func (c *Auth) Provider(id string) (Provider, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// ResolveEnv fills gaps in cfg from the process environment. Explicitly set
// fields are never overwritten. Pass nil lookup to read the real environment.
//
// Resolution order per field: explicit value, primary variable, legacy
// variable. Provider credentials resolve independently per descriptor.
func ResolveEnv(cfg *Auth, lookup LookupFunc, logger zerolog.Logger) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	cfg.Secret = resolveAliased(cfg.Secret, EnvSecret, EnvLegacySecret, lookup, logger)
	cfg.URL = resolveAliased(cfg.URL, EnvURL, EnvLegacyURL, lookup, logger)

	if cfg.BasePath == "" {
		cfg.BasePath = DefaultBasePath
	}

	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		token := providerEnvToken(p.ID)
		if p.ClientID == "" {
			if v, ok := lookup(envProviderPrefix + token + "_ID"); ok {
				p.ClientID = v
			}
		}
		if p.ClientSecret == "" {
			if v, ok := lookup(envProviderPrefix + token + "_SECRET"); ok {
				p.ClientSecret = v
			}
		}
	}
}

// Finalize validates cfg and applies last-resort defaults. Must run once,
// after ResolveEnv and before the first request.
//
// A missing secret is fatal in production. In any other mode an ephemeral
// secret is generated so local development works out of the box; sessions
// signed with it do not survive a restart.
func Finalize(cfg *Auth, app *App, logger zerolog.Logger) error {
	for _, p := range cfg.Providers {
		if p.ID == "" {
			return fmt.Errorf("config: provider descriptor with empty id (name %q)", p.Name)
		}
		if p.ID != strings.ToLower(p.ID) {
			return fmt.Errorf("config: provider id %q must be lowercase", p.ID)
		}
	}

	if cfg.Secret == "" {
		if app.IsProduction() {
			return ErrMissingSecret
		}
		cfg.Secret = uuid.NewString() + uuid.NewString()
		logger.Warn().Msg("AUTH_SECRET not set; generated an ephemeral development secret")
	}

	if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil {
			return fmt.Errorf("config: parse %s: %w", EnvURL, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: %s must be absolute, got %q", EnvURL, cfg.URL)
		}
		cfg.canonical = u
	}

	return nil
}

func resolveAliased(current, primary, legacy string, lookup LookupFunc, logger zerolog.Logger) string {
	if current != "" {
		return current
	}
	if v, ok := lookup(primary); ok && v != "" {
		return v
	}
	if v, ok := lookup(legacy); ok && v != "" {
		logger.Warn().
			Str("deprecated", legacy).
			Str("replacement", primary).
			Msg("legacy environment variable is deprecated")
		return v
	}
	return ""
}

// providerEnvToken maps a provider id to its environment-variable token:
// uppercase, with non-alphanumeric bytes replaced by underscores
// ("azure-ad" -> "AZURE_AD").
func providerEnvToken(id string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(id) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

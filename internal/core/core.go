// Package core defines the single boundary between the bridge and the auth
// core: the engine implementing provider protocols, session issuance and
// CSRF validation. Everything else in this module composes around Invoker.
package core

import (
	"context"
	"net/http"

	"github.com/authbridge/authbridge/internal/config"
	"github.com/authbridge/authbridge/internal/origin"
)

// Options tune a single core invocation.
type Options struct {
	// SkipCSRFCheck disables the double-submit token comparison. Only the
	// server-initiated sign-in/sign-out actions set it: they run with
	// server-side trust and would otherwise fail the check their own
	// redirect-following never satisfies. Never set for inbound traffic.
	SkipCSRFCheck bool

	// Raw asks the core for the undecorated result so the caller can inspect
	// cookies and the redirect target separately instead of receiving one
	// serialized response.
	Raw bool
}

// Result is the uniform description of a core invocation's outcome: at most
// one of a response body or a redirect target, plus zero or more cookie
// instructions to apply in order.
type Result struct {
	Status   int
	Header   http.Header
	Body     []byte
	Cookies  []*http.Cookie
	Redirect string
}

// Core is the pluggable auth engine. Implementations branch on the request
// path under cfg.BasePath to decide which auth operation is being requested.
type Core interface {
	Handle(ctx context.Context, req *origin.Request, cfg *config.Auth, opts Options) (*Result, error)
}

// Invoker forwards normalized requests plus the merged config to the core.
// Core errors (unknown provider, verification failure, upstream errors)
// propagate unchanged; this layer does not reclassify them.
type Invoker struct {
	core Core
	cfg  *config.Auth
}

// NewInvoker binds a core to the resolved shared configuration.
func NewInvoker(core Core, cfg *config.Auth) *Invoker {
	return &Invoker{core: core, cfg: cfg}
}

// Config exposes the shared, read-only auth configuration.
func (inv *Invoker) Config() *config.Auth {
	return inv.cfg
}

// Invoke runs one core call.
func (inv *Invoker) Invoke(ctx context.Context, req *origin.Request, opts Options) (*Result, error) {
	return inv.core.Handle(ctx, req, inv.cfg, opts)
}

// InvokeHTTP normalizes an inbound framework request and invokes the core
// against it. All request-origin trust decisions happen in origin.Normalize.
func (inv *Invoker) InvokeHTTP(ctx context.Context, r *http.Request, opts Options) (*Result, error) {
	nreq, err := origin.Normalize(r, inv.cfg.Canonical())
	if err != nil {
		return nil, err
	}
	return inv.Invoke(ctx, nreq, opts)
}

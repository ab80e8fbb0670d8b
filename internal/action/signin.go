package action

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/authbridge/authbridge/internal/core"
)

// Params configure a sign-in or sign-out action.
type Params struct {
	// RedirectTo is the post-action destination. Empty falls back to the
	// referring page, then the site root.
	RedirectTo string

	// NoRedirect suppresses the server-side redirect; Execute then only
	// returns the resolved destination so the caller decides what to do.
	NoRedirect bool
}

// SignInAction is a configured, not-yet-executed sign-in. Configuration and
// execution are split because the trusted context the action runs under
// (a request handler holding the response writer) is not where it is usually
// configured.
type SignInAction struct {
	actions  *Actions
	provider string
	params   Params
}

// SignIn configures a sign-in action for the given provider. An empty
// provider id targets the core's generic sign-in endpoint.
func (a *Actions) SignIn(provider string, params Params) *SignInAction {
	return &SignInAction{actions: a, provider: provider, params: params}
}

// Execute runs the sign-in against the core and applies the outcome to w:
// every cookie instruction in result order, then, unless NoRedirect, a 302 to
// the resolved target. The target is returned either way.
//
// Sign-in rotates tokens in the core; re-executing is not a no-op.
func (act *SignInAction) Execute(w http.ResponseWriter, r *http.Request) (string, error) {
	subpath := core.PathSignIn
	if act.provider != "" {
		subpath += "/" + act.provider
	}
	return act.actions.execute(w, r, subpath, act.params)
}

// SignOutAction is a configured, not-yet-executed sign-out.
type SignOutAction struct {
	actions *Actions
	params  Params
}

// SignOut configures a sign-out action. Sign-out carries no provider.
func (a *Actions) SignOut(params Params) *SignOutAction {
	return &SignOutAction{actions: a, params: params}
}

// Execute runs the sign-out; cookie and redirect semantics match
// SignInAction.Execute. The established session is invalidated, so
// re-execution is not a no-op.
func (act *SignOutAction) Execute(w http.ResponseWriter, r *http.Request) (string, error) {
	return act.actions.execute(w, r, core.PathSignOut, act.params)
}

// execute is the shared write path of both actions: one POST to the core with
// server-side trust (SkipCSRFCheck, Raw), cookies relayed in order, redirect
// resolved and optionally performed.
func (a *Actions) execute(w http.ResponseWriter, r *http.Request, subpath string, params Params) (string, error) {
	callback := params.RedirectTo
	if callback == "" {
		callback = r.Header.Get("Referer")
	}
	if callback == "" {
		callback = "/"
	}

	form := url.Values{"callbackUrl": {callback}}
	nreq, err := a.inv.EndpointRequest(r, http.MethodPost, subpath, form)
	if err != nil {
		return "", err
	}

	res, err := a.inv.Invoke(r.Context(), nreq, core.Options{SkipCSRFCheck: true, Raw: true})
	if err != nil {
		return "", err
	}

	for _, c := range res.Cookies {
		http.SetCookie(w, c)
	}

	target := res.Redirect
	if target == "" {
		target = callback
	}
	target, err = absoluteAgainst(nreq.URL, target)
	if err != nil {
		return "", err
	}

	if !params.NoRedirect {
		http.Redirect(w, r, target, http.StatusFound)
	}
	return target, nil
}

// absoluteAgainst resolves a possibly-relative target against the normalized
// request origin.
func absoluteAgainst(base *url.URL, target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("resolve redirect target: %w", err)
	}
	return base.ResolveReference(u).String(), nil
}

package core

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/authbridge/authbridge/internal/origin"
)

// Well-known sub-paths under the configured base path. Routing between them
// is the core's job; the bridge only needs their names to address internal
// calls.
const (
	PathSession = "/session"
	PathCSRF    = "/csrf"
	PathSignIn  = "/signin"
	PathSignOut = "/signout"
)

// EndpointRequest builds a normalized request addressed at one of the core's
// well-known endpoints, carrying r's headers (and therefore its cookies) so
// the core sees the caller's session context. A non-nil form becomes an
// urlencoded body.
func (inv *Invoker) EndpointRequest(r *http.Request, method, subpath string, form url.Values) (*origin.Request, error) {
	nreq, err := origin.Normalize(r, inv.cfg.Canonical())
	if err != nil {
		return nil, err
	}

	u := *nreq.URL
	u.Path = joinPath(inv.cfg.BasePath, subpath)
	u.RawQuery = ""

	nreq.Method = method
	nreq.URL = &u
	nreq.Body = nil
	if form != nil {
		nreq.Body = []byte(form.Encode())
		nreq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return nreq, nil
}

func joinPath(base, sub string) string {
	return strings.TrimSuffix(base, "/") + sub
}

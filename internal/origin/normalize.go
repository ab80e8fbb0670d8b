// Package origin reconstructs an absolute request URL from inbound requests
// whose headers may omit scheme or host, which is common behind reverse
// proxies and on edge runtimes.
package origin

import (
	"errors"
	"io"
	"net/http"
	"net/url"
)

// ErrNoOrigin means neither the configured canonical URL nor the request
// headers yielded a host. Guessing (e.g. localhost) would misroute cookies and
// redirects in production, so normalization fails instead.
var ErrNoOrigin = errors.New("origin: request host unresolvable; set AUTH_URL or forward the Host header")

// Request is a protocol-agnostic view of an inbound HTTP request.
// URL always carries a concrete scheme and host.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// Cookie returns the named cookie carried in the request headers, or nil.
func (r *Request) Cookie(name string) *http.Cookie {
	shim := http.Request{Header: r.Header}
	c, err := shim.Cookie(name)
	if err != nil {
		return nil
	}
	return c
}

// Form parses the body as application/x-www-form-urlencoded.
func (r *Request) Form() url.Values {
	v, err := url.ParseQuery(string(r.Body))
	if err != nil {
		return url.Values{}
	}
	return v
}

// Normalize converts r into a Request with an absolute URL.
//
// The canonical URL, when configured, is operator-declared and wins
// unconditionally; client-supplied forwarding headers are not consulted for
// scheme or host in that case. Without one, the host comes from
// X-Forwarded-Host and then the request's own Host, and the scheme from
// X-Forwarded-Proto and then the connection's TLS state, defaulting to
// "https" when nothing proves otherwise.
func Normalize(r *http.Request, canonical *url.URL) (*Request, error) {
	var scheme, host string
	if canonical != nil {
		scheme = canonical.Scheme
		host = canonical.Host
	}

	if host == "" {
		if v := r.Header.Get("X-Forwarded-Host"); v != "" {
			host = v
		} else {
			host = r.Host
		}
	}
	if host == "" {
		return nil, ErrNoOrigin
	}

	if scheme == "" {
		switch {
		case r.Header.Get("X-Forwarded-Proto") != "":
			scheme = r.Header.Get("X-Forwarded-Proto")
		case r.TLS != nil:
			scheme = "https"
		default:
			scheme = "https"
		}
	}

	var body []byte
	if r.Body != nil {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		body = b
	}

	u := &url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	}

	return &Request{
		Method: r.Method,
		URL:    u,
		Header: r.Header.Clone(),
		Body:   body,
	}, nil
}

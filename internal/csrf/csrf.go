// Package csrf issues single-use CSRF tokens as hidden-field descriptors so
// plain HTML forms can drive sign-in/sign-out without script support.
package csrf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/authbridge/authbridge/internal/core"
)

// ErrTokenMissing means the core's CSRF endpoint answered without a token.
// The endpoint is expected to always mint one, so this signals a broken core
// contract, not a user-facing auth failure.
var ErrTokenMissing = errors.New("csrf: core returned no token")

// HiddenField is an opaque name/value pair to embed in an HTML form.
type HiddenField struct {
	Name  string
	Value string
}

// Issuer mints CSRF tokens through the core's dedicated endpoint.
// The issuance call itself is deliberately sent without SkipCSRFCheck:
// minting must stay reachable without a prior token.
type Issuer struct {
	inv *core.Invoker
}

// New creates an issuer over a bound invoker.
func New(inv *core.Invoker) *Issuer {
	return &Issuer{inv: inv}
}

// FieldTo is Field plus relaying the endpoint's cookie instructions to w, so
// the double-submit cookie reaches the browser alongside the rendered field.
func (i *Issuer) FieldTo(ctx context.Context, w http.ResponseWriter, r *http.Request) (HiddenField, error) {
	field, cookies, err := i.issue(ctx, r)
	if err != nil {
		return HiddenField{}, err
	}
	for _, c := range cookies {
		http.SetCookie(w, c)
	}
	return field, nil
}

// Field fetches a token in the context of the inbound request's headers and
// wraps it as a hidden form field.
func (i *Issuer) Field(ctx context.Context, r *http.Request) (HiddenField, error) {
	field, _, err := i.issue(ctx, r)
	return field, err
}

func (i *Issuer) issue(ctx context.Context, r *http.Request) (HiddenField, []*http.Cookie, error) {
	nreq, err := i.inv.EndpointRequest(r, http.MethodGet, core.PathCSRF, nil)
	if err != nil {
		return HiddenField{}, nil, err
	}

	res, err := i.inv.Invoke(ctx, nreq, core.Options{})
	if err != nil {
		return HiddenField{}, nil, err
	}

	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.Unmarshal(res.Body, &body); err != nil {
		return HiddenField{}, nil, fmt.Errorf("decode csrf response: %w", err)
	}
	if body.CSRFToken == "" {
		return HiddenField{}, nil, fmt.Errorf("csrf token could not be found: %w", ErrTokenMissing)
	}

	return HiddenField{Name: "csrfToken", Value: body.CSRFToken}, res.Cookies, nil
}

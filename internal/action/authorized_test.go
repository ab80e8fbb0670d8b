package action

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_AuthorizedHookDeniesWith403(t *testing.T) {
	acts := newActions(t, &fakeCore{res: sessionBody()}, "https://app.example.com")
	acts.inv.Config().Callbacks.Authorized = func(ctx context.Context, session json.RawMessage, r *http.Request) (bool, error) {
		return false, nil
	}

	called := false
	h := acts.Handle(func(w http.ResponseWriter, r *http.Request, _ *Session) { called = true })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "https://app.example.com/admin", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
}

func TestHandle_AuthorizedHookSeesSessionJSON(t *testing.T) {
	acts := newActions(t, &fakeCore{res: sessionBody()}, "https://app.example.com")

	var seen json.RawMessage
	acts.inv.Config().Callbacks.Authorized = func(ctx context.Context, session json.RawMessage, r *http.Request) (bool, error) {
		seen = session
		return true, nil
	}

	h := acts.Handle(func(w http.ResponseWriter, r *http.Request, _ *Session) {})
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "https://app.example.com/admin", nil))

	require.NotNil(t, seen)
	var decoded Session
	require.NoError(t, json.Unmarshal(seen, &decoded))
	assert.Equal(t, "Ada", decoded.User["name"])
}

func TestHandle_AuthorizedHookGetsNilForAnonymous(t *testing.T) {
	acts := newActions(t, &fakeCore{}, "https://app.example.com")

	var seen json.RawMessage = json.RawMessage("sentinel")
	acts.inv.Config().Callbacks.Authorized = func(ctx context.Context, session json.RawMessage, r *http.Request) (bool, error) {
		seen = session
		return true, nil
	}

	h := acts.Handle(func(w http.ResponseWriter, r *http.Request, _ *Session) {})
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "https://app.example.com/page", nil))

	assert.Nil(t, seen)
}

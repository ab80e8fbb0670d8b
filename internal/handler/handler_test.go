package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authbridge/authbridge/internal/config"
	"github.com/authbridge/authbridge/internal/core"
	"github.com/authbridge/authbridge/internal/origin"
)

type fakeCore struct {
	req  *origin.Request
	opts core.Options
	res  *core.Result
	err  error
}

func (f *fakeCore) Handle(ctx context.Context, req *origin.Request, cfg *config.Auth, opts core.Options) (*core.Result, error) {
	f.req = req
	f.opts = opts
	return f.res, f.err
}

func newHandlers(t *testing.T, fake *fakeCore, canonical string) *Handlers {
	t.Helper()
	cfg := &config.Auth{Secret: "s", URL: canonical}
	config.ResolveEnv(cfg, func(string) (string, bool) { return "", false }, zerolog.Nop())
	require.NoError(t, config.Finalize(cfg, &config.App{Env: "test"}, zerolog.Nop()))
	return New(core.NewInvoker(fake, cfg), zerolog.Nop())
}

func TestGET_DelegatesWithNoSpecialOptions(t *testing.T) {
	fake := &fakeCore{res: &core.Result{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   []byte(`{"csrfToken":"x"}`),
	}}
	h := newHandlers(t, fake, "https://app.example.com")

	rec := httptest.NewRecorder()
	h.GET(rec, httptest.NewRequest("GET", "https://app.example.com/auth/csrf", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"csrfToken":"x"}`, rec.Body.String())
	assert.Equal(t, core.Options{}, fake.opts)
	assert.Equal(t, "GET", fake.req.Method)
}

func TestPOST_DelegatesBody(t *testing.T) {
	fake := &fakeCore{res: &core.Result{Status: http.StatusFound, Redirect: "https://github.com/login/oauth/authorize?x=1"}}
	h := newHandlers(t, fake, "https://app.example.com")

	rec := httptest.NewRecorder()
	h.POST(rec, httptest.NewRequest("POST", "https://app.example.com/auth/signin/github", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://github.com/login/oauth/authorize?x=1", rec.Header().Get("Location"))
	assert.Equal(t, core.Options{}, fake.opts)
	assert.Equal(t, "POST", fake.req.Method)
}

func TestServe_UnresolvableOriginFailsClosed(t *testing.T) {
	fake := &fakeCore{res: &core.Result{Status: http.StatusOK}}
	h := newHandlers(t, fake, "")

	r := httptest.NewRequest("GET", "/auth/session", nil)
	r.Host = ""
	rec := httptest.NewRecorder()
	h.GET(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, fake.req)
}

func TestServe_CoreErrorBecomes500(t *testing.T) {
	fake := &fakeCore{err: assert.AnError}
	h := newHandlers(t, fake, "https://app.example.com")

	rec := httptest.NewRecorder()
	h.GET(rec, httptest.NewRequest("GET", "https://app.example.com/auth/session", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWriteResult_CookieOrderPreserved(t *testing.T) {
	res := &core.Result{
		Status: http.StatusOK,
		Cookies: []*http.Cookie{
			{Name: "a", Value: "1", Path: "/"},
			{Name: "b", Value: "2", Path: "/"},
			{Name: "a", Value: "3", Path: "/"},
		},
	}

	rec := httptest.NewRecorder()
	WriteResult(rec, res)

	got := rec.Header().Values("Set-Cookie")
	require.Len(t, got, 3)
	assert.Contains(t, got[0], "a=1")
	assert.Contains(t, got[1], "b=2")
	assert.Contains(t, got[2], "a=3")
}

func TestWriteResult_Defaults(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteResult(rec, &core.Result{})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	WriteResult(rec, &core.Result{Redirect: "/next", Status: http.StatusOK})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/next", rec.Header().Get("Location"))
}

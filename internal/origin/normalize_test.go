package origin

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestNormalize_CanonicalURLWins(t *testing.T) {
	r := httptest.NewRequest("GET", "http://internal:3000/auth/session?x=1", nil)
	r.Header.Set("X-Forwarded-Host", "spoofed.example.com")
	r.Header.Set("X-Forwarded-Proto", "http")

	nreq, err := Normalize(r, mustParse(t, "https://app.example.com"))
	require.NoError(t, err)
	assert.Equal(t, "https", nreq.URL.Scheme)
	assert.Equal(t, "app.example.com", nreq.URL.Host)
	assert.Equal(t, "/auth/session", nreq.URL.Path)
	assert.Equal(t, "x=1", nreq.URL.RawQuery)
}

func TestNormalize_ForwardedHeaders(t *testing.T) {
	r := httptest.NewRequest("GET", "http://internal:3000/auth/session", nil)
	r.Header.Set("X-Forwarded-Host", "public.example.com")
	r.Header.Set("X-Forwarded-Proto", "https")

	nreq, err := Normalize(r, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://public.example.com/auth/session", nreq.URL.String())
}

func TestNormalize_HostHeaderFallback(t *testing.T) {
	r := httptest.NewRequest("GET", "http://self.example.com/auth/csrf", nil)

	nreq, err := Normalize(r, nil)
	require.NoError(t, err)
	assert.Equal(t, "self.example.com", nreq.URL.Host)
}

func TestNormalize_DefaultsSchemeToHTTPS(t *testing.T) {
	r := httptest.NewRequest("GET", "/auth/session", nil)
	r.Host = "app.example.com"
	r.URL.Scheme = ""
	r.TLS = nil

	nreq, err := Normalize(r, nil)
	require.NoError(t, err)
	assert.Equal(t, "https", nreq.URL.Scheme)
}

func TestNormalize_FailsClosedWithoutHost(t *testing.T) {
	r := httptest.NewRequest("GET", "/auth/session", nil)
	r.Host = ""

	nreq, err := Normalize(r, nil)
	assert.Nil(t, nreq)
	assert.ErrorIs(t, err, ErrNoOrigin)
}

func TestNormalize_ReadsBody(t *testing.T) {
	r := httptest.NewRequest("POST", "https://app.example.com/auth/signin", strings.NewReader("callbackUrl=%2Fdashboard"))

	nreq, err := Normalize(r, nil)
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", nreq.Form().Get("callbackUrl"))
}

func TestRequestCookie(t *testing.T) {
	r := httptest.NewRequest("GET", "https://app.example.com/auth/session", nil)
	r.AddCookie(&http.Cookie{Name: "session", Value: "tok"})

	nreq, err := Normalize(r, nil)
	require.NoError(t, err)
	c := nreq.Cookie("session")
	require.NotNil(t, c)
	assert.Equal(t, "tok", c.Value)
	assert.Nil(t, nreq.Cookie("absent"))
}

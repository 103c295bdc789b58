package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dealersync/integrations/pkg/cookie"
)

const testCookieSecret = "0123456789abcdef0123456789abcdef"

func newManager(t *testing.T, opts ...cookie.Option) *cookie.Manager {
	t.Helper()
	m, err := cookie.New([]string{testCookieSecret}, opts...)
	require.NoError(t, err)
	return m
}

func roundTrip(t *testing.T, set func(w http.ResponseWriter)) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	set(rec)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestNewValidation(t *testing.T) {
	t.Parallel()
	_, err := cookie.New(nil)
	require.ErrorIs(t, err, cookie.ErrNoSecret)

	_, err = cookie.New([]string{""})
	require.ErrorIs(t, err, cookie.ErrNoSecret)

	_, err = cookie.New([]string{"short"})
	require.ErrorIs(t, err, cookie.ErrSecretTooShort)
}

func TestSetDefaults(t *testing.T) {
	t.Parallel()
	m := newManager(t, cookie.WithSecure(true))

	rec := httptest.NewRecorder()
	m.Set(rec, "oauth_state_google", "tok", cookie.WithMaxAge(600))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	require.True(t, c.HttpOnly)
	require.True(t, c.Secure)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	require.Equal(t, 600, c.MaxAge)
	require.Equal(t, "/", c.Path)
}

func TestSignedRoundTrip(t *testing.T) {
	t.Parallel()
	m := newManager(t)

	req := roundTrip(t, func(w http.ResponseWriter) {
		m.SetSigned(w, "oauth_verifier_microsoft", "the-verifier-value")
	})

	got, err := m.GetSigned(req, "oauth_verifier_microsoft")
	require.NoError(t, err)
	require.Equal(t, "the-verifier-value", got)
}

func TestSignedTamperDetection(t *testing.T) {
	t.Parallel()
	m := newManager(t)

	req := roundTrip(t, func(w http.ResponseWriter) {
		m.SetSigned(w, "state", "original")
	})
	c, err := req.Cookie("state")
	require.NoError(t, err)

	tampered := httptest.NewRequest(http.MethodGet, "/", nil)
	encoded, sig, _ := strings.Cut(c.Value, "|")
	tampered.AddCookie(&http.Cookie{Name: "state", Value: encoded + "x|" + sig})

	_, err = m.GetSigned(tampered, "state")
	require.Error(t, err)
}

func TestSecretRotation(t *testing.T) {
	t.Parallel()
	old := newManager(t)

	req := roundTrip(t, func(w http.ResponseWriter) {
		old.SetSigned(w, "state", "issued-before-rotation")
	})

	rotated, err := cookie.New([]string{"fedcba9876543210fedcba9876543210", testCookieSecret})
	require.NoError(t, err)

	got, err := rotated.GetSigned(req, "state")
	require.NoError(t, err)
	require.Equal(t, "issued-before-rotation", got)
}

func TestGetMissing(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := m.Get(req, "absent")
	require.ErrorIs(t, err, cookie.ErrCookieNotFound)
}

func TestDelete(t *testing.T) {
	t.Parallel()
	m := newManager(t)
	rec := httptest.NewRecorder()
	m.Delete(rec, "oauth_state_google")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)
	require.Empty(t, cookies[0].Value)
}

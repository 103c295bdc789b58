package oauth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dealersync/integrations/pkg/pkce"
	"github.com/dealersync/integrations/svc/oauth"
)

func googleAdapter(opts ...oauth.AdapterOption) oauth.Adapter {
	return oauth.NewGoogle(oauth.GoogleConfig{
		ClientID:     "google-client",
		ClientSecret: "google-secret",
		RedirectURL:  "https://app.example.com/integrations/google/callback",
	}, opts...)
}

func microsoftAdapter(opts ...oauth.AdapterOption) oauth.Adapter {
	return oauth.NewMicrosoft(oauth.MicrosoftConfig{
		ClientID:     "ms-client",
		ClientSecret: "ms-secret",
		RedirectURL:  "https://app.example.com/integrations/microsoft/callback",
		Tenant:       "common",
	}, opts...)
}

func TestGoogleAuthURL(t *testing.T) {
	t.Parallel()
	authURL, err := googleAdapter().AuthURL("state-123", oauth.TypeCalendar, nil)
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	q := parsed.Query()

	require.Equal(t, "state-123", q.Get("state"))
	require.Equal(t, "google-client", q.Get("client_id"))
	require.Equal(t, "https://www.googleapis.com/auth/calendar.readonly", q.Get("scope"))
	require.Equal(t, "offline", q.Get("access_type"))
	require.Equal(t, "consent", q.Get("prompt"))
	require.Empty(t, q.Get("code_challenge"), "google must not send PKCE parameters")
}

func TestMicrosoftAuthURLCarriesPKCE(t *testing.T) {
	t.Parallel()
	adapter := microsoftAdapter()
	require.True(t, adapter.RequiresPKCE())

	pair, err := pkce.Generate()
	require.NoError(t, err)

	authURL, err := adapter.AuthURL("state-456", oauth.TypeCalendar, &pair)
	require.NoError(t, err)

	q, err := url.Parse(authURL)
	require.NoError(t, err)
	query := q.Query()

	require.Equal(t, pair.Challenge, query.Get("code_challenge"))
	require.Equal(t, "S256", query.Get("code_challenge_method"))
	require.NotContains(t, authURL, pair.Verifier, "verifier must never be embedded in a URL")
}

func TestMicrosoftAuthURLWithoutPairFails(t *testing.T) {
	t.Parallel()
	_, err := microsoftAdapter().AuthURL("state", oauth.TypeCalendar, nil)
	require.ErrorIs(t, err, oauth.ErrVerifierRequired)
}

func TestScopesUnsupportedType(t *testing.T) {
	t.Parallel()
	facebook := oauth.NewFacebook(oauth.FacebookConfig{
		ClientID:     "fb-client",
		ClientSecret: "fb-secret",
		RedirectURL:  "https://app.example.com/integrations/facebook/callback",
	})

	_, err := facebook.Scopes(oauth.TypeCalendar)
	require.ErrorIs(t, err, oauth.ErrUnsupportedType)

	_, err = facebook.AuthURL("state", oauth.TypeEmail, nil)
	require.ErrorIs(t, err, oauth.ErrUnsupportedType)
}

func TestExchangeCode(t *testing.T) {
	t.Parallel()
	var sawVerifier string
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		sawVerifier = r.FormValue("code_verifier")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer"}`))
	}))
	defer tokenSrv.Close()

	identitySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"ms-user-9","mail":"dealer@example.com"}`))
	}))
	defer identitySrv.Close()

	adapter := microsoftAdapter(
		oauth.WithTokenEndpoint(oauth2.Endpoint{AuthURL: tokenSrv.URL, TokenURL: tokenSrv.URL}),
		oauth.WithIdentityURL(identitySrv.URL),
	)

	pair, err := pkce.Generate()
	require.NoError(t, err)

	creds, err := adapter.ExchangeCode(context.Background(), "auth-code", pair.Verifier)
	require.NoError(t, err)
	require.Equal(t, pair.Verifier, sawVerifier, "exchange must forward the cookie-held verifier")
	require.Equal(t, "at-1", creds.AccessToken)
	require.Equal(t, "rt-1", creds.RefreshToken)
	require.Equal(t, "ms-user-9", creds.ProviderUserID)
	require.Equal(t, "dealer@example.com", creds.ProviderEmail)
}

func TestExchangeCodeWithoutVerifierFails(t *testing.T) {
	t.Parallel()
	_, err := microsoftAdapter().ExchangeCode(context.Background(), "code", "")
	require.ErrorIs(t, err, oauth.ErrVerifierRequired)
}

func TestExchangeCodeFailure(t *testing.T) {
	t.Parallel()
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer tokenSrv.Close()

	adapter := googleAdapter(
		oauth.WithTokenEndpoint(oauth2.Endpoint{AuthURL: tokenSrv.URL, TokenURL: tokenSrv.URL}),
	)

	_, err := adapter.ExchangeCode(context.Background(), "bad-code", "")
	require.ErrorIs(t, err, oauth.ErrExchangeFailed)
}

func TestProbeListsCalendars(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer live-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"cal-1","summary":"Showroom"},{"id":"cal-2","summary":"Test drives"}]}`))
	}))
	defer srv.Close()

	adapter := googleAdapter(oauth.WithProbeURL(oauth.TypeCalendar, srv.URL))

	result, err := adapter.Probe(context.Background(), "live-token", oauth.TypeCalendar)
	require.NoError(t, err)
	require.Equal(t, 2, result.Count())
	require.Equal(t, "cal-1", result.Resources[0].ID)
	require.Equal(t, "Showroom", result.Resources[0].Name)
}

func TestProbeRejectedToken(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":401}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	adapter := googleAdapter(oauth.WithProbeURL(oauth.TypeCalendar, srv.URL))

	_, err := adapter.Probe(context.Background(), "stale-token", oauth.TypeCalendar)
	require.ErrorIs(t, err, oauth.ErrTokenRejected)
}

func TestFacebookAdAccountsAndPages(t *testing.T) {
	t.Parallel()
	adsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"act_1","name":"Dealer Ads","account_status":1},{"id":"act_2","name":"Old","account_status":2}]}`))
	}))
	defer adsSrv.Close()

	pagesSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"page-1","name":"Main Street Motors"}]}`))
	}))
	defer pagesSrv.Close()

	facebook := oauth.NewFacebook(oauth.FacebookConfig{
		ClientID:     "fb-client",
		ClientSecret: "fb-secret",
		RedirectURL:  "https://app.example.com/integrations/facebook/callback",
	}, oauth.WithProbeURL(oauth.TypeAdvertising, adsSrv.URL)).WithPagesURL(pagesSrv.URL)

	result, err := facebook.Probe(context.Background(), "fb-token", oauth.TypeAdvertising)
	require.NoError(t, err)
	require.Equal(t, 2, result.Count())
	require.Equal(t, "active", result.Resources[0].Status)
	require.Equal(t, "disabled", result.Resources[1].Status)

	pages, err := facebook.ListPages(context.Background(), "fb-token")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, "Main Street Motors", pages[0].Name)
}

package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/dealersync/integrations/pkg/pkce"
)

// probeEndpoint couples a provider API URL with a parser for its response
// shape. One entry per integration type the provider supports probing.
type probeEndpoint struct {
	url   string
	parse func(body []byte) ([]Resource, error)
}

// providerSpec is the static capability declaration of one provider. The
// three adapters differ only in their spec; the protocol machinery is shared.
type providerSpec struct {
	id            string
	requiresPKCE  bool
	endpoint      oauth2.Endpoint
	scopes        map[IntegrationType][]string
	authParams    []oauth2.AuthCodeOption
	identityURL   string
	parseIdentity func(body []byte) (userID, email string, err error)
	probes        map[IntegrationType]probeEndpoint
}

type adapter struct {
	spec   providerSpec
	conf   oauth2.Config
	client *http.Client
}

// AdapterOption tweaks adapter wiring, mainly for tests that point the
// adapter at an httptest server.
type AdapterOption func(*adapter)

// WithHTTPClient sets the client used for identity and probe calls and for
// the token exchange.
func WithHTTPClient(c *http.Client) AdapterOption {
	return func(a *adapter) {
		if c != nil {
			a.client = c
		}
	}
}

// WithTokenEndpoint overrides the provider's authorize/token endpoints.
func WithTokenEndpoint(e oauth2.Endpoint) AdapterOption {
	return func(a *adapter) { a.conf.Endpoint = e }
}

// WithIdentityURL overrides the userinfo endpoint.
func WithIdentityURL(url string) AdapterOption {
	return func(a *adapter) { a.spec.identityURL = url }
}

// WithProbeURL overrides the probe endpoint for one integration type.
func WithProbeURL(t IntegrationType, url string) AdapterOption {
	return func(a *adapter) {
		pe := a.spec.probes[t]
		pe.url = url
		a.spec.probes[t] = pe
	}
}

func newAdapter(spec providerSpec, clientID, clientSecret, redirectURL string, opts ...AdapterOption) *adapter {
	// Copy the probe map so per-instance URL overrides never leak into the
	// package-level spec shared by other instances.
	probes := make(map[IntegrationType]probeEndpoint, len(spec.probes))
	for t, pe := range spec.probes {
		probes[t] = pe
	}
	spec.probes = probes

	a := &adapter{
		spec: spec,
		conf: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     spec.endpoint,
		},
		client: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *adapter) ProviderID() string { return a.spec.id }

func (a *adapter) RequiresPKCE() bool { return a.spec.requiresPKCE }

func (a *adapter) Scopes(t IntegrationType) ([]string, error) {
	scopes, ok := a.spec.scopes[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupportedType, a.spec.id, t)
	}
	return scopes, nil
}

func (a *adapter) AuthURL(state string, t IntegrationType, pair *pkce.Pair) (string, error) {
	scopes, err := a.Scopes(t)
	if err != nil {
		return "", err
	}

	conf := a.conf
	conf.Scopes = scopes

	opts := make([]oauth2.AuthCodeOption, 0, len(a.spec.authParams)+2)
	opts = append(opts, a.spec.authParams...)

	if a.spec.requiresPKCE {
		if pair == nil {
			return "", ErrVerifierRequired
		}
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", pair.Challenge),
			oauth2.SetAuthURLParam("code_challenge_method", pair.Method()),
		)
	}

	return conf.AuthCodeURL(state, opts...), nil
}

func (a *adapter) ExchangeCode(ctx context.Context, code, verifier string) (Credentials, error) {
	var opts []oauth2.AuthCodeOption
	if a.spec.requiresPKCE {
		if verifier == "" {
			return Credentials{}, ErrVerifierRequired
		}
		opts = append(opts, oauth2.SetAuthURLParam("code_verifier", verifier))
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)
	tok, err := a.conf.Exchange(ctx, code, opts...)
	if err != nil {
		return Credentials{}, errors.Join(ErrExchangeFailed, err)
	}

	userID, email, err := a.identity(ctx, tok.AccessToken)
	if err != nil {
		return Credentials{}, err
	}

	return Credentials{
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		ProviderUserID: userID,
		ProviderEmail:  email,
	}, nil
}

func (a *adapter) Probe(ctx context.Context, accessToken string, t IntegrationType) (ProbeResult, error) {
	pe, ok := a.spec.probes[t]
	if !ok {
		return ProbeResult{}, fmt.Errorf("%w: %s/%s", ErrUnsupportedType, a.spec.id, t)
	}

	body, err := a.get(ctx, pe.url, accessToken)
	if err != nil {
		return ProbeResult{}, err
	}

	resources, err := pe.parse(body)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("parse %s probe response: %w", a.spec.id, err)
	}
	return ProbeResult{Resources: resources}, nil
}

func (a *adapter) identity(ctx context.Context, accessToken string) (string, string, error) {
	body, err := a.get(ctx, a.spec.identityURL, accessToken)
	if err != nil {
		return "", "", err
	}

	userID, email, err := a.spec.parseIdentity(body)
	if err != nil {
		return "", "", fmt.Errorf("parse %s identity response: %w", a.spec.id, err)
	}
	if userID == "" {
		return "", "", ErrNoIdentity
	}
	return userID, email, nil
}

// get performs an authenticated provider API call. Auth failures map to
// ErrTokenRejected so callers can tell "reconnect" apart from "try again".
func (a *adapter) get(ctx context.Context, url, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s returned %d", ErrTokenRejected, a.spec.id, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%s api returned %d", a.spec.id, resp.StatusCode)
	}

	return body, nil
}

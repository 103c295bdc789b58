package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/oauth2/facebook"
)

// FacebookConfig carries the Facebook app credentials.
type FacebookConfig struct {
	ClientID     string `env:"FACEBOOK_CLIENT_ID,required"`
	ClientSecret string `env:"FACEBOOK_CLIENT_SECRET,required"`
	RedirectURL  string `env:"FACEBOOK_REDIRECT_URL,required"`
}

// FacebookAdapter is the Facebook variant of the shared adapter. On top of the
// uniform interface it lists the pages reachable with the granted scopes,
// which the lifecycle manager snapshots alongside ad accounts.
type FacebookAdapter struct {
	*adapter
	pagesURL string
}

// NewFacebook builds the Facebook adapter. Facebook issues long-lived user
// tokens instead of refresh tokens, so Credentials.RefreshToken stays empty.
func NewFacebook(cfg FacebookConfig, opts ...AdapterOption) *FacebookAdapter {
	a := newAdapter(facebookSpec, cfg.ClientID, cfg.ClientSecret, cfg.RedirectURL, opts...)
	return &FacebookAdapter{
		adapter:  a,
		pagesURL: graphBase + "/me/accounts?fields=id,name",
	}
}

// WithPagesURL overrides the page listing endpoint, used by tests.
func (f *FacebookAdapter) WithPagesURL(url string) *FacebookAdapter {
	f.pagesURL = url
	return f
}

// ListPages returns the pages the linked account manages.
func (f *FacebookAdapter) ListPages(ctx context.Context, accessToken string) ([]Resource, error) {
	body, err := f.get(ctx, f.pagesURL, accessToken)
	if err != nil {
		return nil, err
	}
	resources, err := parseGraphData(body)
	if err != nil {
		return nil, fmt.Errorf("parse facebook pages response: %w", err)
	}
	return resources, nil
}

const graphBase = "https://graph.facebook.com/v19.0"

var facebookSpec = providerSpec{
	id:           ProviderFacebook,
	requiresPKCE: false,
	endpoint:     facebook.Endpoint,
	scopes: map[IntegrationType][]string{
		TypeAdvertising: {"ads_management", "ads_read", "business_management", "pages_show_list"},
	},
	identityURL:   graphBase + "/me?fields=id,email",
	parseIdentity: parseFacebookIdentity,
	probes: map[IntegrationType]probeEndpoint{
		TypeAdvertising: {
			url:   graphBase + "/me/adaccounts?fields=id,name,account_status",
			parse: parseFacebookAdAccounts,
		},
	},
}

func parseFacebookIdentity(body []byte) (string, string, error) {
	var v struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return "", "", err
	}
	return v.ID, v.Email, nil
}

func parseFacebookAdAccounts(body []byte) ([]Resource, error) {
	var v struct {
		Data []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			AccountStatus int    `json:"account_status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	resources := make([]Resource, 0, len(v.Data))
	for _, item := range v.Data {
		resources = append(resources, Resource{
			ID:     item.ID,
			Name:   item.Name,
			Status: facebookAccountStatus(item.AccountStatus),
		})
	}
	return resources, nil
}

// facebookAccountStatus maps Graph API numeric ad account statuses to the
// strings persisted on AdAccount rows.
func facebookAccountStatus(code int) string {
	switch code {
	case 1:
		return "active"
	case 2:
		return "disabled"
	case 3:
		return "unsettled"
	default:
		return strconv.Itoa(code)
	}
}

func parseGraphData(body []byte) ([]Resource, error) {
	var v struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	resources := make([]Resource, 0, len(v.Data))
	for _, item := range v.Data {
		resources = append(resources, Resource{ID: item.ID, Name: item.Name})
	}
	return resources, nil
}

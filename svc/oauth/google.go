package oauth

import (
	"encoding/json"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleConfig carries the Google OAuth client credentials. All fields are
// required; a missing value fails configuration loading at startup.
type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID,required"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET,required"`
	RedirectURL  string `env:"GOOGLE_REDIRECT_URL,required"`
}

// NewGoogle builds the Google adapter. Google flows request offline access
// with forced consent so a refresh token is issued on every connect, which
// keeps reconnects from silently losing the refresh credential.
func NewGoogle(cfg GoogleConfig, opts ...AdapterOption) Adapter {
	return newAdapter(googleSpec, cfg.ClientID, cfg.ClientSecret, cfg.RedirectURL, opts...)
}

var googleSpec = providerSpec{
	id:           ProviderGoogle,
	requiresPKCE: false,
	endpoint:     google.Endpoint,
	scopes: map[IntegrationType][]string{
		TypeCalendar:    {"https://www.googleapis.com/auth/calendar.readonly"},
		TypeAdvertising: {"https://www.googleapis.com/auth/adwords"},
		TypeEmail:       {"https://www.googleapis.com/auth/gmail.send"},
	},
	authParams: []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	},
	identityURL:   "https://www.googleapis.com/oauth2/v3/userinfo",
	parseIdentity: parseGoogleIdentity,
	probes: map[IntegrationType]probeEndpoint{
		TypeCalendar: {
			url:   "https://www.googleapis.com/calendar/v3/users/me/calendarList",
			parse: parseGoogleCalendars,
		},
		TypeAdvertising: {
			url:   "https://googleads.googleapis.com/v17/customers:listAccessibleCustomers",
			parse: parseGoogleAdCustomers,
		},
		TypeEmail: {
			url:   "https://gmail.googleapis.com/gmail/v1/users/me/profile",
			parse: parseGmailProfile,
		},
	},
}

func parseGoogleIdentity(body []byte) (string, string, error) {
	var v struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return "", "", err
	}
	return v.Sub, v.Email, nil
}

func parseGoogleCalendars(body []byte) ([]Resource, error) {
	var v struct {
		Items []struct {
			ID      string `json:"id"`
			Summary string `json:"summary"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	resources := make([]Resource, 0, len(v.Items))
	for _, item := range v.Items {
		resources = append(resources, Resource{ID: item.ID, Name: item.Summary})
	}
	return resources, nil
}

func parseGoogleAdCustomers(body []byte) ([]Resource, error) {
	var v struct {
		ResourceNames []string `json:"resourceNames"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	resources := make([]Resource, 0, len(v.ResourceNames))
	for _, name := range v.ResourceNames {
		// Resource names look like "customers/1234567890".
		resources = append(resources, Resource{ID: name, Name: name, Status: "accessible"})
	}
	return resources, nil
}

func parseGmailProfile(body []byte) ([]Resource, error) {
	var v struct {
		EmailAddress string `json:"emailAddress"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	if v.EmailAddress == "" {
		return nil, nil
	}
	return []Resource{{ID: v.EmailAddress, Name: v.EmailAddress}}, nil
}

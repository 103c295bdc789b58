package oauth

import (
	"context"

	"github.com/dealersync/integrations/pkg/pkce"
)

// Provider identifiers used for storage, routing and logging.
const (
	ProviderGoogle    = "google"
	ProviderMicrosoft = "microsoft"
	ProviderFacebook  = "facebook"
)

// IntegrationType names the capability a linked account grants.
type IntegrationType string

const (
	TypeAdvertising IntegrationType = "advertising"
	TypeCalendar    IntegrationType = "calendar"
	TypeEmail       IntegrationType = "email"
)

// Valid reports whether t is one of the known integration types.
func (t IntegrationType) Valid() bool {
	switch t {
	case TypeAdvertising, TypeCalendar, TypeEmail:
		return true
	}
	return false
}

// Adapter abstracts provider-specific OAuth behavior behind a uniform
// interface so the lifecycle manager can treat all providers the same way.
// Scope sets and the PKCE requirement are static capabilities declared by the
// adapter, never hard-coded in the orchestrator.
type Adapter interface {
	// ProviderID returns the stable provider identifier, e.g. "google".
	ProviderID() string

	// RequiresPKCE reports whether the authorization request must carry a
	// code challenge. The verifier then travels back through an httpOnly
	// cookie, never through the provider.
	RequiresPKCE() bool

	// Scopes returns the scope set requested for the given integration type.
	Scopes(t IntegrationType) ([]string, error)

	// AuthURL builds the provider authorization URL carrying the state token
	// and, for PKCE providers, the code challenge. pair must be non-nil iff
	// RequiresPKCE reports true.
	AuthURL(state string, t IntegrationType, pair *pkce.Pair) (string, error)

	// ExchangeCode turns an authorization code into credentials and the
	// user's identity at the provider. The caller must have validated the
	// state token first and, if PKCE was used, supply the cookie-held
	// verifier. Exchange failures surface as ErrExchangeFailed; no retry.
	ExchangeCode(ctx context.Context, code, verifier string) (Credentials, error)

	// Probe performs a read-only capability check with a live access token,
	// e.g. "list calendars" or "list ad accounts". A token the provider
	// rejects surfaces as ErrTokenRejected, distinct from transport errors.
	Probe(ctx context.Context, accessToken string, t IntegrationType) (ProbeResult, error)
}

// PageLister is an optional capability for providers whose advertising
// integration also owns pages (Facebook). The lifecycle manager detects it
// with a type assertion when snapshotting dependent resources.
type PageLister interface {
	ListPages(ctx context.Context, accessToken string) ([]Resource, error)
}

// Credentials is the normalized result of a code exchange.
type Credentials struct {
	AccessToken    string
	RefreshToken   string // empty when the provider issues none
	ProviderUserID string
	ProviderEmail  string
}

// Resource is one provider-side object reachable with the granted scopes.
type Resource struct {
	ID     string
	Name   string
	Status string // ad accounts only, empty otherwise
}

// ProbeResult is the outcome of a capability probe.
type ProbeResult struct {
	Resources []Resource
}

// Count returns the number of reachable resources.
func (r ProbeResult) Count() int { return len(r.Resources) }

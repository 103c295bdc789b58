package integration

import (
	"time"

	"github.com/google/uuid"

	"github.com/dealersync/integrations/svc/oauth"
)

// Status of an integration record.
type Status string

const (
	StatusActive       Status = "active"
	StatusDisconnected Status = "disconnected"
)

// Integration is one linked third-party account capability for one user.
// Exactly one row exists per (UserID, Provider, Type); reconnecting upserts
// the row instead of duplicating it. Token fields hold ciphertext in the
// "ivHex:cipherHex" format, never plaintext.
type Integration struct {
	ID                    uuid.UUID
	UserID                uuid.UUID
	Provider              string
	Type                  oauth.IntegrationType
	ProviderUserID        string
	ProviderEmail         string
	AccessTokenEncrypted  string
	RefreshTokenEncrypted string // empty when the provider issues no refresh token
	Status                Status
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// AdAccount is a provider ad account owned by one integration. Its lifetime
// never exceeds the parent integration's.
type AdAccount struct {
	IntegrationID uuid.UUID
	AdAccountID   string
	Name          string
	Status        string
}

// Page is a provider page owned by one integration.
type Page struct {
	IntegrationID uuid.UUID
	PageID        string
	Name          string
}

// Calendar is a provider calendar owned by one integration.
type Calendar struct {
	IntegrationID uuid.UUID
	CalendarID    string
	Name          string
}

package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dealersync/integrations/pkg/tokencipher"
	"github.com/dealersync/integrations/svc/oauth"
)

// Manager orchestrates the integration lifecycle: connect persists encrypted
// credentials, test probes provider capabilities with a decrypted token, and
// disconnect cascades the record and its dependent resources away.
type Manager struct {
	repo     Repository
	cipher   *tokencipher.Cipher
	adapters map[string]oauth.Adapter
	log      *slog.Logger
}

// NewManager wires the manager. Every adapter registers under its ProviderID.
func NewManager(repo Repository, cipher *tokencipher.Cipher, adapters []oauth.Adapter, log *slog.Logger) *Manager {
	byID := make(map[string]oauth.Adapter, len(adapters))
	for _, a := range adapters {
		byID[a.ProviderID()] = a
	}
	return &Manager{
		repo:     repo,
		cipher:   cipher,
		adapters: byID,
		log:      log,
	}
}

// Adapter returns the adapter registered for the provider id.
func (m *Manager) Adapter(provider string) (oauth.Adapter, error) {
	a, ok := m.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	return a, nil
}

// Connect encrypts the raw credentials and upserts the integration to active.
// Upsert rather than insert-or-fail: a user who revoked access at the
// provider reconnects into the same row, last writer wins.
func (m *Manager) Connect(ctx context.Context, userID uuid.UUID, provider string, t oauth.IntegrationType, creds oauth.Credentials) (*Integration, error) {
	if _, err := m.Adapter(provider); err != nil {
		return nil, err
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}

	accessEnc, err := m.cipher.Encrypt(creds.AccessToken)
	if err != nil {
		return nil, err
	}
	var refreshEnc string
	if creds.RefreshToken != "" {
		if refreshEnc, err = m.cipher.Encrypt(creds.RefreshToken); err != nil {
			return nil, err
		}
	}

	stored, err := m.repo.Upsert(ctx, &Integration{
		UserID:                userID,
		Provider:              provider,
		Type:                  t,
		ProviderUserID:        creds.ProviderUserID,
		ProviderEmail:         creds.ProviderEmail,
		AccessTokenEncrypted:  accessEnc,
		RefreshTokenEncrypted: refreshEnc,
		Status:                StatusActive,
	})
	if err != nil {
		return nil, err
	}

	m.log.InfoContext(ctx, "integration connected",
		slog.String("provider", provider),
		slog.String("integration_type", string(t)),
		slog.String("integration_id", stored.ID.String()),
	)
	return stored, nil
}

// Snapshot probes the provider once after a connect and stores the reachable
// dependent resources. Best effort: a probe failure leaves the fresh
// integration connected and is only logged.
func (m *Manager) Snapshot(ctx context.Context, in *Integration, accessToken string) {
	adapter, err := m.Adapter(in.Provider)
	if err != nil {
		return
	}

	result, err := adapter.Probe(ctx, accessToken, in.Type)
	if err != nil {
		m.log.WarnContext(ctx, "resource snapshot probe failed",
			slog.String("provider", in.Provider), slog.Any("error", err))
		return
	}

	switch in.Type {
	case oauth.TypeAdvertising:
		accounts := make([]AdAccount, 0, len(result.Resources))
		for _, res := range result.Resources {
			accounts = append(accounts, AdAccount{
				IntegrationID: in.ID, AdAccountID: res.ID, Name: res.Name, Status: res.Status,
			})
		}
		if err := m.repo.ReplaceAdAccounts(ctx, in.ID, accounts); err != nil {
			m.log.WarnContext(ctx, "storing ad accounts failed", slog.Any("error", err))
		}

		if lister, ok := adapter.(oauth.PageLister); ok {
			m.snapshotPages(ctx, in, lister, accessToken)
		}
	case oauth.TypeCalendar:
		calendars := make([]Calendar, 0, len(result.Resources))
		for _, res := range result.Resources {
			calendars = append(calendars, Calendar{
				IntegrationID: in.ID, CalendarID: res.ID, Name: res.Name,
			})
		}
		if err := m.repo.ReplaceCalendars(ctx, in.ID, calendars); err != nil {
			m.log.WarnContext(ctx, "storing calendars failed", slog.Any("error", err))
		}
	}
}

func (m *Manager) snapshotPages(ctx context.Context, in *Integration, lister oauth.PageLister, accessToken string) {
	resources, err := lister.ListPages(ctx, accessToken)
	if err != nil {
		m.log.WarnContext(ctx, "page snapshot failed",
			slog.String("provider", in.Provider), slog.Any("error", err))
		return
	}
	pages := make([]Page, 0, len(resources))
	for _, res := range resources {
		pages = append(pages, Page{IntegrationID: in.ID, PageID: res.ID, Name: res.Name})
	}
	if err := m.repo.ReplacePages(ctx, in.ID, pages); err != nil {
		m.log.WarnContext(ctx, "storing pages failed", slog.Any("error", err))
	}
}

// TestReport summarizes a capability probe without mutating any state.
type TestReport struct {
	IntegrationID uuid.UUID `json:"integration_id"`
	Provider      string    `json:"provider"`
	Type          string    `json:"integration_type"`
	ResourceCount int       `json:"resource_count"`
	Sample        []string  `json:"sample,omitempty"`
}

// Test decrypts the stored access token and runs a read-only capability probe.
// A decryption failure surfaces as ErrCorruptedToken with the row left intact
// for diagnostics; a provider-rejected token as ErrReconnectRequired. Any
// other probe error is a transport failure the caller may simply retry.
func (m *Manager) Test(ctx context.Context, integrationID uuid.UUID) (*TestReport, error) {
	in, err := m.repo.GetByID(ctx, integrationID)
	if err != nil {
		return nil, err
	}

	adapter, err := m.Adapter(in.Provider)
	if err != nil {
		return nil, err
	}

	accessToken, err := m.cipher.Decrypt(in.AccessTokenEncrypted)
	if err != nil {
		m.log.ErrorContext(ctx, "stored access token failed to decrypt",
			slog.String("integration_id", in.ID.String()), slog.Any("error", err))
		return nil, errors.Join(ErrCorruptedToken, err)
	}

	result, err := adapter.Probe(ctx, accessToken, in.Type)
	if err != nil {
		if errors.Is(err, oauth.ErrTokenRejected) {
			return nil, errors.Join(ErrReconnectRequired, err)
		}
		return nil, err
	}

	report := &TestReport{
		IntegrationID: in.ID,
		Provider:      in.Provider,
		Type:          string(in.Type),
		ResourceCount: result.Count(),
	}
	for _, res := range result.Resources {
		if len(report.Sample) == 3 {
			break
		}
		report.Sample = append(report.Sample, res.Name)
	}
	return report, nil
}

// Disconnect deletes the matching integrations and their dependent resources,
// children before parent, as one unit of work. Idempotent: disconnecting an
// absent integration succeeds.
func (m *Manager) Disconnect(ctx context.Context, userID uuid.UUID, provider string, types ...oauth.IntegrationType) error {
	if _, err := m.Adapter(provider); err != nil {
		return err
	}
	if err := m.repo.Delete(ctx, userID, provider, types...); err != nil {
		return err
	}

	m.log.InfoContext(ctx, "integration disconnected",
		slog.String("provider", provider),
		slog.String("user_id", userID.String()),
	)
	return nil
}

// Get returns one integration by id.
func (m *Manager) Get(ctx context.Context, integrationID uuid.UUID) (*Integration, error) {
	return m.repo.GetByID(ctx, integrationID)
}

// List returns the user's integrations.
func (m *Manager) List(ctx context.Context, userID uuid.UUID) ([]Integration, error) {
	return m.repo.ListByUser(ctx, userID)
}

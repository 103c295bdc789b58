package integration_test

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dealersync/integrations/modules/integration"
	"github.com/dealersync/integrations/pkg/pkce"
	"github.com/dealersync/integrations/pkg/tokencipher"
	"github.com/dealersync/integrations/svc/oauth"
)

// memoryRepository implements integration.Repository with the same uniqueness
// and cascade semantics as the Postgres implementation.
type memoryRepository struct {
	mu           sync.Mutex
	integrations map[uuid.UUID]*integration.Integration
	adAccounts   map[uuid.UUID][]integration.AdAccount
	pages        map[uuid.UUID][]integration.Page
	calendars    map[uuid.UUID][]integration.Calendar
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		integrations: make(map[uuid.UUID]*integration.Integration),
		adAccounts:   make(map[uuid.UUID][]integration.AdAccount),
		pages:        make(map[uuid.UUID][]integration.Page),
		calendars:    make(map[uuid.UUID][]integration.Calendar),
	}
}

func (r *memoryRepository) Upsert(_ context.Context, in *integration.Integration) (*integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.integrations {
		if existing.UserID == in.UserID && existing.Provider == in.Provider && existing.Type == in.Type {
			existing.ProviderUserID = in.ProviderUserID
			existing.ProviderEmail = in.ProviderEmail
			existing.AccessTokenEncrypted = in.AccessTokenEncrypted
			existing.RefreshTokenEncrypted = in.RefreshTokenEncrypted
			existing.Status = in.Status
			copied := *existing
			return &copied, nil
		}
	}

	stored := *in
	stored.ID = uuid.New()
	r.integrations[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (r *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.integrations[id]
	if !ok {
		return nil, integration.ErrNotFound
	}
	copied := *in
	return &copied, nil
}

func (r *memoryRepository) Find(_ context.Context, userID uuid.UUID, provider string, t oauth.IntegrationType) (*integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.integrations {
		if in.UserID == userID && in.Provider == provider && in.Type == t {
			copied := *in
			return &copied, nil
		}
	}
	return nil, integration.ErrNotFound
}

func (r *memoryRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]integration.Integration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []integration.Integration
	for _, in := range r.integrations {
		if in.UserID == userID {
			result = append(result, *in)
		}
	}
	return result, nil
}

func (r *memoryRepository) Delete(_ context.Context, userID uuid.UUID, provider string, types ...oauth.IntegrationType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, in := range r.integrations {
		if in.UserID != userID || in.Provider != provider {
			continue
		}
		if len(types) > 0 {
			match := false
			for _, t := range types {
				if in.Type == t {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		delete(r.adAccounts, id)
		delete(r.pages, id)
		delete(r.calendars, id)
		delete(r.integrations, id)
	}
	return nil
}

func (r *memoryRepository) ReplaceAdAccounts(_ context.Context, id uuid.UUID, accounts []integration.AdAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adAccounts[id] = accounts
	return nil
}

func (r *memoryRepository) ReplacePages(_ context.Context, id uuid.UUID, pages []integration.Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[id] = pages
	return nil
}

func (r *memoryRepository) ReplaceCalendars(_ context.Context, id uuid.UUID, calendars []integration.Calendar) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calendars[id] = calendars
	return nil
}

func (r *memoryRepository) ListAdAccounts(_ context.Context, id uuid.UUID) ([]integration.AdAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.adAccounts[id], nil
}

func (r *memoryRepository) ListPages(_ context.Context, id uuid.UUID) ([]integration.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pages[id], nil
}

func (r *memoryRepository) ListCalendars(_ context.Context, id uuid.UUID) ([]integration.Calendar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calendars[id], nil
}

// fakeAdapter is a scriptable oauth.Adapter.
type fakeAdapter struct {
	id           string
	requiresPKCE bool
	creds        oauth.Credentials
	exchangeErr  error
	probeResult  oauth.ProbeResult
	probeErr     error
	pages        []oauth.Resource
	listsPages   bool

	lastVerifier string
}

func (f *fakeAdapter) ProviderID() string { return f.id }

func (f *fakeAdapter) RequiresPKCE() bool { return f.requiresPKCE }

func (f *fakeAdapter) Scopes(oauth.IntegrationType) ([]string, error) {
	return []string{"scope.read"}, nil
}

func (f *fakeAdapter) AuthURL(state string, t oauth.IntegrationType, pair *pkce.Pair) (string, error) {
	u := fmt.Sprintf("https://provider.example.com/authorize?state=%s&type=%s", state, t)
	if pair != nil {
		u += "&code_challenge=" + pair.Challenge
	}
	return u, nil
}

func (f *fakeAdapter) ExchangeCode(_ context.Context, code, verifier string) (oauth.Credentials, error) {
	f.lastVerifier = verifier
	if f.exchangeErr != nil {
		return oauth.Credentials{}, f.exchangeErr
	}
	return f.creds, nil
}

func (f *fakeAdapter) Probe(_ context.Context, _ string, _ oauth.IntegrationType) (oauth.ProbeResult, error) {
	if f.probeErr != nil {
		return oauth.ProbeResult{}, f.probeErr
	}
	return f.probeResult, nil
}

// fakePageAdapter adds the optional PageLister capability.
type fakePageAdapter struct{ *fakeAdapter }

func (f *fakePageAdapter) ListPages(context.Context, string) ([]oauth.Resource, error) {
	return f.pages, nil
}

// staticUser resolves every request to a fixed user id.
type staticUser struct{ id uuid.UUID }

func (u staticUser) UserID(*http.Request) (uuid.UUID, error) { return u.id, nil }

func newTestCipher(t *testing.T) *tokencipher.Cipher {
	t.Helper()
	key := make([]byte, tokencipher.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	c, err := tokencipher.New(hex.EncodeToString(key))
	require.NoError(t, err)
	return c
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

package statetoken

import (
	"context"
	"sync"
	"time"
)

// Store persists issued tokens for the store-backed issuer variant.
type Store interface {
	// Save records a token with its subject and absolute expiry. Saving an
	// existing token overwrites the previous row.
	Save(ctx context.Context, token, subject string, expiresAt time.Time) error

	// Consume atomically looks up an unexpired token and removes it,
	// returning the stored subject. A missing, expired or already consumed
	// token yields ErrTokenNotFound.
	Consume(ctx context.Context, token string) (string, error)
}

// MemoryStore is an in-process Store for tests and single-node development.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]memoryRow
	now  func() time.Time
}

type memoryRow struct {
	subject   string
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[string]memoryRow),
		now:  time.Now,
	}
}

// NewMemoryStoreWithClock creates an in-memory store with an injected time
// source for expiry boundary tests.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	s := NewMemoryStore()
	s.now = now
	return s
}

func (s *MemoryStore) Save(_ context.Context, token, subject string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[token] = memoryRow{subject: subject, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[token]
	if !ok {
		return "", ErrTokenNotFound
	}
	delete(s.rows, token)

	if s.now().After(row.expiresAt) {
		return "", ErrTokenNotFound
	}
	return row.subject, nil
}

package statetoken

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps tokens in the generic verification_tokens table, shared
// with other short-lived verification flows.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Store backed by the verification_tokens table.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, token, subject string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO verification_tokens (token, subject, expires)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET subject = EXCLUDED.subject, expires = EXCLUDED.expires`,
		token, subject, expiresAt,
	)
	return err
}

// Consume deletes the row as part of the lookup so the single-use guarantee
// holds even under concurrent callbacks racing on the same token.
func (s *PostgresStore) Consume(ctx context.Context, token string) (string, error) {
	var subject string
	err := s.pool.QueryRow(ctx, `
		DELETE FROM verification_tokens
		WHERE token = $1 AND expires > now()
		RETURNING subject`,
		token,
	).Scan(&subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrTokenNotFound
		}
		return "", err
	}
	return subject, nil
}

// DeleteExpired removes stale rows; intended for a periodic maintenance call.
func (s *PostgresStore) DeleteExpired(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM verification_tokens WHERE expires <= now()`)
	return err
}

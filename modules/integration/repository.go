package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealersync/integrations/svc/oauth"
)

// Repository persists integrations and their dependent resources.
type Repository interface {
	// Upsert inserts or updates the row keyed on (userId, provider, type)
	// and returns the stored state. Last writer wins on concurrent calls.
	Upsert(ctx context.Context, in *Integration) (*Integration, error)

	// GetByID returns an integration or ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*Integration, error)

	// Find returns the integration for (userId, provider, type) or ErrNotFound.
	Find(ctx context.Context, userID uuid.UUID, provider string, t oauth.IntegrationType) (*Integration, error)

	// ListByUser returns all integrations owned by the user.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Integration, error)

	// Delete removes the matching integrations and all their dependent
	// resources, children first, in one transaction. Deleting nothing is
	// not an error. An empty types filter matches every type.
	Delete(ctx context.Context, userID uuid.UUID, provider string, types ...oauth.IntegrationType) error

	// Replace* swap the full set of dependent resources for one integration.
	ReplaceAdAccounts(ctx context.Context, integrationID uuid.UUID, accounts []AdAccount) error
	ReplacePages(ctx context.Context, integrationID uuid.UUID, pages []Page) error
	ReplaceCalendars(ctx context.Context, integrationID uuid.UUID, calendars []Calendar) error

	ListAdAccounts(ctx context.Context, integrationID uuid.UUID) ([]AdAccount, error)
	ListPages(ctx context.Context, integrationID uuid.UUID) ([]Page, error)
	ListCalendars(ctx context.Context, integrationID uuid.UUID) ([]Calendar, error)
}

// PostgresRepository is the pgx-backed Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a Repository on the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const integrationColumns = `id, user_id, provider, integration_type, provider_user_id, provider_email,
	access_token_encrypted, refresh_token_encrypted, status, created_at, updated_at`

func scanIntegration(row pgx.Row) (*Integration, error) {
	var in Integration
	err := row.Scan(
		&in.ID, &in.UserID, &in.Provider, &in.Type, &in.ProviderUserID, &in.ProviderEmail,
		&in.AccessTokenEncrypted, &in.RefreshTokenEncrypted, &in.Status, &in.CreatedAt, &in.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &in, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, in *Integration) (*Integration, error) {
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO integrations (
			id, user_id, provider, integration_type, provider_user_id, provider_email,
			access_token_encrypted, refresh_token_encrypted, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (user_id, provider, integration_type) DO UPDATE SET
			provider_user_id        = EXCLUDED.provider_user_id,
			provider_email          = EXCLUDED.provider_email,
			access_token_encrypted  = EXCLUDED.access_token_encrypted,
			refresh_token_encrypted = EXCLUDED.refresh_token_encrypted,
			status                  = EXCLUDED.status,
			updated_at              = now()
		RETURNING `+integrationColumns,
		id, in.UserID, in.Provider, in.Type, in.ProviderUserID, in.ProviderEmail,
		in.AccessTokenEncrypted, in.RefreshTokenEncrypted, in.Status,
	)
	return scanIntegration(row)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Integration, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+integrationColumns+` FROM integrations WHERE id = $1`, id)
	return scanIntegration(row)
}

func (r *PostgresRepository) Find(ctx context.Context, userID uuid.UUID, provider string, t oauth.IntegrationType) (*Integration, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+integrationColumns+` FROM integrations
		 WHERE user_id = $1 AND provider = $2 AND integration_type = $3`,
		userID, provider, t)
	return scanIntegration(row)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Integration, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+integrationColumns+` FROM integrations
		 WHERE user_id = $1 ORDER BY provider, integration_type`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Integration
	for rows.Next() {
		in, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *in)
	}
	return result, rows.Err()
}

// Delete removes children before parents inside one transaction so a partial
// failure can never leave an active integration with orphaned resources.
func (r *PostgresRepository) Delete(ctx context.Context, userID uuid.UUID, provider string, types ...oauth.IntegrationType) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `SELECT id FROM integrations WHERE user_id = $1 AND provider = $2`
	args := []any{userID, provider}
	if len(types) > 0 {
		typeStrings := make([]string, len(types))
		for i, t := range types {
			typeStrings[i] = string(t)
		}
		query += ` AND integration_type = ANY($3)`
		args = append(args, typeStrings)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return tx.Commit(ctx) // nothing to delete, still a success
	}

	for _, table := range []string{"ad_accounts", "pages", "calendars"} {
		if _, err := tx.Exec(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE integration_id = ANY($1)`, table), ids); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM integrations WHERE id = ANY($1)`, ids); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) ReplaceAdAccounts(ctx context.Context, integrationID uuid.UUID, accounts []AdAccount) error {
	return r.replace(ctx, integrationID, "ad_accounts", func(tx pgx.Tx) error {
		for _, a := range accounts {
			if _, err := tx.Exec(ctx,
				`INSERT INTO ad_accounts (integration_id, ad_account_id, name, status) VALUES ($1, $2, $3, $4)`,
				integrationID, a.AdAccountID, a.Name, a.Status); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRepository) ReplacePages(ctx context.Context, integrationID uuid.UUID, pages []Page) error {
	return r.replace(ctx, integrationID, "pages", func(tx pgx.Tx) error {
		for _, p := range pages {
			if _, err := tx.Exec(ctx,
				`INSERT INTO pages (integration_id, page_id, name) VALUES ($1, $2, $3)`,
				integrationID, p.PageID, p.Name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRepository) ReplaceCalendars(ctx context.Context, integrationID uuid.UUID, calendars []Calendar) error {
	return r.replace(ctx, integrationID, "calendars", func(tx pgx.Tx) error {
		for _, c := range calendars {
			if _, err := tx.Exec(ctx,
				`INSERT INTO calendars (integration_id, calendar_id, name) VALUES ($1, $2, $3)`,
				integrationID, c.CalendarID, c.Name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRepository) replace(ctx context.Context, integrationID uuid.UUID, table string, insert func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE integration_id = $1`, table), integrationID); err != nil {
		return err
	}
	if err := insert(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) ListAdAccounts(ctx context.Context, integrationID uuid.UUID) ([]AdAccount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT integration_id, ad_account_id, name, status FROM ad_accounts WHERE integration_id = $1 ORDER BY ad_account_id`,
		integrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AdAccount
	for rows.Next() {
		var a AdAccount
		if err := rows.Scan(&a.IntegrationID, &a.AdAccountID, &a.Name, &a.Status); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) ListPages(ctx context.Context, integrationID uuid.UUID) ([]Page, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT integration_id, page_id, name FROM pages WHERE integration_id = $1 ORDER BY page_id`,
		integrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.IntegrationID, &p.PageID, &p.Name); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) ListCalendars(ctx context.Context, integrationID uuid.UUID) ([]Calendar, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT integration_id, calendar_id, name FROM calendars WHERE integration_id = $1 ORDER BY calendar_id`,
		integrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Calendar
	for rows.Next() {
		var c Calendar
		if err := rows.Scan(&c.IntegrationID, &c.CalendarID, &c.Name); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

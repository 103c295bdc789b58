package statetoken_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dealersync/integrations/pkg/statetoken"
)

func TestStoreIssuerSingleUse(t *testing.T) {
	t.Parallel()
	issuer, err := statetoken.NewIssuer(testSecret)
	require.NoError(t, err)
	storeIssuer := statetoken.NewStoreIssuer(issuer, statetoken.NewMemoryStore())

	userID := uuid.New()
	token, _, err := storeIssuer.Issue(context.Background(), userID)
	require.NoError(t, err)

	got, err := storeIssuer.Validate(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, userID, got)

	// Second validation of the same token must fail: the row was consumed.
	_, err = storeIssuer.Validate(context.Background(), token)
	require.ErrorIs(t, err, statetoken.ErrStateInvalid)
}

func TestStoreIssuerRejectsUnpersistedToken(t *testing.T) {
	t.Parallel()
	issuer, err := statetoken.NewIssuer(testSecret)
	require.NoError(t, err)
	storeIssuer := statetoken.NewStoreIssuer(issuer, statetoken.NewMemoryStore())

	// Signed by the same issuer but never saved, e.g. replayed from another
	// deployment sharing the secret.
	token, _, err := issuer.Issue(context.Background(), uuid.New())
	require.NoError(t, err)

	_, err = storeIssuer.Validate(context.Background(), token)
	require.ErrorIs(t, err, statetoken.ErrStateInvalid)
}

func TestMemoryStoreExpiry(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	store := statetoken.NewMemoryStoreWithClock(func() time.Time { return now })

	require.NoError(t, store.Save(context.Background(), "tok", "subject", now.Add(time.Minute)))

	now = now.Add(2 * time.Minute)
	_, err := store.Consume(context.Background(), "tok")
	require.ErrorIs(t, err, statetoken.ErrTokenNotFound)
}

func TestRedisStore(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := statetoken.NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tok", "subject-1", time.Now().Add(time.Minute)))

	subject, err := store.Consume(ctx, "tok")
	require.NoError(t, err)
	require.Equal(t, "subject-1", subject)

	// GETDEL removed the key, so the token is single-use.
	_, err = store.Consume(ctx, "tok")
	require.ErrorIs(t, err, statetoken.ErrTokenNotFound)
}

func TestRedisStoreExpiry(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := statetoken.NewRedisStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "tok", "subject-1", time.Now().Add(time.Minute)))
	mr.FastForward(2 * time.Minute)

	_, err := store.Consume(ctx, "tok")
	require.ErrorIs(t, err, statetoken.ErrTokenNotFound)
}

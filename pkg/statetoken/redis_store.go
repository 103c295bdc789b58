package statetoken

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "statetoken:"

// RedisStore keeps tokens in Redis with a TTL matching the token expiry.
// GETDEL gives the single-use guarantee without an explicit delete round trip.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Store backed by the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, token, subject string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil // already expired, nothing to persist
	}
	return s.client.Set(ctx, redisKeyPrefix+token, subject, ttl).Err()
}

func (s *RedisStore) Consume(ctx context.Context, token string) (string, error) {
	subject, err := s.client.GetDel(ctx, redisKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenNotFound
		}
		return "", err
	}
	return subject, nil
}

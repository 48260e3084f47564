package claim

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const consumedKeyPrefix = "claim:jti:"

// RedisConsumedStore is the distributed consumed-token list. The terminal
// state transition already makes a verified ticket single-use; this store
// closes the window where a replayed token races the status write across
// instances.
type RedisConsumedStore struct {
	client *redis.Client
}

func NewRedisConsumedStore(client *redis.Client) *RedisConsumedStore {
	return &RedisConsumedStore{client: client}
}

// MarkConsumed records a jti until its natural expiry.
func (s *RedisConsumedStore) MarkConsumed(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return s.client.Set(ctx, consumedKeyPrefix+jti, "1", ttl).Err()
}

// IsConsumed checks whether a jti was already used. A missing key means not
// consumed or already past expiry; expiry is rechecked on the token itself.
func (s *RedisConsumedStore) IsConsumed(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, err := s.client.Get(ctx, consumedKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

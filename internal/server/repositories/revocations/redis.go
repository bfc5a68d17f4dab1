package revocations

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "revoked:"
	userPrefix = "revoked-user:"
)

// RedisStore keeps one key per revoked jti with a TTL matching the
// token's remaining lifetime, so Redis drops entries on its own.
type RedisStore struct {
	client *redis.Client
	clock  clockwork.Clock
}

// NewRedisStore connects to rawURL (redis://...) and pings it.
func NewRedisStore(ctx context.Context, rawURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStoreWithClient(client, nil), nil
}

func NewRedisStoreWithClient(client *redis.Client, clock clockwork.Clock) *RedisStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RedisStore{client: client, clock: clock}
}

func (s *RedisStore) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(s.clock.Now())
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, keyPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}

// RevokeUser stores the cutoff as Unix seconds, the precision of the iat
// claim it is compared with.
func (s *RedisStore) RevokeUser(ctx context.Context, userID int64, issuedBefore, until time.Time) error {
	ttl := until.Sub(s.clock.Now())
	if ttl <= 0 {
		return nil
	}
	key := userPrefix + strconv.FormatInt(userID, 10)
	if err := s.client.Set(ctx, key, issuedBefore.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (s *RedisStore) UserCutoff(ctx context.Context, userID int64) (time.Time, error) {
	sec, err := s.client.Get(ctx, userPrefix+strconv.FormatInt(userID, 10)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("redis error: %w", err)
	}
	return time.Unix(sec, 0), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

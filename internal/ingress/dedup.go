package ingress

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// InflightLocker is the atomic set-if-absent primitive backing the in-flight
// half of deduplication. Referenced by interface so the backing store can be
// swapped in tests.
type InflightLocker interface {
	// Acquire returns true when the key was absent and is now held.
	Acquire(ctx context.Context, key string) (bool, error)
	// Release deletes the key; safe to call on an unheld key.
	Release(ctx context.Context, key string) error
}

// RedisInflightLocker implements InflightLocker with SET NX EX. A single
// atomic op rather than a lock, so no state is held across the slow DB write.
type RedisInflightLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisInflightLocker creates a locker with the given key TTL.
func NewRedisInflightLocker(client redis.UniversalClient, ttl time.Duration) *RedisInflightLocker {
	return &RedisInflightLocker{client: client, ttl: ttl}
}

func (l *RedisInflightLocker) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := l.client.SetNX(ctx, inflightKey(key), "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup acquire: %w", err)
	}
	return ok, nil
}

func (l *RedisInflightLocker) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, inflightKey(key)).Err(); err != nil {
		return fmt.Errorf("dedup release: %w", err)
	}
	return nil
}

func inflightKey(canonicalURL string) string {
	return "dedup:inflight:" + canonicalURL
}

package abort

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTimeout bounds each Redis round trip made by Requested.
const DefaultRedisTimeout = 500 * time.Millisecond

// Redis is a Source triggered by the existence of a key. It lets an operator
// abort a run from another host with `pipa abort` or a plain SET.
type Redis struct {
	client  redis.Cmdable
	key     string
	timeout time.Duration

	triggered atomic.Bool
	mu        sync.Mutex
	lastErr   error
}

// NewRedis creates a Redis source watching key.
func NewRedis(client redis.Cmdable, key string) *Redis {
	return &Redis{client: client, key: key, timeout: DefaultRedisTimeout}
}

// Key returns the watched key.
func (r *Redis) Key() string {
	return r.key
}

// Requested reports whether the key exists. Once seen, the answer stays
// true. Connection errors count as "not requested" and are kept for Err.
func (r *Redis) Requested() bool {
	if r.triggered.Load() {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	n, err := r.client.Exists(ctx, r.key).Result()
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
	if err != nil || n == 0 {
		return false
	}

	r.triggered.Store(true)
	return true
}

// Err returns the error of the most recent check, if any.
func (r *Redis) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Request sets the key so every run watching it aborts. The key expires
// after ttl; zero keeps it until Clear.
func (r *Redis) Request(ctx context.Context, ttl time.Duration) error {
	return r.client.Set(ctx, r.key, time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

// Clear deletes the key. Runs call it before starting so a stale request
// does not abort them immediately.
func (r *Redis) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

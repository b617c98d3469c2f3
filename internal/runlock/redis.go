// Package runlock serializes reconciliation runs against one schema across
// processes with a Redis lease.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another run holds the lease
var ErrLocked = errors.New("another run holds the lock")

// ErrNotHeld is returned when releasing a lease that expired or was taken over
var ErrNotHeld = errors.New("lock is no longer held")

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLocker hands out leases stored as Redis keys with a TTL
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisLockerConfig holds configuration for the Redis locker
type RedisLockerConfig struct {
	// Client is the Redis client to use
	Client *redis.Client
	// TTL bounds how long a crashed run can block others
	TTL time.Duration
	// Prefix is the key prefix for Redis keys
	Prefix string
}

// DefaultRedisLockerConfig returns a default configuration with a five minute TTL
func DefaultRedisLockerConfig(client *redis.Client) RedisLockerConfig {
	return RedisLockerConfig{
		Client: client,
		TTL:    5 * time.Minute,
		Prefix: "dbdesc:lock:",
	}
}

// NewRedisLocker creates a locker with custom configuration
func NewRedisLocker(config RedisLockerConfig) (*RedisLocker, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.TTL <= 0 {
		return nil, errors.New("ttl must be greater than 0")
	}

	return &RedisLocker{
		client: config.Client,
		ttl:    config.TTL,
		prefix: config.Prefix,
	}, nil
}

// Lease is a held lock
type Lease struct {
	locker *RedisLocker
	key    string
	token  string
}

// Key returns the Redis key of the lease
func (l *Lease) Key() string {
	return l.key
}

// Acquire takes the lock for name, failing with ErrLocked if it is held
func (r *RedisLocker) Acquire(ctx context.Context, name string) (*Lease, error) {
	key := r.prefix + name
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrLocked)
	}

	return &Lease{locker: r, key: key, token: token}, nil
}

// Release gives the lock back. Releasing twice returns ErrNotHeld.
func (l *Lease) Release(ctx context.Context) error {
	deleted, err := releaseScript.Run(ctx, l.locker.client, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if deleted == 0 {
		return fmt.Errorf("%s: %w", l.key, ErrNotHeld)
	}
	return nil
}

// Name builds the lock name of a schema on a database
func Name(dialect, database, schema string) string {
	return dialect + ":" + database + ":" + schema
}

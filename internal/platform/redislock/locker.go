// Package redislock provides a sweep.Locker backed by Redis so that only one
// replica runs the expiry sweep at a time.
package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasktracker-api/internal/sweep"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token, so a lease
// that expired and was taken by another instance is left alone.
const releaseScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`

// Client is the subset of *redis.Client the locker uses.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Locker implements sweep.Locker with SET NX PX and a compare-and-delete release.
type Locker struct {
	client    Client
	keyPrefix string
	newToken  func() string
}

var _ sweep.Locker = (*Locker)(nil)

// New creates a Locker. keyPrefix namespaces lease keys.
func New(client Client, keyPrefix string) *Locker {
	return &Locker{client: client, keyPrefix: keyPrefix, newToken: uuid.NewString}
}

// NewClient builds a go-redis client and verifies connectivity.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// TryLock acquires the lease or returns sweep.ErrLockHeld.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (sweep.UnlockFunc, error) {
	redisKey := l.keyPrefix + key
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock acquire: %w", err)
	}
	if !ok {
		return nil, sweep.ErrLockHeld
	}

	return func(ctx context.Context) error {
		if err := l.client.Eval(ctx, releaseScript, []string{redisKey}, token).Err(); err != nil {
			return fmt.Errorf("redis lock release: %w", err)
		}
		return nil
	}, nil
}

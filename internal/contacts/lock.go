package contacts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix  = "ghl:contact-submit:"
	defaultLockTTL = 30 * time.Second
)

// SubmissionLock serialises reconciliation for one email address. Acquire
// returns ErrSubmissionInFlight when another submission holds the lock.
type SubmissionLock interface {
	Acquire(ctx context.Context, email string) (release func(), err error)
}

// NoopLock never blocks. Concurrent submissions for one email may both create
// a contact.
type NoopLock struct{}

func (NoopLock) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another request is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a SET NX lock keyed by the lowercase email.
type RedisLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLock creates a Redis-backed submission lock.
func NewRedisLock(client *redis.Client, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, ttl: ttl}
}

func (l *RedisLock) Acquire(ctx context.Context, email string) (func(), error) {
	key := lockKey(email)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("contacts: acquire submission lock: %w", err)
	}
	if !ok {
		return nil, ErrSubmissionInFlight
	}

	return func() {
		// The request context may already be done when the lock is released.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}, nil
}

func lockKey(email string) string {
	return lockKeyPrefix + strings.ToLower(strings.TrimSpace(email))
}

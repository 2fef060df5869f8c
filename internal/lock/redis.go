package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// releaseScript deletes a key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every server process using the same Redis.
// Keys expire after ttl so a crashed holder cannot block a court forever.
type Redis struct {
	client     redis.UniversalClient
	ttl        time.Duration
	retryDelay time.Duration
}

func NewRedis(client redis.UniversalClient, ttl, retryDelay time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, retryDelay: retryDelay}
}

func (r *Redis) Acquire(ctx context.Context, keys []string) (func(), error) {
	keys = sortedUnique(keys)
	token := uuid.NewString()
	held := make([]string, 0, len(keys))

	for _, key := range keys {
		if err := r.acquireOne(ctx, key, token); err != nil {
			r.releaseAll(held, token)
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() { r.releaseAll(held, token) })
	}, nil
}

func (r *Redis) acquireOne(ctx context.Context, key, token string) error {
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return nil
		}

		timer := time.NewTimer(r.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *Redis) releaseAll(keys []string, token string) {
	// Release with a fresh context: the caller's may already be cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := len(keys) - 1; i >= 0; i-- {
		err := releaseScript.Run(ctx, r.client, []string{keys[i]}, token).Err()
		if err != nil && !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("lock_key", keys[i]).Msg("Failed to release court lock")
		}
	}
}

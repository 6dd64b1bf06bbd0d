package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker hands out exclusive locks that stay held while the holder runs.
// The returned context is cancelled if the lock is lost before release.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (lockCtx context.Context, release func(), acquired bool, err error)
}

// Delete the key only while it still holds our token, so an expired lock
// taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// RedisLocker is a SET NX lock whose TTL is renewed every ttl/3 while held,
// so a job may outlive the configured TTL.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (context.Context, func(), bool, error) {
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !acquired {
		return nil, nil, false, nil
	}

	lockCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		keepAlive(lockCtx, ttl, func(ctx context.Context) (bool, error) {
			extended, err := extendScript.Run(ctx, l.client, []string{key}, token, ttl.Milliseconds()).Int()
			return extended == 1, err
		})
	}()

	release := func() {
		cancel()
		<-done

		releaseCtx, cancelRelease := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelRelease()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}
	return lockCtx, release, true, nil
}

// keepAlive calls extend every ttl/3 until ctx is done. It returns early once
// the lock is reported gone, or when no extension has succeeded for a whole
// ttl, since the key has expired by then.
func keepAlive(ctx context.Context, ttl time.Duration, extend func(ctx context.Context) (bool, error)) {
	interval := ttl / 3
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastExtended := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			extendCtx, cancel := context.WithTimeout(ctx, interval)
			held, err := extend(extendCtx)
			cancel()

			switch {
			case err == nil && !held:
				return
			case err == nil:
				lastExtended = time.Now()
			case time.Since(lastExtended) >= ttl:
				return
			}
		}
	}
}

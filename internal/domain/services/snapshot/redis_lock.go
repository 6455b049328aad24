package snapshot

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	rebuildLockKey = "itradebook:rebuild:lock"
	rebuildLockTTL = 30 * time.Minute
)

// RedisRebuildLock implements RebuildLock on a shared Redis instance so that
// at most one process in the deployment runs a rebuild at a time. The TTL
// frees the lock if the holder dies mid-rebuild.
type RedisRebuildLock struct {
	client redis.UniversalClient
}

func NewRedisRebuildLock(client redis.UniversalClient) *RedisRebuildLock {
	return &RedisRebuildLock{client: client}
}

func (l *RedisRebuildLock) Acquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, rebuildLockKey, time.Now().Format(time.RFC3339), rebuildLockTTL).Result()
}

func (l *RedisRebuildLock) Release(ctx context.Context) {
	l.client.Del(ctx, rebuildLockKey)
}

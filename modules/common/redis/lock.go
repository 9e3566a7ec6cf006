package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another orchestrator owns the batch lease.
var ErrLockHeld = errors.New("batch is already being processed")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// BatchLock is a lease guaranteeing at most one orchestrator per batch id.
type BatchLock struct {
	rdb   *redis.Client
	key   string
	token string
}

// LockKey - batch lease key
func LockKey(batchID string) string {
	return "bulk:lock:" + batchID
}

// AcquireBatchLock - SET NX로 batch lease 획득
func AcquireBatchLock(ctx context.Context, rdb *redis.Client, batchID string, ttl time.Duration) (*BatchLock, error) {
	key := LockKey(batchID)
	token := uuid.NewString()

	ok, err := rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", batchID, ErrLockHeld)
	}

	log.Printf("🔒 [Lock] Acquired %s (ttl: %s)", key, ttl)
	return &BatchLock{rdb: rdb, key: key, token: token}, nil
}

// Release - 자신의 token일 때만 lease 삭제
func (l *BatchLock) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	deleted, err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if deleted == 0 {
		log.Printf("⚠️  [Lock] %s expired or taken over before release", l.key)
		return nil
	}
	log.Printf("🔓 [Lock] Released %s", l.key)
	return nil
}

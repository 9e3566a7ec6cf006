package bulk

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	redisClient "quel-catalog-server/modules/common/redis"
)

// Runner runs batches under the per-batch Redis lease.
type Runner struct {
	service *Service
	rdb     *redis.Client
	lockTTL time.Duration
}

// NewRunner - lease 기반 Runner 생성. rdb가 nil이면 lease 없이 실행
func NewRunner(service *Service, rdb *redis.Client, lockTTL time.Duration) *Runner {
	if lockTTL <= 0 {
		lockTTL = time.Hour
	}
	return &Runner{service: service, rdb: rdb, lockTTL: lockTTL}
}

// Service returns the wrapped pipeline.
func (r *Runner) Service() *Service {
	return r.service
}

// Run processes one batch while holding its lease. It returns
// redisClient.ErrLockHeld when another run owns the batch.
func (r *Runner) Run(ctx context.Context, batchID, merchantID string) (*Result, error) {
	if r.rdb == nil {
		log.Printf("⚠️  [Bulk] Running batch %s without a Redis lease", batchID)
		return r.service.Process(ctx, batchID, merchantID)
	}

	lock, err := redisClient.AcquireBatchLock(ctx, r.rdb, batchID, r.lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			log.Printf("⚠️  [Bulk] %v", err)
		}
	}()

	return r.service.Process(ctx, batchID, merchantID)
}

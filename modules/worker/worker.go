package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quel-catalog-server/modules/bulk"
	redisClient "quel-catalog-server/modules/common/redis"
)

// pollTimeout bounds each BRPOP so shutdown is noticed.
const pollTimeout = 5 * time.Second

// Worker - bulk queue 소비자
type Worker struct {
	rdb    *redis.Client
	runner *bulk.Runner
	jobs   sync.WaitGroup
}

// NewWorker - Worker 생성
func NewWorker(rdb *redis.Client, runner *bulk.Runner) *Worker {
	return &Worker{rdb: rdb, runner: runner}
}

// Start - Redis Queue 감시. ctx 종료 후 진행 중인 job이 모두 끝나면 반환
func (w *Worker) Start(ctx context.Context) {
	log.Printf("👀 Watching queue: %s", redisClient.QueueKey)

	for {
		if ctx.Err() != nil {
			log.Println("🛑 Worker stopping, waiting for in-flight jobs...")
			w.jobs.Wait()
			log.Println("🛑 Worker stopped")
			return
		}

		job, err := redisClient.Dequeue(ctx, w.rdb, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("❌ Redis BRPOP error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}
		if job == nil {
			continue
		}

		log.Printf("🎯 Received bulk job: batch %s (merchant: %s)", job.BatchID, job.MerchantID)

		// batch 별로 비동기 처리 (batch 간 동시 실행은 lease로 보호)
		w.jobs.Add(1)
		go func(job redisClient.Job) {
			defer w.jobs.Done()
			w.processJob(ctx, job)
		}(*job)
	}
}

func (w *Worker) processJob(ctx context.Context, job redisClient.Job) {
	result, err := w.runner.Run(ctx, job.BatchID, job.MerchantID)
	switch {
	case errors.Is(err, redisClient.ErrLockHeld):
		log.Printf("⏭️  Batch %s is already running elsewhere, skipping", job.BatchID)
	case errors.Is(err, bulk.ErrBatchInterrupted):
		log.Printf("⏸️  Batch %s interrupted by shutdown, re-enqueue to resume", job.BatchID)
	case errors.Is(err, bulk.ErrBatchCompleted), errors.Is(err, bulk.ErrBatchFailed), errors.Is(err, bulk.ErrBatchPaused):
		log.Printf("⏭️  Batch %s not processed: %v", job.BatchID, err)
	case err != nil:
		log.Printf("❌ Bulk job %s failed: %v", job.BatchID, err)
	case result.Success:
		log.Printf("✅ Bulk job %s completed (%d products, %d errors)", job.BatchID, result.ProductsCreated, len(result.Errors))
	default:
		log.Printf("❌ Bulk job %s ended as failed (%d errors)", job.BatchID, len(result.Errors))
	}
}

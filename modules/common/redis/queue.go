package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// QueueKey is the list the HTTP layer pushes batch jobs onto.
const QueueKey = "bulk:queue"

// Job - bulk queue payload
type Job struct {
	BatchID    string `json:"batch_id" validate:"required"`
	MerchantID string `json:"merchant_id" validate:"required"`
}

// Enqueue - LPUSH 후 현재 queue 길이 반환
func Enqueue(ctx context.Context, rdb *redis.Client, job Job) (int64, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return 0, fmt.Errorf("failed to encode job: %w", err)
	}

	if err := rdb.LPush(ctx, QueueKey, payload).Err(); err != nil {
		return 0, fmt.Errorf("redis LPUSH failed: %w", err)
	}

	// Queue 길이 조회
	queueLen, _ := rdb.LLen(ctx, QueueKey).Result()
	return queueLen, nil
}

// Dequeue - BRPOP으로 다음 job 대기. timeout 내에 job이 없으면 (nil, nil)
func Dequeue(ctx context.Context, rdb *redis.Client, timeout time.Duration) (*Job, error) {
	result, err := rdb.BRPop(ctx, timeout, QueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// result[0]은 queue 이름, result[1]이 payload
	return DecodeJob(result[1])
}

// DecodeJob parses a queue payload.
func DecodeJob(payload string) (*Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, fmt.Errorf("invalid job payload %q: %w", payload, err)
	}
	if job.BatchID == "" || job.MerchantID == "" {
		return nil, fmt.Errorf("invalid job payload %q: batch_id and merchant_id are required", payload)
	}
	return &job, nil
}

package retry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// DefaultSchedule - 재시도 간 대기 시간 (1s, 2s, 4s)
var DefaultSchedule = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// Retrier wraps remote calls with a fixed backoff schedule. A call is tried
// once, then once more after each delay in Schedule while the error stays
// retryable. A zero Retrier uses DefaultSchedule.
type Retrier struct {
	Schedule []time.Duration
	// Timeout bounds each attempt; zero means no per-attempt deadline.
	Timeout time.Duration
	// Name is only used in log lines.
	Name string

	sleep func(ctx context.Context, d time.Duration) error
}

// New - Retrier 생성
func New(name string, schedule []time.Duration, timeout time.Duration) *Retrier {
	if schedule == nil {
		schedule = DefaultSchedule
	}
	return &Retrier{Schedule: schedule, Timeout: timeout, Name: name}
}

// Do runs op through the retrier and returns its result or the last error.
func Do[T any](ctx context.Context, r *Retrier, op func(ctx context.Context) (T, error)) (T, error) {
	if r == nil {
		r = &Retrier{}
	}
	schedule := r.Schedule
	if schedule == nil {
		schedule = DefaultSchedule
	}
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var zero T
	var lastErr error
	maxAttempts := len(schedule) + 1

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := runAttempt(ctx, r.Timeout, op)
		if err == nil {
			if attempt > 1 {
				log.Printf("✅ [Retry:%s] Success on attempt %d/%d", r.Name, attempt, maxAttempts)
			}
			return result, nil
		}
		lastErr = err

		// 부모 context 취소는 재시도하지 않음
		if ctx.Err() != nil {
			return zero, lastErr
		}

		if !IsRetryable(err) {
			log.Printf("❌ [Retry:%s] Non-retryable error on attempt %d: %v", r.Name, attempt, err)
			return zero, lastErr
		}

		if attempt == maxAttempts {
			break
		}

		delay := schedule[attempt-1]
		log.Printf("⚠️  [Retry:%s] Retryable error on attempt %d/%d, waiting %s: %v", r.Name, attempt, maxAttempts, delay, err)
		if err := sleep(ctx, delay); err != nil {
			return zero, lastErr
		}
	}

	log.Printf("❌ [Retry:%s] Exhausted %d attempts: %v", r.Name, maxAttempts, lastErr)
	return zero, lastErr
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}

// IsRetryable reports whether err looks like a transient service-side
// condition: transport timeout, or HTTP 429/500/503 equivalents.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return isRetryableStatus(apiErr.Code)
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return isRetryableStatus(gErr.Code)
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return isRetryableStatus(statusErr.Code)
	}

	return hasRetryableSignature(err.Error())
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		return true
	}
	return false
}

var retryableSignatures = []string{
	"429",
	"500",
	"503",
	"rate limit",
	"quota",
	"resource_exhausted",
	"unavailable",
	"internal error",
	"timeout",
	"timed out",
	"deadline exceeded",
}

func hasRetryableSignature(msg string) bool {
	lower := strings.ToLower(msg)
	for _, sig := range retryableSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// StatusError carries an HTTP status from a plain REST call (storage uploads,
// image downloads) so it can be classified like an API error.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

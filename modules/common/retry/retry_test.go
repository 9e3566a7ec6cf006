package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// recordingSleep captures requested delays without actually sleeping.
type recordingSleep struct {
	delays []time.Duration
}

func (s *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newTestRetrier(schedule []time.Duration) (*Retrier, *recordingSleep) {
	rec := &recordingSleep{}
	r := New("test", schedule, 0)
	r.sleep = rec.sleep
	return r, rec
}

func TestDo_SucceedsAfterRetryableErrors(t *testing.T) {
	r, rec := newTestRetrier(DefaultSchedule)

	calls := 0
	got, err := Do(context.Background(), r, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &StatusError{Code: 503, Body: "overloaded"}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
}

func TestDo_ExhaustsScheduleAndReturnsLastError(t *testing.T) {
	r, rec := newTestRetrier(DefaultSchedule)

	calls := 0
	_, err := Do(context.Background(), r, func(ctx context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("attempt %d: 429 rate limit", calls)
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Contains(t, err.Error(), "attempt 4")
	assert.Equal(t, DefaultSchedule, rec.delays)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	r, rec := newTestRetrier(DefaultSchedule)

	calls := 0
	_, err := Do(context.Background(), r, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("invalid argument: prompt is empty")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
}

func TestDo_ParentCancellationIsNotRetried(t *testing.T) {
	r, _ := newTestRetrier(DefaultSchedule)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Do(ctx, r, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, &StatusError{Code: 500}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_PerAttemptTimeoutIsRetryable(t *testing.T) {
	r, _ := newTestRetrier([]time.Duration{0})
	r.Timeout = 10 * time.Millisecond

	calls := 0
	got, err := Do(context.Background(), r, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "second", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "second", got)
	assert.Equal(t, 2, calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "genai 429", err: genai.APIError{Code: 429, Message: "quota"}, want: true},
		{name: "genai 400", err: genai.APIError{Code: 400, Message: "bad request"}, want: false},
		{name: "googleapi 503", err: &googleapi.Error{Code: 503}, want: true},
		{name: "googleapi 404", err: &googleapi.Error{Code: 404}, want: false},
		{name: "wrapped status 500", err: fmt.Errorf("upload: %w", &StatusError{Code: 500}), want: true},
		{name: "status 403", err: &StatusError{Code: 403, Body: "forbidden"}, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "message signature", err: errors.New("RESOURCE_EXHAUSTED: try later"), want: true},
		{name: "plain", err: errors.New("no image data in response"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

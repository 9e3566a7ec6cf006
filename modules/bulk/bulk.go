package bulk

import (
	"context"
	"errors"
	"time"

	"quel-catalog-server/modules/common/config"
	"quel-catalog-server/modules/common/gemini"
	"quel-catalog-server/modules/common/model"
	"quel-catalog-server/modules/common/retry"
)

var (
	// ErrBatchNotFound is returned when the batch does not exist for the merchant.
	ErrBatchNotFound = errors.New("batch not found")
	// ErrBatchCompleted is returned when re-invoking an already completed batch.
	ErrBatchCompleted = errors.New("batch already completed")
	// ErrBatchFailed is returned when re-invoking a batch that already failed.
	ErrBatchFailed = errors.New("batch already failed")
	// ErrBatchPaused is returned when the batch was paused by an operator.
	ErrBatchPaused = errors.New("batch is paused")
	// ErrBatchInterrupted is returned when ctx ends mid-run. The batch keeps its
	// in-progress status so it can be invoked again.
	ErrBatchInterrupted = errors.New("batch run interrupted")
)

// Store is the persistence surface the pipeline needs. All calls are scoped to
// an explicit merchant id.
type Store interface {
	GetBatch(ctx context.Context, merchantID, batchID string) (*model.Batch, error)
	UpdateBatch(ctx context.Context, merchantID, batchID string, fields map[string]interface{}) error
	Insert(ctx context.Context, table string, record interface{}) (string, error)
	UpdateWhere(ctx context.Context, table string, match map[string]string, fields map[string]interface{}) error
}

// VisionModel answers a prompt about a set of images with free-form text.
type VisionModel interface {
	AnalyzeImages(ctx context.Context, prompt string, imageURLs []string) (string, error)
}

// ImageGenerator produces an edited image and returns its public URL.
type ImageGenerator interface {
	GenerateVariant(ctx context.Context, req gemini.VariantRequest) (string, error)
}

// TextModel answers a prompt with free-form text.
type TextModel interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Options - 파이프라인 튜닝 값
type Options struct {
	Concurrency int
	ChunkSize   int
	AspectRatio string
	Retrier     *retry.Retrier
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		Concurrency: 3,
		ChunkSize:   10,
		AspectRatio: "1:1",
		Retrier:     retry.New("gemini", retry.DefaultSchedule, 90*time.Second),
	}
}

// OptionsFromConfig - config 값으로 Options 생성
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg.ImageConcurrency > 0 {
		opts.Concurrency = cfg.ImageConcurrency
	}
	if cfg.GroupChunkSize > 0 {
		opts.ChunkSize = cfg.GroupChunkSize
	}
	opts.Retrier = retry.New("gemini", cfg.RetrySchedule, cfg.GeminiCallTimeout)
	return opts
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = d.ChunkSize
	}
	if o.AspectRatio == "" {
		o.AspectRatio = d.AspectRatio
	}
	if o.Retrier == nil {
		o.Retrier = d.Retrier
	}
	return o
}

// Result - 한 번의 batch 실행 결과
type Result struct {
	Success         bool                 `json:"success"`
	ProductGroups   []model.ProductGroup `json:"productGroups"`
	Errors          []model.ErrorEntry   `json:"errors"`
	ProductsCreated int                  `json:"productsCreated"`
}

package bulk

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"quel-catalog-server/modules/common/database"
	"quel-catalog-server/modules/common/model"
)

// Service drives one batch through grouping, enrichment and draft creation.
type Service struct {
	store       Store
	grouper     *Grouper
	enricher    *Enricher
	synthesizer *Synthesizer
	now         func() time.Time
}

// NewService - bulk 파이프라인 서비스 생성
func NewService(store Store, vision VisionModel, images ImageGenerator, text TextModel, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		store:       store,
		grouper:     NewGrouper(vision, opts),
		enricher:    NewEnricher(images, store, opts),
		synthesizer: NewSynthesizer(text, store, opts),
		now:         time.Now,
	}
}

// GetBatch returns the batch snapshot for a merchant.
func (s *Service) GetBatch(ctx context.Context, batchID, merchantID string) (*model.Batch, error) {
	batch, err := s.store.GetBatch(ctx, merchantID, batchID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", batchID, ErrBatchNotFound)
		}
		return nil, err
	}
	return batch, nil
}

// Process runs the batch to a terminal status. An error is returned when the
// batch cannot be loaded, must not be processed, or ctx ends mid-run
// (ErrBatchInterrupted, status left as is). Every other failure is recorded on
// the batch and reported through Result.
func (s *Service) Process(ctx context.Context, batchID, merchantID string) (*Result, error) {
	batch, err := s.GetBatch(ctx, batchID, merchantID)
	if err != nil {
		return nil, err
	}

	switch batch.Status {
	case model.StatusCompleted:
		return nil, fmt.Errorf("%s: %w", batchID, ErrBatchCompleted)
	case model.StatusFailed:
		return nil, fmt.Errorf("%s: %w", batchID, ErrBatchFailed)
	case model.StatusPaused:
		return nil, fmt.Errorf("%s: %w", batchID, ErrBatchPaused)
	}

	log.Printf("🚀 [Bulk] Processing batch %s (merchant: %s, images: %d, status: %s)",
		batch.ID, merchantID, len(batch.SourceURLs), batch.Status)

	run := &batchRun{service: s, batch: batch, merchantID: merchantID, stage: batch.Status}
	result, err := run.execute(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// shutdown/cancel: 상태를 유지해 재실행 가능하게 둠
			log.Printf("⏸️  [Bulk] Batch %s interrupted in %s, left for re-invocation: %v", batchID, run.stage, err)
			return nil, fmt.Errorf("%s: %w: %w", batchID, ErrBatchInterrupted, context.Cause(ctx))
		}
		return run.fail(ctx, err), nil
	}
	return result, nil
}

// batchRun holds the state of one orchestrator invocation.
type batchRun struct {
	service    *Service
	batch      *model.Batch
	merchantID string

	stage    string
	groups   []model.ProductGroup
	progress *progressWriter
}

func (r *batchRun) update(ctx context.Context, fields map[string]interface{}) error {
	if status, ok := fields["status"].(string); ok {
		r.stage = status
	}
	return r.service.store.UpdateBatch(ctx, r.merchantID, r.batch.ID, fields)
}

// execute runs every stage. Panics are turned into errors so the batch still
// reaches a terminal status.
func (r *batchRun) execute(ctx context.Context) (result *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("❌ [Bulk] Panic while processing batch %s: %v\n%s", r.batch.ID, rec, debug.Stack())
			err = fmt.Errorf("panic: %v", rec)
		}
		if r.progress != nil {
			if closeErr := r.progress.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}
	}()

	s := r.service
	sourceURLs := r.batch.SourceURLs
	total := len(sourceURLs)

	// 1. analyzing
	err = r.update(ctx, map[string]interface{}{
		"status":          model.StatusAnalyzing,
		"current_product": fmt.Sprintf("Analyzing %d images...", total),
		"total_images":    total,
		"processed_count": 0,
		"failed_count":    0,
		"error_log":       []model.ErrorEntry{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start batch: %w", err)
	}

	// 2. grouping
	r.groups = s.grouper.Group(ctx, sourceURLs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err = r.update(ctx, map[string]interface{}{
		"status":         model.StatusProcessing,
		"product_groups": r.groups,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save product groups: %w", err)
	}

	// 3. enrichment, group by group
	r.progress = newProgressWriter(ctx, s.store, r.merchantID, r.batch.ID)
	for i := range r.groups {
		group := r.groups[i]
		r.progress.Label(fmt.Sprintf("Processing: %s (%d/%d)", group.Name, i+1, len(r.groups)))

		processed, err := s.enricher.Enrich(ctx, EnrichRequest{
			MerchantID: r.merchantID,
			BatchID:    r.batch.ID,
			Group:      group,
			Config:     r.batch.Config,
			OnProgress: r.progress.Processed,
			OnError:    r.progress.Failed,
		})
		r.groups[i].ProcessedImages = processed
		if err != nil {
			return nil, err
		}
		if err := r.progress.Err(); err != nil {
			return nil, fmt.Errorf("failed to save progress: %w", err)
		}
	}

	if err := r.progress.Close(); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	processedCount, errorLog := r.progress.Counts()

	// 4. draft products
	productsCreated := 0
	if r.batch.Config.CreateProducts {
		if err := r.update(ctx, map[string]interface{}{"current_product": "Creating draft products..."}); err != nil {
			return nil, fmt.Errorf("failed to update progress label: %w", err)
		}
		productsCreated = s.synthesizer.SynthesizeAll(ctx, r.merchantID, r.batch.ID, r.groups)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	// 5. completed
	err = r.update(ctx, map[string]interface{}{
		"status":          model.StatusCompleted,
		"completed_at":    s.now().UTC(),
		"current_product": nil,
		"product_groups":  r.groups,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to complete batch: %w", err)
	}

	log.Printf("✅ [Bulk] Batch %s completed: %d groups, %d/%d images processed, %d failed, %d products created",
		r.batch.ID, len(r.groups), processedCount, total, len(errorLog), productsCreated)

	return &Result{
		Success:         true,
		ProductGroups:   r.groups,
		Errors:          errorLog,
		ProductsCreated: productsCreated,
	}, nil
}

// fail records a batch-level error and moves the batch to failed. The write
// uses a context detached from cancellation so an aborted run is still
// recorded.
func (r *batchRun) fail(ctx context.Context, cause error) *Result {
	log.Printf("❌ [Bulk] Batch %s failed: %v", r.batch.ID, cause)

	processed := 0
	errorLog := []model.ErrorEntry{}
	if r.progress != nil {
		processed, errorLog = r.progress.Counts()
	}
	errorLog = append(errorLog, model.ErrorEntry{Image: model.BatchErrorImage, Error: cause.Error()})

	fields := map[string]interface{}{
		"status":          model.StatusFailed,
		"error_log":       errorLog,
		"failed_count":    boundedFailedCount(len(errorLog), processed, len(r.batch.SourceURLs)),
		"current_product": nil,
	}
	if r.groups != nil {
		fields["product_groups"] = r.groups
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := r.update(writeCtx, fields); err != nil {
		log.Printf("❌ [Bulk] Could not mark batch %s as failed: %v", r.batch.ID, err)
	}

	return &Result{
		Success:       false,
		ProductGroups: r.groups,
		Errors:        errorLog,
	}
}

// boundedFailedCount mirrors the error log length but keeps
// processed + failed <= total; the "batch" entry is not an image.
func boundedFailedCount(logLen, processed, total int) int {
	if limit := total - processed; logLen > limit {
		if limit < 0 {
			return 0
		}
		return limit
	}
	return logLen
}

package bulk

import (
	"context"
	"fmt"
	"log"
	"path"
	"sync"

	"quel-catalog-server/modules/common/gemini"
	"quel-catalog-server/modules/common/model"
	"quel-catalog-server/modules/common/retry"
)

// EnrichRequest describes one group to enrich.
type EnrichRequest struct {
	MerchantID string
	BatchID    string
	Group      model.ProductGroup
	Config     model.BatchConfig
	// OnProgress is called with 1 each time an image finishes successfully.
	OnProgress func(n int)
	// OnError is called once for each image that fails.
	OnError func(entry model.ErrorEntry)
}

// Enricher generates image variants for a group with a fixed-size worker pool.
type Enricher struct {
	images      ImageGenerator
	store       Store
	retrier     *retry.Retrier
	concurrency int
	aspectRatio string
}

// NewEnricher - Enricher 생성
func NewEnricher(images ImageGenerator, store Store, opts Options) *Enricher {
	opts = opts.withDefaults()
	return &Enricher{
		images:      images,
		store:       store,
		retrier:     opts.Retrier,
		concurrency: opts.Concurrency,
		aspectRatio: opts.AspectRatio,
	}
}

// Enrich processes every image of the group and returns one ProcessedImage
// per image in completion order. Image failures are reported through
// OnError and never abort siblings; the returned error is only set when ctx
// ends before the group finishes.
func (e *Enricher) Enrich(ctx context.Context, req EnrichRequest) ([]model.ProcessedImage, error) {
	images := req.Group.Images
	if len(images) == 0 {
		return []model.ProcessedImage{}, nil
	}

	workers := e.concurrency
	if workers > len(images) {
		workers = len(images)
	}
	log.Printf("🧵 [Enricher] Group %q: %d images, %d workers", req.Group.Name, len(images), workers)

	queue := make(chan string, len(images))
	for _, url := range images {
		queue <- url
	}
	close(queue)

	var (
		mu      sync.Mutex
		results = make([]model.ProcessedImage, 0, len(images))
		wg      sync.WaitGroup
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for url := range queue {
				if ctx.Err() != nil {
					return
				}
				processed := e.processImage(ctx, req, url)
				mu.Lock()
				results = append(results, processed)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("enrichment of group %q interrupted: %w", req.Group.Name, err)
	}
	return results, nil
}

type variantStep struct {
	assetType string
	prompt    string
	assign    func(p *model.ProcessedImage, url string)
}

func (e *Enricher) steps(req EnrichRequest) []variantStep {
	var steps []variantStep
	if req.Config.RemoveBackground {
		steps = append(steps, variantStep{
			assetType: model.AssetTypeBackgroundRemoved,
			prompt:    backgroundRemovalPrompt(req.Group),
			assign:    func(p *model.ProcessedImage, url string) { p.BackgroundRemoved = url },
		})
	}
	if req.Config.GenerateLifestyle {
		steps = append(steps, variantStep{
			assetType: model.AssetTypeLifestyle,
			prompt:    lifestylePrompt(req.Group),
			assign:    func(p *model.ProcessedImage, url string) { p.Lifestyle = url },
		})
	}
	return steps
}

// processImage runs the enabled variant steps in order. The first failing step
// ends the image: its error is reported once and variants produced so far are
// kept.
func (e *Enricher) processImage(ctx context.Context, req EnrichRequest, sourceURL string) (processed model.ProcessedImage) {
	processed = model.ProcessedImage{Original: sourceURL, Status: model.ImageStatusProcessing}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("❌ [Enricher] Panic while processing %s: %v", sourceURL, rec)
			processed.Status = model.ImageStatusFailed
			if req.OnError != nil {
				req.OnError(model.ErrorEntry{Image: sourceURL, Error: fmt.Sprintf("panic: %v", rec)})
			}
		}
	}()

	for _, step := range e.steps(req) {
		generatedURL, err := e.generate(ctx, req, sourceURL, step)
		if err != nil {
			log.Printf("❌ [Enricher] %s failed for %s: %v", step.assetType, sourceURL, err)
			processed.Status = model.ImageStatusFailed
			if req.OnError != nil {
				req.OnError(model.ErrorEntry{Image: sourceURL, Error: fmt.Sprintf("%s: %v", step.assetType, err)})
			}
			return processed
		}
		step.assign(&processed, generatedURL)
	}

	processed.Status = model.ImageStatusCompleted
	if req.OnProgress != nil {
		req.OnProgress(1)
	}
	return processed
}

// generate produces one variant and persists it as a generated asset.
func (e *Enricher) generate(ctx context.Context, req EnrichRequest, sourceURL string, step variantStep) (string, error) {
	variant := gemini.VariantRequest{
		Prompt:        step.prompt,
		ReferenceURLs: []string{sourceURL},
		AspectRatio:   e.aspectRatio,
		KeyPrefix:     path.Join("bulk", req.MerchantID, req.BatchID),
		Kind:          step.assetType,
	}

	generatedURL, err := retry.Do(ctx, e.retrier, func(ctx context.Context) (string, error) {
		return e.images.GenerateVariant(ctx, variant)
	})
	if err != nil {
		return "", err
	}

	asset := model.GeneratedAsset{
		MerchantID:   req.MerchantID,
		BatchID:      req.BatchID,
		AssetType:    step.assetType,
		SourceURL:    sourceURL,
		GeneratedURL: generatedURL,
		Prompt:       step.prompt,
	}
	if _, err := e.store.Insert(ctx, model.TableGeneratedAssets, asset); err != nil {
		return "", fmt.Errorf("failed to save generated asset: %w", err)
	}

	log.Printf("✅ [Enricher] %s ready for %s", step.assetType, sourceURL)
	return generatedURL, nil
}

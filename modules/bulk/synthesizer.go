package bulk

import (
	"context"
	"fmt"
	"log"
	"strings"

	"quel-catalog-server/modules/common/fallback"
	"quel-catalog-server/modules/common/model"
	"quel-catalog-server/modules/common/retry"
)

var defaultSizes = []string{"S", "M", "L", "XL"}

const defaultGender = "unisex"

var allowedGenders = map[string]string{
	"men":      "men",
	"male":     "men",
	"mens":     "men",
	"women":    "women",
	"female":   "women",
	"womens":   "women",
	"unisex":   "unisex",
	"kids":     "kids",
	"kid":      "kids",
	"children": "kids",
}

// productMetadata is the text model's refinement of a group.
type productMetadata struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	SuggestedSizes []string `json:"suggestedSizes"`
	Gender         string   `json:"gender"`
}

// Synthesizer turns enriched groups into draft products.
type Synthesizer struct {
	text    TextModel
	store   Store
	retrier *retry.Retrier
}

// NewSynthesizer - Synthesizer 생성
func NewSynthesizer(text TextModel, store Store, opts Options) *Synthesizer {
	opts = opts.withDefaults()
	return &Synthesizer{text: text, store: store, retrier: opts.Retrier}
}

// SynthesizeAll creates a draft product per group and returns how many were
// created. A group that cannot be persisted is logged and skipped.
func (s *Synthesizer) SynthesizeAll(ctx context.Context, merchantID, batchID string, groups []model.ProductGroup) int {
	created := 0
	for i, group := range groups {
		if ctx.Err() != nil {
			log.Printf("⚠️  [Synthesizer] Stopped after %d/%d groups: %v", i, len(groups), ctx.Err())
			break
		}
		productID, err := s.Synthesize(ctx, merchantID, batchID, group)
		if err != nil {
			log.Printf("❌ [Synthesizer] Skipping group %q: %v", group.Name, err)
			continue
		}
		log.Printf("✅ [Synthesizer] Draft product %s created for group %q", productID, group.Name)
		created++
	}
	return created
}

// Synthesize creates one draft product for group and links its generated
// assets to it. Only a failed product insert is returned as an error.
func (s *Synthesizer) Synthesize(ctx context.Context, merchantID, batchID string, group model.ProductGroup) (string, error) {
	images, variants := collectImages(group)
	meta := s.describe(ctx, group, len(images))

	mainImage := group.MainImage
	if mainImage == "" && len(images) > 0 {
		mainImage = images[0]
	}

	product := model.DraftProduct{
		MerchantID:     merchantID,
		Name:           meta.Name,
		Description:    meta.Description,
		Category:       MapCategory(group.Category),
		Price:          nil,
		Published:      false,
		Images:         images,
		MainImage:      mainImage,
		SuggestedSizes: meta.SuggestedSizes,
		Gender:         meta.Gender,
		BatchID:        batchID,
	}

	productID, err := s.store.Insert(ctx, model.TableProducts, product)
	if err != nil {
		return "", fmt.Errorf("failed to create draft product: %w", err)
	}

	linked := 0
	for _, url := range variants {
		err := s.store.UpdateWhere(ctx, model.TableGeneratedAssets,
			map[string]string{"merchant_id": merchantID, "generated_url": url},
			map[string]interface{}{"product_id": productID},
		)
		if err != nil {
			log.Printf("⚠️  [Synthesizer] Failed to link asset %s to product %s: %v", url, productID, err)
			continue
		}
		linked++
	}

	audit := model.AuditEntry{
		MerchantID: merchantID,
		EntityType: "product",
		EntityID:   productID,
		Action:     "bulk_draft_created",
		Details: map[string]interface{}{
			"batch_id":       batchID,
			"group_id":       group.ID,
			"group_name":     group.Name,
			"group_category": group.Category,
			"source_images":  len(group.Images),
			"total_images":   len(images),
			"linked_assets":  linked,
		},
	}
	if _, err := s.store.Insert(ctx, model.TableAuditLogs, audit); err != nil {
		log.Printf("⚠️  [Synthesizer] Failed to write audit entry for product %s: %v", productID, err)
	}

	return productID, nil
}

// describe asks the text model for product copy and falls back to defaults
// field by field. It never fails.
func (s *Synthesizer) describe(ctx context.Context, group model.ProductGroup, imageCount int) productMetadata {
	defaults := productMetadata{
		Name:           fallback.SafeString(group.Name, "Untitled product"),
		Description:    defaultDescription(group),
		SuggestedSizes: append([]string(nil), defaultSizes...),
		Gender:         defaultGender,
	}

	text, err := retry.Do(ctx, s.retrier, func(ctx context.Context) (string, error) {
		return s.text.GenerateText(ctx, productPrompt(group, imageCount))
	})
	if err != nil {
		log.Printf("⚠️  [Synthesizer] Text model failed for %q, using defaults: %v", group.Name, err)
		return defaults
	}

	var meta productMetadata
	if err := fallback.DecodeJSONObject(text, &meta); err != nil {
		log.Printf("⚠️  [Synthesizer] Unparsable text output for %q, using defaults: %v", group.Name, err)
		return defaults
	}

	return productMetadata{
		Name:           fallback.SafeString(meta.Name, defaults.Name),
		Description:    fallback.SafeString(meta.Description, defaults.Description),
		SuggestedSizes: fallback.SafeStringSlice(meta.SuggestedSizes, defaults.SuggestedSizes),
		Gender:         normalizeGender(meta.Gender),
	}
}

func normalizeGender(raw string) string {
	key := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(raw, "'", "")))
	if gender, ok := allowedGenders[key]; ok {
		return gender
	}
	return defaultGender
}

// collectImages returns the deduplicated union of originals and generated
// variants, plus the variants alone.
func collectImages(group model.ProductGroup) (images []string, variants []string) {
	seen := make(map[string]struct{})
	add := func(list *[]string, url string) bool {
		if url == "" {
			return false
		}
		if _, ok := seen[url]; ok {
			return false
		}
		seen[url] = struct{}{}
		*list = append(*list, url)
		return true
	}

	if group.MainImage != "" {
		add(&images, group.MainImage)
	}
	for _, url := range group.Images {
		add(&images, url)
	}
	for _, processed := range group.ProcessedImages {
		add(&images, processed.Original)
		for _, url := range processed.Variants() {
			if add(&images, url) {
				variants = append(variants, url)
			}
		}
	}
	return images, variants
}

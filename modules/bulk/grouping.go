package bulk

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"quel-catalog-server/modules/common/fallback"
	"quel-catalog-server/modules/common/model"
	"quel-catalog-server/modules/common/retry"
)

// mergeThreshold is the minimum name token overlap for cross-chunk merging.
const mergeThreshold = 0.5

// Grouper clusters source images into product groups with a vision model.
type Grouper struct {
	vision    VisionModel
	retrier   *retry.Retrier
	chunkSize int
}

// NewGrouper - Grouper 생성
func NewGrouper(vision VisionModel, opts Options) *Grouper {
	opts = opts.withDefaults()
	return &Grouper{vision: vision, retrier: opts.Retrier, chunkSize: opts.ChunkSize}
}

// rawGroup is one group as the model returned it. Image references may be
// URLs, "Image N" labels or bare 1-based indexes.
type rawGroup struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Category  string        `json:"category"`
	MainImage interface{}   `json:"mainImage"`
	Images    []interface{} `json:"images"`
}

// Group returns groups that partition imageURLs exactly. It never fails:
// model and parse errors degrade to one group per image.
func (g *Grouper) Group(ctx context.Context, imageURLs []string) []model.ProductGroup {
	log.Printf("🔍 [Grouping] Grouping %d images (chunk size %d)", len(imageURLs), g.chunkSize)

	var groups []model.ProductGroup
	if len(imageURLs) <= g.chunkSize {
		groups = g.groupChunk(ctx, imageURLs, 0)
	} else {
		for start := 0; start < len(imageURLs); start += g.chunkSize {
			end := start + g.chunkSize
			if end > len(imageURLs) {
				end = len(imageURLs)
			}
			groups = mergeGroups(groups, g.groupChunk(ctx, imageURLs[start:end], start))
		}
	}

	validated := validateGroups(groups, imageURLs)
	log.Printf("✅ [Grouping] %d images → %d groups", len(imageURLs), len(validated))
	return validated
}

func (g *Grouper) groupChunk(ctx context.Context, chunk []string, offset int) []model.ProductGroup {
	if len(chunk) == 0 {
		return nil
	}

	text, err := retry.Do(ctx, g.retrier, func(ctx context.Context) (string, error) {
		return g.vision.AnalyzeImages(ctx, groupingPrompt(chunk), chunk)
	})
	if err != nil {
		log.Printf("⚠️  [Grouping] Vision call failed for images %d-%d, using one group per image: %v",
			offset+1, offset+len(chunk), err)
		return singletonGroups(chunk, offset)
	}

	groups, err := parseGroups(text, chunk)
	if err != nil {
		log.Printf("⚠️  [Grouping] Unparsable vision output for images %d-%d, using one group per image: %v",
			offset+1, offset+len(chunk), err)
		return singletonGroups(chunk, offset)
	}
	return groups
}

func parseGroups(text string, chunk []string) ([]model.ProductGroup, error) {
	var raw []rawGroup
	if err := fallback.DecodeJSONArray(text, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty group list")
	}

	groups := make([]model.ProductGroup, 0, len(raw))
	for _, r := range raw {
		images := make([]string, 0, len(r.Images))
		for _, ref := range r.Images {
			if url := resolveImageRef(ref, chunk); url != "" {
				images = append(images, url)
			}
		}
		groups = append(groups, model.ProductGroup{
			ID:        strings.TrimSpace(r.ID),
			Name:      strings.TrimSpace(r.Name),
			Category:  strings.TrimSpace(r.Category),
			MainImage: resolveImageRef(r.MainImage, chunk),
			Images:    images,
		})
	}
	return groups, nil
}

// resolveImageRef maps a model image reference onto a chunk URL, or "".
func resolveImageRef(ref interface{}, chunk []string) string {
	switch v := ref.(type) {
	case float64:
		return imageAt(int(v), chunk)
	case string:
		s := strings.TrimSpace(v)
		for _, url := range chunk {
			if s == url {
				return url
			}
		}
		label := strings.TrimSpace(strings.TrimPrefix(strings.ToLower(s), "image"))
		if n, err := strconv.Atoi(label); err == nil {
			return imageAt(n, chunk)
		}
	}
	return ""
}

func imageAt(oneBased int, chunk []string) string {
	if oneBased < 1 || oneBased > len(chunk) {
		return ""
	}
	return chunk[oneBased-1]
}

func singletonGroups(images []string, offset int) []model.ProductGroup {
	groups := make([]model.ProductGroup, 0, len(images))
	for i, url := range images {
		groups = append(groups, singletonGroup(url, offset+i+1))
	}
	return groups
}

func singletonGroup(url string, n int) model.ProductGroup {
	return model.ProductGroup{
		ID:        uuid.NewString(),
		Name:      fmt.Sprintf("Product %d", n),
		Category:  defaultCategory,
		MainImage: url,
		Images:    []string{url},
	}
}

// mergeGroups folds a later chunk's groups into acc. An incoming group that is
// similar to an earlier accumulated group (same category and name token
// overlap above mergeThreshold) adds its images to it; otherwise it is
// appended. Groups of the same chunk are never merged with each other.
func mergeGroups(acc, incoming []model.ProductGroup) []model.ProductGroup {
	previous := len(acc)
	for _, group := range incoming {
		merged := false
		for i := 0; i < previous; i++ {
			if similarGroups(acc[i], group) {
				log.Printf("🔗 [Grouping] Merging %q into %q", group.Name, acc[i].Name)
				acc[i].Images = appendUnique(acc[i].Images, group.Images...)
				merged = true
				break
			}
		}
		if !merged {
			acc = append(acc, group)
		}
	}
	return acc
}

func similarGroups(a, b model.ProductGroup) bool {
	if !strings.EqualFold(strings.TrimSpace(a.Category), strings.TrimSpace(b.Category)) {
		return false
	}
	return tokenOverlap(a.Name, b.Name) > mergeThreshold
}

// tokenOverlap is |A∩B| / max(|A|,|B|) over normalized name tokens.
func tokenOverlap(a, b string) float64 {
	ta, tb := nameTokens(a), nameTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for token := range ta {
		if _, ok := tb[token]; ok {
			shared++
		}
	}

	denominator := len(ta)
	if len(tb) > denominator {
		denominator = len(tb)
	}
	return float64(shared) / float64(denominator)
}

func nameTokens(name string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		tokens[f] = struct{}{}
	}
	return tokens
}

// validateGroups turns proposed groups into an exact partition of input:
// unknown and already claimed images are dropped (first claim wins), empty
// groups disappear, the main image falls back to the first remaining image,
// and unclaimed inputs become singleton groups in input order.
func validateGroups(groups []model.ProductGroup, input []string) []model.ProductGroup {
	inputSet := make(map[string]struct{}, len(input))
	for _, url := range input {
		inputSet[url] = struct{}{}
	}

	claimed := make(map[string]struct{}, len(input))
	seenIDs := make(map[string]struct{}, len(groups))
	validated := make([]model.ProductGroup, 0, len(groups))

	for _, group := range groups {
		kept := make([]string, 0, len(group.Images))
		for _, url := range group.Images {
			if _, ok := inputSet[url]; !ok {
				continue
			}
			if _, ok := claimed[url]; ok {
				continue
			}
			claimed[url] = struct{}{}
			kept = append(kept, url)
		}
		if len(kept) == 0 {
			continue
		}

		group.Images = kept
		if !contains(kept, group.MainImage) {
			group.MainImage = kept[0]
		}
		if group.Name == "" {
			group.Name = fmt.Sprintf("Product %d", len(validated)+1)
		}
		if group.Category == "" {
			group.Category = defaultCategory
		}
		if _, dup := seenIDs[group.ID]; group.ID == "" || dup {
			group.ID = uuid.NewString()
		}
		seenIDs[group.ID] = struct{}{}
		group.ProcessedImages = nil

		validated = append(validated, group)
	}

	for _, url := range input {
		if _, ok := claimed[url]; ok {
			continue
		}
		claimed[url] = struct{}{}
		single := singletonGroup(url, len(validated)+1)
		seenIDs[single.ID] = struct{}{}
		validated = append(validated, single)
	}

	return validated
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		if !contains(list, item) {
			list = append(list, item)
		}
	}
	return list
}

package bulk

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"quel-catalog-server/modules/common/database"
	"quel-catalog-server/modules/common/gemini"
	"quel-catalog-server/modules/common/model"
	"quel-catalog-server/modules/common/retry"
)

// fakeStore keeps one batch in memory and records every write.
type fakeStore struct {
	mu sync.Mutex

	batch       *model.Batch
	updates     []map[string]interface{}
	inserts     map[string][]interface{}
	updateWhere []whereCall
	nextID      int

	failUpdate func(fields map[string]interface{}) error
	failInsert func(table string, record interface{}) error
}

type whereCall struct {
	table  string
	match  map[string]string
	fields map[string]interface{}
}

func newFakeStore(batch *model.Batch) *fakeStore {
	return &fakeStore{batch: batch, inserts: map[string][]interface{}{}}
}

func (s *fakeStore) GetBatch(ctx context.Context, merchantID, batchID string) (*model.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batch == nil || s.batch.ID != batchID || s.batch.MerchantID != merchantID {
		return nil, fmt.Errorf("batch %s: %w", batchID, database.ErrNotFound)
	}
	copied := *s.batch
	return &copied, nil
}

func (s *fakeStore) UpdateBatch(ctx context.Context, merchantID, batchID string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failUpdate != nil {
		if err := s.failUpdate(fields); err != nil {
			return err
		}
	}

	copied := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	s.updates = append(s.updates, copied)

	for k, v := range fields {
		switch k {
		case "status":
			s.batch.Status = v.(string)
		case "processed_count":
			s.batch.ProcessedCount = v.(int)
		case "failed_count":
			s.batch.FailedCount = v.(int)
		case "total_images":
			s.batch.TotalImages = v.(int)
		case "error_log":
			s.batch.ErrorLog = v.([]model.ErrorEntry)
		case "product_groups":
			s.batch.ProductGroups = v.([]model.ProductGroup)
		case "completed_at":
			t := v.(time.Time)
			s.batch.CompletedAt = &t
		case "current_product":
			if v == nil {
				s.batch.CurrentProduct = nil
			} else {
				label := v.(string)
				s.batch.CurrentProduct = &label
			}
		}
	}
	return nil
}

func (s *fakeStore) Insert(ctx context.Context, table string, record interface{}) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failInsert != nil {
		if err := s.failInsert(table, record); err != nil {
			return "", err
		}
	}
	s.nextID++
	s.inserts[table] = append(s.inserts[table], record)
	return fmt.Sprintf("%s-%d", table, s.nextID), nil
}

func (s *fakeStore) UpdateWhere(ctx context.Context, table string, match map[string]string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateWhere = append(s.updateWhere, whereCall{table: table, match: match, fields: fields})
	return nil
}

func (s *fakeStore) snapshot() model.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.batch
}

func (s *fakeStore) insertsFor(table string) []interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]interface{}(nil), s.inserts[table]...)
}

func (s *fakeStore) statuses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, u := range s.updates {
		if status, ok := u["status"]; ok {
			out = append(out, status.(string))
		}
	}
	return out
}

// fakeVision answers grouping prompts through respond.
type fakeVision struct {
	mu      sync.Mutex
	calls   [][]string
	respond func(imageURLs []string) (string, error)
}

func (v *fakeVision) AnalyzeImages(ctx context.Context, prompt string, imageURLs []string) (string, error) {
	v.mu.Lock()
	v.calls = append(v.calls, append([]string(nil), imageURLs...))
	v.mu.Unlock()
	return v.respond(imageURLs)
}

// fakeImages generates "<source>#<kind>" URLs and tracks concurrency.
type fakeImages struct {
	delay    time.Duration
	fail     func(req gemini.VariantRequest) error
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    atomic.Int32
}

func (f *fakeImages) GenerateVariant(ctx context.Context, req gemini.VariantRequest) (string, error) {
	f.calls.Add(1)
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if current <= seen || f.maxSeen.CompareAndSwap(seen, current) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail != nil {
		if err := f.fail(req); err != nil {
			return "", err
		}
	}
	return req.ReferenceURLs[0] + "#" + req.Kind, nil
}

// fakeText returns a canned response or error.
type fakeText struct {
	response string
	err      error
	calls    atomic.Int32
}

func (f *fakeText) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	return f.response, f.err
}

func testOptions() Options {
	return Options{
		Concurrency: 3,
		ChunkSize:   10,
		AspectRatio: "1:1",
		Retrier:     retry.New("test", []time.Duration{}, 0),
	}
}

func urls(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = "https://cdn.test/" + n + ".jpg"
	}
	return out
}

func groupJSON(groups ...[]string) string {
	parts := make([]string, 0, len(groups))
	for i, images := range groups {
		quoted := make([]string, len(images))
		for j, img := range images {
			quoted[j] = `"` + img + `"`
		}
		parts = append(parts, fmt.Sprintf(`{"id":"g%d","name":"Item %d","category":"tshirts","mainImage":%s,"images":[%s]}`,
			i+1, i+1, quoted[0], strings.Join(quoted, ",")))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

package bulk

import (
	"context"
	"log"
	"sync"

	"quel-catalog-server/modules/common/model"
)

type progressEvent struct {
	processed int
	failure   *model.ErrorEntry
	label     *string
}

// progressWriter is the only writer of batch progress fields while images are
// being enriched. Workers send events; one goroutine applies them in order and
// pushes each change to the store immediately.
type progressWriter struct {
	store      Store
	merchantID string
	batchID    string

	events    chan progressEvent
	done      chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	processed int
	errorLog  []model.ErrorEntry
	err       error
}

func newProgressWriter(ctx context.Context, store Store, merchantID, batchID string) *progressWriter {
	p := &progressWriter{
		store:      store,
		merchantID: merchantID,
		batchID:    batchID,
		events:     make(chan progressEvent, 64),
		done:       make(chan struct{}),
		errorLog:   []model.ErrorEntry{},
	}
	go p.run(ctx)
	return p
}

func (p *progressWriter) run(ctx context.Context) {
	defer close(p.done)

	for ev := range p.events {
		fields := map[string]interface{}{}

		p.mu.Lock()
		if ev.processed > 0 {
			p.processed += ev.processed
			fields["processed_count"] = p.processed
		}
		if ev.failure != nil {
			p.errorLog = append(p.errorLog, *ev.failure)
			fields["error_log"] = append([]model.ErrorEntry(nil), p.errorLog...)
			fields["failed_count"] = len(p.errorLog)
		}
		if ev.label != nil {
			fields["current_product"] = *ev.label
		}
		failed := p.err != nil
		p.mu.Unlock()

		// After a persistence failure keep draining so workers never block.
		if failed || len(fields) == 0 {
			continue
		}

		if err := p.store.UpdateBatch(ctx, p.merchantID, p.batchID, fields); err != nil {
			log.Printf("❌ [Bulk] Failed to push progress for batch %s: %v", p.batchID, err)
			p.mu.Lock()
			p.err = err
			p.mu.Unlock()
		}
	}
}

// Processed records n successfully enriched images.
func (p *progressWriter) Processed(n int) {
	if n > 0 {
		p.events <- progressEvent{processed: n}
	}
}

// Failed records one item-level failure.
func (p *progressWriter) Failed(entry model.ErrorEntry) {
	p.events <- progressEvent{failure: &entry}
}

// Label updates the advisory progress label.
func (p *progressWriter) Label(label string) {
	p.events <- progressEvent{label: &label}
}

// Close stops accepting events and waits until all of them are persisted.
// It is safe to call more than once.
func (p *progressWriter) Close() error {
	p.closeOnce.Do(func() { close(p.events) })
	<-p.done
	return p.Err()
}

// Err returns the first persistence error, if any.
func (p *progressWriter) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Counts returns the counters applied so far.
func (p *progressWriter) Counts() (processed int, errorLog []model.ErrorEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, append([]model.ErrorEntry{}, p.errorLog...)
}

package exporter

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/fabdesk/backup-exporter/internal/model"
)

type flusher interface {
	Flush()
}

// Emitter is the single writer of the outbound event stream. It serializes
// one NDJSON frame per call and owns the run's statistics and error list.
// Once a write fails (the consumer went away) it flips to closed and every
// further emission is a no-op; the run itself keeps going.
type Emitter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	flush  flusher
	closed bool

	stats model.RunStats
	errs  []model.ManifestError
}

func NewEmitter(w io.Writer) *Emitter {
	e := &Emitter{
		enc:   json.NewEncoder(w),
		stats: model.RunStats{StartedAt: time.Now().UTC()},
	}
	if f, ok := w.(flusher); ok {
		e.flush = f
	}
	return e
}

// Progress reports that item (current of total) of a phase is being worked
// on. An empty item with current 0 announces the phase itself.
func (e *Emitter) Progress(phase, item string, current, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.write(progressEvent(phase, item, current, total))
}

// Error records a recovered item-level failure: it is pushed on the stream,
// counted, and kept for the manifest.
func (e *Emitter) Error(phase, item string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.Errors++
	e.errs = append(e.errs, model.ManifestError{Phase: phase, Item: item, Error: err.Error()})
	e.write(errorEvent(phase, item, err.Error()))
}

// Exported bumps the success counter of a phase.
func (e *Emitter) Exported(phase string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch phase {
	case model.PhaseData:
		e.stats.DataFiles++
	case model.PhaseQuotes:
		e.stats.QuotePdfs++
	case model.PhaseInvoices:
		e.stats.InvoicePdfs++
	case model.PhaseDesigns:
		e.stats.DesignFiles++
	case model.PhasePhotos:
		e.stats.JobPhotos++
	}
}

// MarkCompleted stamps the end of the run. Called before the manifest
// snapshot is taken so the artifact and the completion event agree.
func (e *Emitter) MarkCompleted() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stats.CompletedAt.IsZero() {
		e.stats.CompletedAt = time.Now().UTC()
	}
}

// Complete emits the terminal event with the final statistics.
func (e *Emitter) Complete(message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stats.CompletedAt.IsZero() {
		e.stats.CompletedAt = time.Now().UTC()
	}
	e.write(completeEvent(e.stats, message))
}

// Stats returns a snapshot of the running totals.
func (e *Emitter) Stats() model.RunStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Errors returns the collected item-level failures in emission order.
func (e *Emitter) Errors() []model.ManifestError {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.ManifestError, len(e.errs))
	copy(out, e.errs)
	return out
}

// Closed reports whether the consumer has gone away.
func (e *Emitter) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// write must be called with the mutex held.
func (e *Emitter) write(ev Event) {
	if e.closed {
		return
	}
	if err := e.enc.Encode(ev); err != nil {
		e.closed = true
		return
	}
	if e.flush != nil {
		e.flush.Flush()
	}
}

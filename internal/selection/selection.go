// Package selection receives the map's report selections on behalf of the
// host: it remembers the last one and optionally publishes each downstream.
package selection

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Copubah/dirty-nairobi/internal/domain"
	"github.com/Copubah/dirty-nairobi/internal/observability"
)

// Publisher delivers a selection to an external sink.
type Publisher interface {
	Publish(ctx context.Context, sel domain.Selection) error
}

const queueSize = 64

// Tracker is the host's onSelect sink. Select never blocks, so it is safe to
// call from the map engine's loop.
type Tracker struct {
	logger  *slog.Logger
	metrics *observability.Metrics

	mu    sync.RWMutex
	last  *domain.Selection
	count int64

	queue chan domain.Selection
}

// NewTracker creates a Tracker. Selections are queued for publishing only if
// Run is started with a publisher.
func NewTracker(logger *slog.Logger, metrics *observability.Metrics) *Tracker {
	return &Tracker{
		logger:  logger,
		metrics: metrics,
		queue:   make(chan domain.Selection, queueSize),
	}
}

// Select records r as the current selection.
func (t *Tracker) Select(r domain.Report) {
	sel := domain.Selection{Report: r, SelectedAt: domain.Now()}

	t.mu.Lock()
	t.last = &sel
	t.count++
	t.mu.Unlock()

	t.logger.Info("report selected", "report_id", r.ID)

	select {
	case t.queue <- sel:
	default:
		t.metrics.SelectionsPublished.WithLabelValues("dropped").Inc()
		t.logger.Warn("selection queue full, dropping", "report_id", r.ID)
	}
}

// Last returns the most recent selection, if any.
func (t *Tracker) Last() (domain.Selection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.last == nil {
		return domain.Selection{}, false
	}
	return *t.last, true
}

// Count returns how many selections have been made.
func (t *Tracker) Count() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

// Clear forgets the current selection, as when the detail view is closed.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.last = nil
	t.mu.Unlock()
}

// Run publishes queued selections until ctx is cancelled. With a nil
// publisher the queue is drained and discarded.
func (t *Tracker) Run(ctx context.Context, pub Publisher) {
	for {
		select {
		case <-ctx.Done():
			return
		case sel := <-t.queue:
			if pub == nil {
				continue
			}
			if err := pub.Publish(ctx, sel); err != nil {
				if ctx.Err() != nil {
					return
				}
				t.metrics.SelectionsPublished.WithLabelValues("error").Inc()
				t.logger.Error("publish selection failed", "report_id", sel.Report.ID, "error", err)
				continue
			}
			t.metrics.SelectionsPublished.WithLabelValues("success").Inc()
		}
	}
}

// Package pipeline feeds authoritative report lists from a source into the
// map engine, one snapshot per reconciliation.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/Copubah/dirty-nairobi/internal/domain"
	"github.com/Copubah/dirty-nairobi/internal/mapview"
	"github.com/Copubah/dirty-nairobi/internal/observability"
)

// ReportSource delivers the next full report list. It blocks until one is
// available or ctx is done.
type ReportSource interface {
	Next(ctx context.Context) (domain.ReportSnapshot, error)
	Name() string
}

// MapEngine is the part of the map engine the pipeline drives.
type MapEngine interface {
	Reconcile(ctx context.Context, h *mapview.Handle, reports []domain.Report) (mapview.ReconcileResult, error)
	SetLoading(ctx context.Context, loading bool) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline applies report snapshots to one mounted map.
type Pipeline struct {
	source  ReportSource
	engine  MapEngine
	handle  *mapview.Handle
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
	applied atomic.Int64

	// Digest of the last applied report list. Owned by Run.
	lastDigest uint64
	hasDigest  bool
}

// New creates a Pipeline that feeds source into the map mounted as handle.
func New(source ReportSource, engine MapEngine, handle *mapview.Handle, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:  source,
		engine:  engine,
		handle:  handle,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a snapshot has been applied to the map.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no report snapshot applied yet")
	}
	return nil
}

// Applied returns the number of snapshots applied so far.
func (p *Pipeline) Applied() int64 { return p.applied.Load() }

// Run applies snapshots until ctx is cancelled or the engine closes.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "source", p.source.Name())
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.step(ctx, &backoff) {
			return nil
		}
	}
}

// step fetches and applies one snapshot. Returns false if the pipeline should stop.
func (p *Pipeline) step(ctx context.Context, backoff *time.Duration) bool {
	snap, err := p.source.Next(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("fetch reports failed", "source", p.source.Name(), "error", err)
		p.metrics.SourceErrors.WithLabelValues(p.source.Name()).Inc()
		p.setLoading(ctx, true)
		return backoffOrStop(ctx, backoff)
	}

	digest, digestOK := digestReports(snap.Reports)
	if digestOK && p.hasDigest && digest == p.lastDigest {
		// The map already shows this list.
		p.setLoading(ctx, false)
		p.commit(ctx, snap)
		p.metrics.SnapshotsUnchanged.WithLabelValues(snap.Source).Inc()
		*backoff = initialBackoff
		p.logger.Debug("report snapshot unchanged", "source", snap.Source, "revision", snap.Revision)
		return true
	}

	res, err := p.engine.Reconcile(ctx, p.handle, snap.Reports)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, mapview.ErrClosed) {
			return false
		}
		// The map was torn down or remounted under us; nothing to retry against.
		if errors.Is(err, mapview.ErrNotMounted) || errors.Is(err, mapview.ErrStaleHandle) {
			p.logger.Error("map no longer mounted, stopping pipeline", "error", err)
			return false
		}
		p.logger.Error("apply reports failed", "error", err)
		return backoffOrStop(ctx, backoff)
	}
	p.lastDigest, p.hasDigest = digest, digestOK
	p.setLoading(ctx, false)
	p.commit(ctx, snap)

	p.metrics.SnapshotsApplied.WithLabelValues(snap.Source).Inc()
	p.applied.Add(1)
	p.ready.Store(true)
	*backoff = initialBackoff

	p.logger.Debug("report snapshot applied",
		"source", snap.Source,
		"revision", snap.Revision,
		"reports", len(snap.Reports),
		"markers", res.Live,
		"added", res.Added,
		"removed", res.Removed,
	)
	return true
}

// digestReports hashes the report list in order. ok is false when the list
// cannot be encoded (non-finite coordinates); such lists are always applied.
func digestReports(reports []domain.Report) (sum uint64, ok bool) {
	data, err := json.Marshal(reports)
	if err != nil {
		return 0, false
	}
	return xxhash.Sum64(data), true
}

func (p *Pipeline) setLoading(ctx context.Context, loading bool) {
	if err := p.engine.SetLoading(ctx, loading); err != nil && ctx.Err() == nil {
		p.logger.Warn("set loading failed", "error", err)
	}
}

// commit acknowledges the snapshot if its source supports it.
func (p *Pipeline) commit(ctx context.Context, snap domain.ReportSnapshot) {
	if snap.Commit == nil {
		return
	}
	if err := snap.Commit(ctx); err != nil {
		p.logger.Warn("commit snapshot failed", "error", err, "source", snap.Source, "revision", snap.Revision)
	}
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if ctx was cancelled first.
func backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff)
	return true
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

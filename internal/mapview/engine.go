// Package mapview owns the map surface and keeps it in step with the current
// report list: it mounts and tears down the surface, reconciles markers,
// frames the viewport, clusters markers and routes marker and popup
// activations to a single selection callback.
//
// All engine state lives on one goroutine. Public methods send a closure to
// that loop and wait for it, so a reconciliation together with the viewport
// update and dispatch-table swap it causes is never interleaved with another
// call. Timers, tile results and thumbnail checks are posted into the same
// loop.
package mapview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"

	"github.com/Copubah/dirty-nairobi/internal/cluster"
	"github.com/Copubah/dirty-nairobi/internal/domain"
	"github.com/Copubah/dirty-nairobi/internal/observability"
	"github.com/Copubah/dirty-nairobi/internal/surface"
)

// SelectFunc receives the report chosen by a marker click or popup control.
// It runs on the engine loop and must not call back into the engine.
type SelectFunc func(domain.Report)

// ImageChecker reports whether a thumbnail URL can be loaded.
type ImageChecker interface {
	Available(ctx context.Context, url string) (bool, error)
}

// Options configure the engine. Zero values fall back to the Nairobi defaults.
type Options struct {
	Center            orb.Point
	InitialZoom       int
	SingleZoom        int // zoom used to recenter on a lone marker
	ClusterRadius     float64
	FitPadding        float64
	Viscosity         float64
	AnimationDuration time.Duration
	TileURL           string
	TileSubdomains    []string

	// Strict panics on lifecycle misuse instead of returning the error.
	Strict bool

	// Optional collaborators.
	TileFetcher  surface.TileFetcher
	ImageChecker ImageChecker
}

// DefaultOptions returns the Nairobi map configuration.
func DefaultOptions() Options {
	return Options{
		Center:            domain.NairobiCenter,
		InitialZoom:       domain.DefaultInitialZoom,
		SingleZoom:        domain.DefaultSingleZoom,
		ClusterRadius:     cluster.DefaultRadius,
		FitPadding:        20,
		Viscosity:         1.0,
		AnimationDuration: 250 * time.Millisecond,
		TileURL:           "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		TileSubdomains:    []string{"a", "b", "c"},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Center == (orb.Point{}) {
		o.Center = d.Center
	}
	if o.InitialZoom == 0 {
		o.InitialZoom = d.InitialZoom
	}
	if o.SingleZoom == 0 {
		o.SingleZoom = d.SingleZoom
	}
	if o.ClusterRadius <= 0 {
		o.ClusterRadius = d.ClusterRadius
	}
	if o.FitPadding < 0 {
		o.FitPadding = 0
	}
	return o
}

// Engine is the map visualization and marker reconciliation engine.
type Engine struct {
	opts     Options
	onSelect SelectFunc
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock

	cmds      chan func()
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// Loop-owned state.
	mount    *mount
	mountSeq uint64
	loading  bool
}

// NewEngine starts the engine loop. onSelect may be nil.
func NewEngine(opts Options, onSelect SelectFunc, logger *slog.Logger, metrics *observability.Metrics, clk clockwork.Clock) *Engine {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	e := &Engine{
		opts:     opts.withDefaults(),
		onSelect: onSelect,
		logger:   logger,
		metrics:  metrics,
		clock:    clk,
		cmds:     make(chan func(), 64),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		loading:  true,
	}
	go e.run()
	return e
}

func (e *Engine) run() {
	defer close(e.stopped)
	for {
		select {
		case fn := <-e.cmds:
			fn()
		case <-e.done:
			return
		}
	}
}

// Close tears down any live surface and stops the loop. Later calls return ErrClosed.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		_ = e.do(context.Background(), func() error {
			e.teardown()
			return nil
		})
		close(e.done)
		<-e.stopped
	})
	return nil
}

// do runs fn on the loop and waits for it.
func (e *Engine) do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	select {
	case e.cmds <- func() { errc <- fn() }:
	case <-e.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errc:
		return err
	case <-e.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call is do plus the lifecycle misuse policy.
func (e *Engine) call(ctx context.Context, fn func() error) error {
	return e.misuse(e.do(ctx, fn))
}

// post queues fn from another goroutine. It is dropped once the engine is closed.
func (e *Engine) post(fn func()) {
	select {
	case e.cmds <- fn:
	case <-e.done:
	}
}

// loop adapts the engine to surface.Loop.
type loop struct{ e *Engine }

func (l loop) Post(fn func()) { l.e.post(fn) }

func (l loop) AfterFunc(d time.Duration, fn func()) func() {
	t := l.e.clock.AfterFunc(d, func() { l.e.post(fn) })
	return func() { t.Stop() }
}

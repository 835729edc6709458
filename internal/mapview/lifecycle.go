package mapview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Copubah/dirty-nairobi/internal/cluster"
	"github.com/Copubah/dirty-nairobi/internal/domain"
	"github.com/Copubah/dirty-nairobi/internal/surface"
)

// Handle refers to one mount of the map surface.
type Handle struct {
	seq       uint64
	container string
}

// Container returns the id of the container the surface was mounted into.
func (h *Handle) Container() string { return h.container }

// mount is everything owned by one live surface.
type mount struct {
	handle   *Handle
	surf     *surface.Surface
	boundary domain.Boundary

	markers  map[string]*Marker
	order    []string                 // report order of live markers
	dispatch map[string]domain.Report // report id -> report, swapped whole on reconcile
	reported int                      // length of the last report list, skipped entries included

	clusters  *cluster.Result
	spider    *spiderState
	images    map[string]imageState
	mountedAt time.Time

	// ctx scopes background thumbnail checks to the mount.
	ctx    context.Context
	cancel context.CancelFunc
}

// Initialize mounts the surface into container, constrained to boundary and
// zooms. Calling it again while a surface is live returns the existing handle.
func (e *Engine) Initialize(ctx context.Context, container surface.Container, boundary domain.Boundary, zooms domain.ZoomRange) (*Handle, error) {
	if container.Width <= 0 || container.Height <= 0 {
		return nil, fmt.Errorf("initialize: container %q has no size", container.ID)
	}
	if err := boundary.Validate(); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	if err := zooms.Validate(); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	var h *Handle
	err := e.do(ctx, func() error {
		if e.mount != nil {
			h = e.mount.handle
			return nil
		}
		h = e.initialize(container, boundary, zooms)
		return nil
	})
	return h, err
}

func (e *Engine) initialize(container surface.Container, boundary domain.Boundary, zooms domain.ZoomRange) *Handle {
	e.mountSeq++
	h := &Handle{seq: e.mountSeq, container: container.ID}

	surf := surface.New(container, surface.Options{
		Center:             e.opts.Center,
		Zoom:               e.opts.InitialZoom,
		Zooms:              zooms,
		MaxBounds:          boundary.Bound(),
		MaxBoundsViscosity: e.opts.Viscosity,
		AnimationDuration:  e.opts.AnimationDuration,
		TileURL:            e.opts.TileURL,
		TileSubdomains:     e.opts.TileSubdomains,
	}, loop{e}, e.opts.TileFetcher)

	ctx, cancel := context.WithCancel(context.Background())
	m := &mount{
		ctx:       ctx,
		cancel:    cancel,
		handle:    h,
		surf:      surf,
		boundary:  boundary,
		markers:   make(map[string]*Marker),
		dispatch:  make(map[string]domain.Report),
		images:    make(map[string]imageState),
		mountedAt: e.clock.Now(),
	}
	e.mount = m

	surf.On(surface.EventZoomEnd, func(surface.EventInfo) {
		m.clusters = nil
		m.spider = nil
	})
	surf.On(surface.EventTileLoad, func(surface.EventInfo) {
		e.metrics.TileLoads.WithLabelValues("loaded").Inc()
	})
	surf.On(surface.EventTileError, func(info surface.EventInfo) {
		e.metrics.TileLoads.WithLabelValues("failed").Inc()
		e.logger.Debug("tile load failed", "tile", info.Tile.Key(), "error", info.Err)
	})

	e.metrics.SurfaceMounted.Set(1)
	view := surf.View()
	e.logger.Info("map surface mounted",
		"container", container.ID,
		"zoom", view.Zoom,
		"min_zoom", zooms.Min,
		"max_zoom", zooms.Max,
	)
	return h
}

// Teardown unmounts the surface. Pending animations, tile loads and
// thumbnail checks are cancelled, every listener is removed and the dispatch
// table is cleared; no callback fires after Teardown returns.
func (e *Engine) Teardown(ctx context.Context, h *Handle) error {
	return e.call(ctx, func() error {
		if err := e.check(h); err != nil {
			return err
		}
		e.teardown()
		return nil
	})
}

func (e *Engine) teardown() {
	m := e.mount
	if m == nil {
		return
	}
	m.cancel()
	m.surf.Remove()
	clear(m.markers)
	clear(m.dispatch)
	m.order = nil
	m.clusters = nil
	m.spider = nil
	e.mount = nil

	e.metrics.SurfaceMounted.Set(0)
	e.metrics.LiveMarkers.Set(0)
	e.metrics.Clusters.Set(0)
	e.logger.Info("map surface torn down", "container", m.handle.container)
}

// check validates h against the live mount. Loop only.
func (e *Engine) check(h *Handle) error {
	if e.mount == nil {
		return ErrNotMounted
	}
	if h == nil || h != e.mount.handle {
		return ErrStaleHandle
	}
	return nil
}

// live returns the current mount for handle-free interactions. Loop only.
func (e *Engine) live() (*mount, error) {
	if e.mount == nil {
		return nil, ErrNotMounted
	}
	return e.mount, nil
}

// Current returns the handle of the live mount.
func (e *Engine) Current(ctx context.Context) (*Handle, error) {
	var h *Handle
	err := e.do(ctx, func() error {
		m, err := e.live()
		if err != nil {
			return err
		}
		h = m.handle
		return nil
	})
	return h, err
}

// Mounted reports whether a surface is live.
func (e *Engine) Mounted(ctx context.Context) bool {
	_, err := e.Current(ctx)
	return err == nil
}

// ListenerCount counts the listeners and marker click handlers registered on
// the live surface, plus dispatch-table entries. It is zero when nothing is
// mounted.
func (e *Engine) ListenerCount(ctx context.Context) (int, error) {
	var n int
	err := e.do(ctx, func() error {
		if e.mount == nil {
			return nil
		}
		n = e.mount.surf.ListenerCount() + len(e.mount.dispatch)
		return nil
	})
	if errors.Is(err, ErrClosed) {
		return 0, nil
	}
	return n, err
}

// Package surface is a headless map surface: it keeps the camera, a marker
// layer with click handlers, an open popup, event listeners, camera
// animations and fire-and-forget tile loads.
//
// A Surface is not safe for concurrent use. It is owned by a single event
// loop (see [Loop]) and every method must be called from that loop. Timers and
// tile results come back through the loop as well, so handlers never run
// concurrently with each other.
package surface

import (
	"context"
	"sort"
	"time"

	"github.com/paulmach/orb"

	"github.com/Copubah/dirty-nairobi/internal/domain"
	"github.com/Copubah/dirty-nairobi/internal/geo"
)

// Event names emitted by the surface.
type Event string

const (
	EventMoveStart Event = "movestart"
	EventMoveEnd   Event = "moveend"
	EventZoomEnd   Event = "zoomend"
	EventTileLoad  Event = "tileload"
	EventTileError Event = "tileerror"
)

// EventInfo is passed to listeners.
type EventInfo struct {
	Type Event
	View geo.Viewport
	Tile geo.Tile
	Err  error
}

// Listener handles a surface event.
type Listener func(EventInfo)

// ListenerID identifies a registered listener for removal.
type ListenerID int

// Loop is the event loop that owns the surface.
type Loop interface {
	// Post queues fn to run on the loop.
	Post(fn func())
	// AfterFunc runs fn on the loop after d. The returned func cancels it.
	AfterFunc(d time.Duration, fn func()) (stop func())
}

// TileFetcher loads one tile. It runs off the loop and must honor ctx.
type TileFetcher interface {
	FetchTile(ctx context.Context, url string) error
}

// Container is the host element the map is drawn into.
type Container struct {
	ID     string  `json:"id"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Options configure a surface.
type Options struct {
	Center             orb.Point
	Zoom               int
	Zooms              domain.ZoomRange
	MaxBounds          orb.Bound
	MaxBoundsViscosity float64
	AnimationDuration  time.Duration
	TileURL            string
	TileSubdomains     []string
}

// TileStatus describes the load state of a visible tile.
type TileStatus string

const (
	TileRemote  TileStatus = "remote" // not prefetched, the client loads it
	TilePending TileStatus = "pending"
	TileLoaded  TileStatus = "loaded"
	TileFailed  TileStatus = "failed" // render a placeholder
)

// TileView is a visible tile and where to load it from.
type TileView struct {
	geo.Tile
	URL    string     `json:"url"`
	Status TileStatus `json:"status"`
}

type markerLayer struct {
	pos     orb.Point
	onClick func()
}

// Surface is the live map instance.
type Surface struct {
	container Container
	opts      Options
	loop      Loop
	fetcher   TileFetcher

	view      geo.Viewport
	markers   map[string]*markerLayer
	openPopup string

	listeners map[Event]map[ListenerID]Listener
	nextID    ListenerID

	animGen      int
	animStop     func()
	animZoomDiff bool

	tiles  map[string]TileStatus
	ctx    context.Context
	cancel context.CancelFunc

	removed bool
}

// New creates a surface in the given container at the initial camera.
// fetcher may be nil, in which case tiles are left for the client to load.
func New(container Container, opts Options, loop Loop, fetcher TileFetcher) *Surface {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Surface{
		container: container,
		opts:      opts,
		loop:      loop,
		fetcher:   fetcher,
		markers:   make(map[string]*markerLayer),
		listeners: make(map[Event]map[ListenerID]Listener),
		tiles:     make(map[string]TileStatus),
		ctx:       ctx,
		cancel:    cancel,
	}
	zoom := opts.Zooms.Clamp(opts.Zoom)
	s.view = geo.Viewport{
		Center: geo.LimitCenter(opts.Center, zoom, s.size(), opts.MaxBounds),
		Zoom:   zoom,
		Size:   s.size(),
	}
	s.loadTiles()
	return s
}

func (s *Surface) size() geo.Size {
	return geo.Size{Width: s.container.Width, Height: s.container.Height}
}

// Container returns the container the surface was created in.
func (s *Surface) Container() Container { return s.container }

// View returns the current camera.
func (s *Surface) View() geo.Viewport { return s.view }

// Bounds returns the visible geographic rectangle.
func (s *Surface) Bounds() orb.Bound { return s.view.Bounds() }

// Zooms returns the configured zoom range.
func (s *Surface) Zooms() domain.ZoomRange { return s.opts.Zooms }

// Animating reports whether a camera animation is in flight.
func (s *Surface) Animating() bool { return s.animStop != nil }

// Removed reports whether Remove has been called.
func (s *Surface) Removed() bool { return s.removed }

// On registers a listener for ev.
func (s *Surface) On(ev Event, fn Listener) ListenerID {
	s.nextID++
	if s.listeners[ev] == nil {
		s.listeners[ev] = make(map[ListenerID]Listener)
	}
	s.listeners[ev][s.nextID] = fn
	return s.nextID
}

// Off removes a listener registered with On.
func (s *Surface) Off(ev Event, id ListenerID) {
	delete(s.listeners[ev], id)
	if len(s.listeners[ev]) == 0 {
		delete(s.listeners, ev)
	}
}

// ListenerCount counts surface listeners and marker click handlers.
func (s *Surface) ListenerCount() int {
	n := 0
	for _, ls := range s.listeners {
		n += len(ls)
	}
	for _, m := range s.markers {
		if m.onClick != nil {
			n++
		}
	}
	return n
}

func (s *Surface) emit(info EventInfo) {
	ls := s.listeners[info.Type]
	if len(ls) == 0 {
		return
	}
	ids := make([]ListenerID, 0, len(ls))
	for id := range ls {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if s.removed {
			return
		}
		if fn, ok := s.listeners[info.Type][id]; ok {
			fn(info)
		}
	}
}

// Remove tears the surface down: in-flight animations and tile loads are
// cancelled, every listener and marker is dropped, and nothing queued for
// this surface will run afterwards. Calling Remove twice is a no-op.
func (s *Surface) Remove() {
	if s.removed {
		return
	}
	s.removed = true
	s.stopAnimation()
	s.cancel()
	s.listeners = make(map[Event]map[ListenerID]Listener)
	s.markers = make(map[string]*markerLayer)
	s.tiles = make(map[string]TileStatus)
	s.openPopup = ""
}

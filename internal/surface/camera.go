package surface

import (
	"github.com/paulmach/orb"

	"github.com/Copubah/dirty-nairobi/internal/geo"
)

// SetView moves the camera. The zoom is clamped to the zoom range and the
// center is limited so the viewport stays inside the max bounds. With
// animate set, moveend/zoomend fire when the animation completes; otherwise
// they fire before SetView returns.
func (s *Surface) SetView(center orb.Point, zoom int, animate bool) {
	if s.removed {
		return
	}
	zoom = s.opts.Zooms.Clamp(zoom)
	center = geo.LimitCenter(center, zoom, s.size(), s.opts.MaxBounds)

	next := geo.Viewport{Center: center, Zoom: zoom, Size: s.size()}
	if next == s.view {
		return
	}
	s.move(next, animate)
}

// FitBounds sets the camera to the tightest zoom showing b with padding
// pixels on every side.
func (s *Surface) FitBounds(b orb.Bound, padding float64, animate bool) {
	if s.removed {
		return
	}
	z := geo.BoundsZoom(b, s.size(), padding, s.view.Zoom, s.opts.Zooms.Min, s.opts.Zooms.Max)
	s.SetView(geo.FitCenter(b, z), z, animate)
}

// PanBy moves the center by offset pixels as a user drag would. The offset
// is damped by the max-bounds viscosity and, once the gesture ends, the view
// is brought back inside the bounds.
func (s *Surface) PanBy(offset geo.Pixel) {
	if s.removed {
		return
	}
	offset = geo.ViscousOffset(s.view, offset, s.opts.MaxBounds, s.opts.MaxBoundsViscosity)
	if offset == (geo.Pixel{}) {
		return
	}
	c := geo.Project(s.view.Center, float64(s.view.Zoom)).Add(offset)
	next := s.view
	next.Center = geo.Unproject(c, float64(s.view.Zoom))
	s.move(next, false)

	limited := geo.LimitCenter(s.view.Center, s.view.Zoom, s.size(), s.opts.MaxBounds)
	if limited != s.view.Center {
		s.SetView(limited, s.view.Zoom, true)
	}
}

func (s *Surface) move(next geo.Viewport, animate bool) {
	zoomChanged := next.Zoom != s.view.Zoom
	if s.animStop != nil {
		// A superseded animation still owes its zoomend.
		zoomChanged = zoomChanged || s.animZoomDiff
		s.stopAnimation()
	}

	s.view = next
	s.emit(EventInfo{Type: EventMoveStart, View: s.view})
	if s.removed {
		return
	}

	if !animate || s.opts.AnimationDuration <= 0 {
		s.finishMove(zoomChanged)
		return
	}

	s.animGen++
	gen := s.animGen
	s.animZoomDiff = zoomChanged
	s.animStop = s.loop.AfterFunc(s.opts.AnimationDuration, func() {
		if s.removed || gen != s.animGen {
			return
		}
		s.animStop = nil
		s.finishMove(s.animZoomDiff)
	})
}

func (s *Surface) finishMove(zoomChanged bool) {
	s.animZoomDiff = false
	if zoomChanged {
		s.emit(EventInfo{Type: EventZoomEnd, View: s.view})
	}
	if s.removed {
		return
	}
	s.emit(EventInfo{Type: EventMoveEnd, View: s.view})
	if s.removed {
		return
	}
	s.loadTiles()
}

func (s *Surface) stopAnimation() {
	if s.animStop == nil {
		return
	}
	s.animStop()
	s.animStop = nil
	s.animGen++
}

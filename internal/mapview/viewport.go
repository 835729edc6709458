package mapview

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/Copubah/dirty-nairobi/internal/geo"
)

// Viewport controller decisions.
const (
	policyUnchanged = "unchanged"
	policyRecenter  = "recenter"
	policyFit       = "fit"
)

// frame applies the viewport policy after a reconciliation:
//
//   - no markers: leave the camera alone.
//   - one marker: recenter on it at the single-marker zoom unless it is
//     already visible.
//   - two or more: fit their bounds with padding.
func (e *Engine) frame(m *mount) string {
	policy := policyUnchanged
	switch len(m.order) {
	case 0:
	case 1:
		p := m.markers[m.order[0]].Position
		if !m.surf.View().Contains(p) {
			m.surf.SetView(p, e.opts.SingleZoom, true)
			policy = policyRecenter
		}
	default:
		m.surf.FitBounds(m.markerBounds(), e.opts.FitPadding, true)
		policy = policyFit
	}
	e.metrics.ViewportChanges.WithLabelValues(policy).Inc()
	return policy
}

func (m *mount) markerBounds() orb.Bound {
	first := m.markers[m.order[0]].Position
	b := orb.Bound{Min: first, Max: first}
	for _, id := range m.order[1:] {
		b = b.Extend(m.markers[id].Position)
	}
	return b
}

// View returns the current camera.
func (e *Engine) View(ctx context.Context) (geo.Viewport, error) {
	var v geo.Viewport
	err := e.call(ctx, func() error {
		m, err := e.live()
		if err != nil {
			return err
		}
		v = m.surf.View()
		return nil
	})
	return v, err
}

// SetView moves the camera as a user would. Zoom is clamped to the zoom range
// and the center limited to the boundary.
func (e *Engine) SetView(ctx context.Context, center orb.Point, zoom int, animate bool) (geo.Viewport, error) {
	var v geo.Viewport
	err := e.call(ctx, func() error {
		m, err := e.live()
		if err != nil {
			return err
		}
		m.surf.SetView(center, zoom, animate)
		v = m.surf.View()
		return nil
	})
	return v, err
}

// Pan drags the camera by dx, dy pixels. Dragging resists leaving the
// boundary according to the configured viscosity.
func (e *Engine) Pan(ctx context.Context, dx, dy float64) (geo.Viewport, error) {
	var v geo.Viewport
	err := e.call(ctx, func() error {
		m, err := e.live()
		if err != nil {
			return err
		}
		m.surf.PanBy(geo.Pixel{X: dx, Y: dy})
		v = m.surf.View()
		return nil
	})
	return v, err
}

package mapview

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/Copubah/dirty-nairobi/internal/domain"
)

// Marker is the on-map representation of one report. Handle identifies this
// particular marker: it survives reconciliations while the report persists
// and changes only if the marker is destroyed and created again.
type Marker struct {
	ReportID  string    `json:"report_id"`
	Handle    string    `json:"handle"`
	Position  orb.Point `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// ReconcileResult counts what one reconciliation did.
type ReconcileResult struct {
	Added      int `json:"added"`
	Removed    int `json:"removed"`
	Moved      int `json:"moved"`
	Skipped    int `json:"skipped"`    // invalid geometry
	Duplicates int `json:"duplicates"` // repeated ids, first occurrence kept
	Live       int `json:"live"`
}

// Changed reports whether the marker set or any marker position changed.
func (r ReconcileResult) Changed() bool {
	return r.Added+r.Removed+r.Moved > 0
}

// Reconcile makes the marker set the exact image of reports: markers for ids
// no longer present are destroyed, markers for new ids are created and
// persisting markers are left alone (moved only if their coordinates
// changed). The viewport controller and dispatch table are updated in the
// same loop turn. An empty list clears the map.
func (e *Engine) Reconcile(ctx context.Context, h *Handle, reports []domain.Report) (ReconcileResult, error) {
	var res ReconcileResult
	err := e.call(ctx, func() error {
		if err := e.check(h); err != nil {
			return err
		}
		res = e.reconcile(e.mount, reports)
		return nil
	})
	return res, err
}

func (e *Engine) reconcile(m *mount, reports []domain.Report) ReconcileResult {
	start := e.clock.Now()
	var res ReconcileResult

	next := make(map[string]domain.Report, len(reports))
	order := make([]string, 0, len(reports))
	for _, r := range reports {
		if !r.HasValidGeometry() {
			res.Skipped++
			e.metrics.ReportsSkipped.WithLabelValues("invalid_geometry").Inc()
			e.logger.Debug("report skipped, invalid geometry",
				"report_id", r.ID, "latitude", r.Latitude, "longitude", r.Longitude)
			continue
		}
		if _, dup := next[r.ID]; dup {
			res.Duplicates++
			e.metrics.ReportsSkipped.WithLabelValues("duplicate").Inc()
			continue
		}
		next[r.ID] = r
		order = append(order, r.ID)
	}

	for id := range m.markers {
		if _, ok := next[id]; ok {
			continue
		}
		m.surf.RemoveMarker(id)
		delete(m.markers, id)
		delete(m.images, id)
		res.Removed++
	}

	for _, id := range order {
		pos := next[id].Position()
		if mk, ok := m.markers[id]; ok {
			if mk.Position != pos {
				mk.Position = pos
				m.surf.MoveMarker(id, pos)
				res.Moved++
			}
			continue
		}
		m.markers[id] = &Marker{
			ReportID:  id,
			Handle:    uuid.NewString(),
			Position:  pos,
			CreatedAt: e.clock.Now(),
		}
		m.surf.AddMarker(id, pos, e.markerClick(m, id))
		res.Added++
	}

	m.order = order
	m.dispatch = next
	m.reported = len(reports)
	res.Live = len(m.markers)

	if res.Changed() {
		m.clusters = nil
		m.spider = nil
	}
	policy := e.frame(m)

	e.checkImages(m, next)

	e.metrics.Reconciliations.Inc()
	e.metrics.MarkersCreated.Add(float64(res.Added))
	e.metrics.MarkersRemoved.Add(float64(res.Removed))
	e.metrics.MarkersMoved.Add(float64(res.Moved))
	e.metrics.LiveMarkers.Set(float64(res.Live))
	e.metrics.ReconcileDuration.Observe(e.clock.Since(start).Seconds())

	if res.Changed() || res.Skipped > 0 {
		e.logger.Debug("markers reconciled",
			"added", res.Added,
			"removed", res.Removed,
			"moved", res.Moved,
			"skipped", res.Skipped,
			"markers", res.Live,
			"viewport", policy,
		)
	}
	return res
}

// Markers returns the live markers in report order.
func (e *Engine) Markers(ctx context.Context) ([]Marker, error) {
	var out []Marker
	err := e.call(ctx, func() error {
		m, err := e.live()
		if err != nil {
			return err
		}
		out = m.markerList()
		return nil
	})
	return out, err
}

func (m *mount) markerList() []Marker {
	out := make([]Marker, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.markers[id])
	}
	return out
}

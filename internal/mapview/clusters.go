package mapview

import (
	"context"
	"fmt"

	"github.com/Copubah/dirty-nairobi/internal/cluster"
	"github.com/Copubah/dirty-nairobi/internal/geo"
)

type spiderState struct {
	clusterID uint32
	legs      []cluster.Leg
}

// ClusterClick describes what a cluster click did.
type ClusterClick struct {
	Action cluster.Action `json:"action"`
	View   geo.Viewport   `json:"view"`
	Legs   []cluster.Leg  `json:"legs,omitempty"`
}

// clusters returns the partition of live markers at the current zoom,
// computing it when the cache was invalidated. Loop only.
func (e *Engine) clusters(m *mount) cluster.Result {
	zoom := m.surf.View().Zoom
	if m.clusters != nil && m.clusters.Zoom == zoom {
		return *m.clusters
	}
	points := make([]cluster.Point, 0, len(m.order))
	for _, id := range m.order {
		points = append(points, cluster.Point{ID: id, Pos: m.markers[id].Position})
	}
	res := cluster.Compute(points, zoom, e.opts.ClusterRadius)
	m.clusters = &res
	m.spider = nil
	e.metrics.Clusters.Set(float64(len(res.Clusters)))
	return res
}

// Clusters returns the clusters and unclustered markers at the current zoom.
func (e *Engine) Clusters(ctx context.Context) (cluster.Result, error) {
	var res cluster.Result
	err := e.call(ctx, func() error {
		m, err := e.live()
		if err != nil {
			return err
		}
		res = e.clusters(m)
		return nil
	})
	return res, err
}

// ClickCluster handles a click on cluster id. Below max zoom the camera moves
// in on the cluster's members; at max zoom the members are spread out around
// the cluster center so each can be clicked.
func (e *Engine) ClickCluster(ctx context.Context, id uint32) (ClusterClick, error) {
	var click ClusterClick
	err := e.call(ctx, func() error {
		m, err := e.live()
		if err != nil {
			return err
		}
		c, ok := e.clusters(m).Find(id)
		if !ok {
			return fmt.Errorf("click cluster %d: %w", id, ErrUnknownCluster)
		}
		click = e.clickCluster(m, c)
		return nil
	})
	return click, err
}

func (e *Engine) clickCluster(m *mount, c cluster.Cluster) ClusterClick {
	view := m.surf.View()
	zooms := m.surf.Zooms()
	action := cluster.ClickAction(view.Zoom, zooms.Max)

	if action == cluster.ActionSpiderfy {
		legs := cluster.Spiderfy(c, view.Zoom)
		m.spider = &spiderState{clusterID: c.ID, legs: legs}
		return ClusterClick{Action: action, View: view, Legs: legs}
	}

	// A cluster whose bounds already fit at this zoom still has to zoom in
	// by one level, or clicking it would do nothing.
	fit := geo.BoundsZoom(c.Bounds, view.Size, 0, view.Zoom, zooms.Min, zooms.Max)
	if fit <= view.Zoom {
		m.surf.SetView(c.Center, view.Zoom+1, true)
	} else {
		m.surf.FitBounds(c.Bounds, 0, true)
	}
	return ClusterClick{Action: action, View: m.surf.View()}
}

// Unspiderfy collapses a spiderfied cluster back into its glyph.
func (e *Engine) Unspiderfy(ctx context.Context) error {
	return e.call(ctx, func() error {
		m, err := e.live()
		if err != nil {
			return err
		}
		m.spider = nil
		return nil
	})
}

package mapview

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/Copubah/dirty-nairobi/internal/cluster"
	"github.com/Copubah/dirty-nairobi/internal/domain"
	"github.com/Copubah/dirty-nairobi/internal/geo"
	"github.com/Copubah/dirty-nairobi/internal/surface"
)

// Overlay is the status panel drawn over the map.
type Overlay struct {
	Kind    string `json:"kind"` // loading, empty or stats
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// overlayFor picks the overlay for a report list of the given length.
// Loading replaces the empty-state message rather than stacking on it.
func overlayFor(loading bool, photos int) Overlay {
	switch {
	case loading:
		return Overlay{Kind: "loading", Message: "Loading photos..."}
	case photos == 0:
		return Overlay{Kind: "empty", Message: "No photos to display", Detail: "Upload the first photo to get started!"}
	case photos == 1:
		return Overlay{Kind: "stats", Message: "1 photo displayed"}
	default:
		return Overlay{Kind: "stats", Message: fmt.Sprintf("%d photos displayed", photos)}
	}
}

// ClusterView is a cluster with its glyph.
type ClusterView struct {
	cluster.Cluster
	Icon cluster.Icon `json:"icon"`
}

// MarkerView is a live marker as rendered.
type MarkerView struct {
	Marker
	Clustered   bool `json:"clustered"`
	ImageBroken bool `json:"image_broken,omitempty"`
}

// Spider is the spiderfied cluster, if any.
type Spider struct {
	ClusterID uint32        `json:"cluster_id"`
	Legs      []cluster.Leg `json:"legs"`
}

// State is a consistent snapshot of everything the map renders.
type State struct {
	Mounted   bool               `json:"mounted"`
	Container surface.Container  `json:"container"`
	MountedAt time.Time          `json:"mounted_at"`
	Viewport  geo.Viewport       `json:"viewport"`
	Bounds    orb.Bound          `json:"bounds"`
	MaxBounds domain.Boundary    `json:"max_bounds"`
	Zooms     domain.ZoomRange   `json:"zooms"`
	Animating bool               `json:"animating"`
	Markers   []MarkerView       `json:"markers"`
	Clusters  []ClusterView      `json:"clusters"`
	Spider    *Spider            `json:"spider,omitempty"`
	OpenPopup string             `json:"open_popup,omitempty"`
	Overlay   Overlay            `json:"overlay"`
	Tiles     []surface.TileView `json:"tiles"`
}

// State returns a snapshot of the rendered map. When nothing is mounted only
// the overlay is filled in.
func (e *Engine) State(ctx context.Context) (State, error) {
	var st State
	err := e.do(ctx, func() error {
		m := e.mount
		if m == nil {
			st.Overlay = overlayFor(e.loading, 0)
			return nil
		}
		st = e.state(m)
		return nil
	})
	return st, err
}

func (e *Engine) state(m *mount) State {
	res := e.clusters(m)

	clustered := make(map[string]bool)
	views := make([]ClusterView, 0, len(res.Clusters))
	for _, c := range res.Clusters {
		for _, id := range c.Members {
			clustered[id] = true
		}
		views = append(views, ClusterView{Cluster: c, Icon: c.Icon()})
	}

	markers := make([]MarkerView, 0, len(m.order))
	for _, mk := range m.markerList() {
		markers = append(markers, MarkerView{
			Marker:      mk,
			Clustered:   clustered[mk.ReportID],
			ImageBroken: m.images[mk.ReportID] == imageBroken,
		})
	}

	st := State{
		Mounted:   true,
		Container: m.surf.Container(),
		MountedAt: m.mountedAt,
		Viewport:  m.surf.View(),
		Bounds:    m.surf.Bounds(),
		MaxBounds: m.boundary,
		Zooms:     m.surf.Zooms(),
		Animating: m.surf.Animating(),
		Markers:   markers,
		Clusters:  views,
		OpenPopup: m.surf.OpenPopup(),
		Overlay:   overlayFor(e.loading, m.reported),
		Tiles:     m.surf.Tiles(),
	}
	if m.spider != nil {
		st.Spider = &Spider{ClusterID: m.spider.clusterID, Legs: m.spider.legs}
	}
	return st
}

// Features renders the current zoom as GeoJSON: one point per cluster and
// one per unclustered marker. Members of a spiderfied cluster are emitted at
// their leg positions instead of the cluster point.
func (e *Engine) Features(ctx context.Context) (*geojson.FeatureCollection, error) {
	var fc *geojson.FeatureCollection
	err := e.call(ctx, func() error {
		m, err := e.live()
		if err != nil {
			return err
		}
		fc = e.features(m)
		return nil
	})
	return fc, err
}

func (e *Engine) features(m *mount) *geojson.FeatureCollection {
	res := e.clusters(m)
	fc := geojson.NewFeatureCollection()

	for _, c := range res.Clusters {
		if m.spider != nil && m.spider.clusterID == c.ID {
			for _, leg := range m.spider.legs {
				f := markerFeature(m, leg.ReportID, leg.Position)
				f.Properties["spider_cluster_id"] = c.ID
				fc.Append(f)
			}
			continue
		}
		f := geojson.NewFeature(c.Center)
		f.Properties["cluster"] = true
		f.Properties["cluster_id"] = c.ID
		f.Properties["point_count"] = c.Count()
		f.Properties["tier"] = string(c.Tier)
		f.Properties["class_name"] = c.Icon().ClassName
		f.BBox = geojson.NewBBox(c.Bounds)
		fc.Append(f)
	}
	for _, id := range res.Singles {
		fc.Append(markerFeature(m, id, m.markers[id].Position))
	}
	return fc
}

func markerFeature(m *mount, id string, pos orb.Point) *geojson.Feature {
	f := geojson.NewFeature(pos)
	f.ID = id
	f.Properties["cluster"] = false
	f.Properties["report_id"] = id
	f.Properties["handle"] = m.markers[id].Handle
	if r, ok := m.dispatch[id]; ok {
		f.Properties["description"] = r.Description
	}
	return f
}

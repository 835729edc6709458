package cluster

import (
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Copubah/dirty-nairobi/internal/geo"
)

const testZoom = 15

var origin = geo.Project(orb.Point{36.8219, -1.2921}, testZoom)

// at returns a point dx, dy pixels from the Nairobi center at testZoom.
func at(id string, dx, dy float64) Point {
	return Point{ID: id, Pos: geo.Unproject(origin.Add(geo.Pixel{X: dx, Y: dy}), testZoom)}
}

func TestCompute_Empty(t *testing.T) {
	res := Compute(nil, testZoom, DefaultRadius)
	assert.Empty(t, res.Clusters)
	assert.Empty(t, res.Singles)
	assert.Equal(t, testZoom, res.Zoom)
}

func TestCompute_WithinRadiusMerges(t *testing.T) {
	res := Compute([]Point{at("a", 0, 0), at("b", 30, 30)}, testZoom, DefaultRadius)

	require.Len(t, res.Clusters, 1)
	assert.Equal(t, []string{"a", "b"}, res.Clusters[0].Members)
	assert.Empty(t, res.Singles)
}

func TestCompute_BeyondRadiusStaysApart(t *testing.T) {
	res := Compute([]Point{at("a", 0, 0), at("b", 60, 0)}, testZoom, DefaultRadius)

	assert.Empty(t, res.Clusters)
	assert.Equal(t, []string{"a", "b"}, res.Singles)
}

func TestCompute_ChainsThroughIntermediate(t *testing.T) {
	points := []Point{at("a", 0, 0), at("b", 40, 0), at("c", 80, 0), at("far", 400, 400)}
	res := Compute(points, testZoom, DefaultRadius)

	require.Len(t, res.Clusters, 1)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, res.Clusters[0].Members)
	assert.Equal(t, []string{"far"}, res.Singles)
}

func TestCompute_AcrossGridCells(t *testing.T) {
	// Points straddle a cell edge but are 10px apart.
	res := Compute([]Point{at("a", 49, 49), at("b", 55, 57)}, testZoom, DefaultRadius)
	require.Len(t, res.Clusters, 1)
}

func TestCompute_RecomputedPerZoom(t *testing.T) {
	points := []Point{at("a", 0, 0), at("b", 80, 0)}

	low := Compute(points, testZoom-1, DefaultRadius)
	high := Compute(points, testZoom, DefaultRadius)

	assert.Len(t, low.Clusters, 1, "80px at zoom 15 is 40px at zoom 14")
	assert.Empty(t, high.Clusters)
}

func TestCompute_ClusterGeometry(t *testing.T) {
	a, b := at("a", 0, 0), at("b", 20, 0)
	res := Compute([]Point{a, b}, testZoom, DefaultRadius)
	require.Len(t, res.Clusters, 1)
	c := res.Clusters[0]

	assert.InDelta(t, (a.Pos.Lon()+b.Pos.Lon())/2, c.Center.Lon(), 1e-12)
	assert.True(t, c.Bounds.Contains(a.Pos))
	assert.True(t, c.Bounds.Contains(b.Pos))
	assert.NotZero(t, c.ID)

	found, ok := res.Find(c.ID)
	require.True(t, ok)
	assert.Equal(t, c.Members, found.Members)
	_, ok = res.ClusterOf("b")
	assert.True(t, ok)
}

func TestCompute_IDsAreFreshPerComputation(t *testing.T) {
	points := []Point{at("a", 0, 0), at("b", 10, 0)}
	first := Compute(points, testZoom, DefaultRadius)
	second := Compute(points, testZoom, DefaultRadius)

	_, ok := second.Find(first.Clusters[0].ID)
	assert.False(t, ok)
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		count int
		want  Tier
	}{
		{2, TierSmall},
		{10, TierSmall},
		{11, TierMedium},
		{50, TierMedium},
		{51, TierLarge},
		{500, TierLarge},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.count), func(t *testing.T) {
			assert.Equal(t, tt.want, TierFor(tt.count))
		})
	}
}

func TestIcon_LabelIsExactCount(t *testing.T) {
	members := make([]string, 57)
	for i := range members {
		members[i] = fmt.Sprint(i)
	}
	icon := Cluster{Members: members, Tier: TierFor(57)}.Icon()

	assert.Equal(t, "<div><span>57</span></div>", icon.HTML)
	assert.Equal(t, "marker-cluster marker-cluster-large", icon.ClassName)
	assert.Equal(t, 40, icon.Size)
}

func TestClickAction(t *testing.T) {
	assert.Equal(t, ActionZoomToBounds, ClickAction(17, 18))
	assert.Equal(t, ActionSpiderfy, ClickAction(18, 18))
}

func spiderCluster(n int) Cluster {
	points := make([]Point, n)
	for i := range points {
		points[i] = at(fmt.Sprintf("r%d", i), 0, 0)
	}
	res := Compute(points, 18, DefaultRadius)
	return res.Clusters[0]
}

func TestSpiderfy_CircleBelowNine(t *testing.T) {
	c := spiderCluster(4)
	legs := Spiderfy(c, 18)
	require.Len(t, legs, 4)

	center := geo.Project(c.Center, 18)
	center.Y += 10
	seen := make(map[orb.Point]bool)
	for i, leg := range legs {
		assert.Equal(t, c.Members[i], leg.ReportID)
		d := geo.Project(leg.Position, 18).Dist(center)
		assert.InDelta(t, 35, d, 1.5, "leg %d sits on the minimum circle", i)
		seen[leg.Position] = true
	}
	assert.Len(t, seen, 4)
}

func TestSpiderfy_SpiralFromNine(t *testing.T) {
	c := spiderCluster(12)
	legs := Spiderfy(c, 18)
	require.Len(t, legs, 12)

	center := geo.Project(c.Center, 18)
	first := geo.Project(legs[0].Position, 18).Dist(center)
	last := geo.Project(legs[11].Position, 18).Dist(center)
	assert.Greater(t, first, last, "index 0 is the outermost leg")

	seen := make(map[orb.Point]bool)
	for _, leg := range legs {
		seen[leg.Position] = true
	}
	assert.Len(t, seen, 12)
}

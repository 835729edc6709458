// Package cluster groups markers that sit within a pixel radius of each other
// at one zoom level. Clusters are recomputed from scratch for every marker set
// and zoom; their ids are only valid for the computation that produced them.
package cluster

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/Copubah/dirty-nairobi/internal/geo"
)

// DefaultRadius is the merge distance in screen pixels.
const DefaultRadius = 50.0

// Point is one marker fed to the engine.
type Point struct {
	ID  string
	Pos orb.Point
}

// Cluster is a group of two or more markers at one zoom.
type Cluster struct {
	ID      uint32    `json:"id"`
	Members []string  `json:"members"`
	Center  orb.Point `json:"center"`
	Bounds  orb.Bound `json:"bounds"`
	Tier    Tier      `json:"tier"`
}

// Count returns the number of member markers.
func (c Cluster) Count() int { return len(c.Members) }

// Result is the partition of a marker set at one zoom.
type Result struct {
	Zoom     int       `json:"zoom"`
	Clusters []Cluster `json:"clusters"`
	Singles  []string  `json:"singles"`
}

// Find returns the cluster with the given id.
func (r Result) Find(id uint32) (Cluster, bool) {
	for _, c := range r.Clusters {
		if c.ID == id {
			return c, true
		}
	}
	return Cluster{}, false
}

// ClusterOf returns the cluster containing the marker, if it is clustered.
func (r Result) ClusterOf(markerID string) (Cluster, bool) {
	for _, c := range r.Clusters {
		for _, m := range c.Members {
			if m == markerID {
				return c, true
			}
		}
	}
	return Cluster{}, false
}

type cell struct{ x, y int }

// Compute partitions points at zoom. Two markers whose projected distance
// is at most radius end up in the same cluster, and so does any chain of
// such pairs. Members keep input order; clusters are ordered by their first
// member.
func Compute(points []Point, zoom int, radius float64) Result {
	res := Result{Zoom: zoom}
	if len(points) == 0 {
		return res
	}
	if radius <= 0 {
		radius = DefaultRadius
	}

	px := make([]geo.Pixel, len(points))
	grid := make(map[cell][]int, len(points))
	for i, p := range points {
		px[i] = geo.Project(p.Pos, float64(zoom))
		c := cellOf(px[i], radius)
		grid[c] = append(grid[c], i)
	}

	uf := newUnionFind(len(points))
	for i := range points {
		c := cellOf(px[i], radius)
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for _, j := range grid[cell{c.x + dx, c.y + dy}] {
					if j <= i {
						continue
					}
					if px[i].Dist(px[j]) <= radius {
						uf.union(i, j)
					}
				}
			}
		}
	}

	groups := make(map[int][]int)
	var roots []int
	for i := range points {
		r := uf.find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], i)
	}
	sort.Slice(roots, func(a, b int) bool { return groups[roots[a]][0] < groups[roots[b]][0] })

	used := make(map[uint32]bool)
	for _, r := range roots {
		idx := groups[r]
		if len(idx) == 1 {
			res.Singles = append(res.Singles, points[idx[0]].ID)
			continue
		}
		res.Clusters = append(res.Clusters, build(points, idx, newID(used)))
	}
	return res
}

func build(points []Point, idx []int, id uint32) Cluster {
	first := points[idx[0]].Pos
	c := Cluster{
		ID:      id,
		Members: make([]string, 0, len(idx)),
		Bounds:  orb.Bound{Min: first, Max: first},
		Tier:    TierFor(len(idx)),
	}
	var sumLng, sumLat float64
	for _, i := range idx {
		p := points[i]
		c.Members = append(c.Members, p.ID)
		c.Bounds = c.Bounds.Extend(p.Pos)
		sumLng += p.Pos.Lon()
		sumLat += p.Pos.Lat()
	}
	n := float64(len(idx))
	c.Center = orb.Point{sumLng / n, sumLat / n}
	return c
}

func newID(used map[uint32]bool) uint32 {
	for {
		id := uuid.New().ID()
		if !used[id] {
			used[id] = true
			return id
		}
	}
}

func cellOf(p geo.Pixel, size float64) cell {
	return cell{int(math.Floor(p.X / size)), int(math.Floor(p.Y / size))}
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

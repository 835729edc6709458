package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tile addresses one slippy-map tile.
type Tile struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

// Key returns a stable "z/x/y" identifier.
func (t Tile) Key() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// URL expands a {s}/{z}/{x}/{y} template. Subdomains rotate by tile position.
func (t Tile) URL(template string, subdomains []string) string {
	url := template
	if len(subdomains) > 0 {
		idx := (t.X + t.Y) % len(subdomains)
		url = strings.ReplaceAll(url, "{s}", subdomains[idx])
	}
	url = strings.ReplaceAll(url, "{z}", strconv.Itoa(t.Z))
	url = strings.ReplaceAll(url, "{x}", strconv.Itoa(t.X))
	url = strings.ReplaceAll(url, "{y}", strconv.Itoa(t.Y))
	return url
}

// VisibleTiles lists the tiles intersecting the viewport, row by row.
func VisibleTiles(v Viewport) []Tile {
	minPx, maxPx := v.PixelBounds()
	n := int(math.Pow(2, float64(v.Zoom)))

	x0 := clampInt(int(math.Floor(minPx.X/TileSize)), 0, n-1)
	x1 := clampInt(int(math.Floor((maxPx.X-1)/TileSize)), 0, n-1)
	y0 := clampInt(int(math.Floor(minPx.Y/TileSize)), 0, n-1)
	y1 := clampInt(int(math.Floor((maxPx.Y-1)/TileSize)), 0, n-1)

	tiles := make([]Tile, 0, (x1-x0+1)*(y1-y0+1))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			tiles = append(tiles, Tile{Z: v.Zoom, X: x, Y: y})
		}
	}
	return tiles
}

// Package geo holds the Web-Mercator pixel math the map surface and the
// cluster engine share: projection, viewport bounds, fit-bounds zoom, and
// max-bounds center limiting.
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// TileSize is the edge length of one map tile in pixels at any zoom.
const TileSize = 256

// maxLatitude is the Web-Mercator latitude limit.
const maxLatitude = 85.0511287798

// Pixel is a position in world pixel space at some zoom level.
// X grows east, Y grows south.
type Pixel struct {
	X, Y float64
}

func (p Pixel) Add(o Pixel) Pixel { return Pixel{p.X + o.X, p.Y + o.Y} }
func (p Pixel) Sub(o Pixel) Pixel { return Pixel{p.X - o.X, p.Y - o.Y} }

// Scale multiplies both components by f.
func (p Pixel) Scale(f float64) Pixel { return Pixel{p.X * f, p.Y * f} }

// Dist returns the euclidean distance between two pixels.
func (p Pixel) Dist(o Pixel) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Round rounds both components to the nearest integer pixel.
func (p Pixel) Round() Pixel {
	return Pixel{math.Round(p.X), math.Round(p.Y)}
}

// WorldSize returns the width of the whole world in pixels at zoom.
func WorldSize(zoom float64) float64 {
	return TileSize * math.Pow(2, zoom)
}

// Project converts a (lng, lat) point to world pixels at the given zoom.
func Project(p orb.Point, zoom float64) Pixel {
	lat := math.Max(-maxLatitude, math.Min(maxLatitude, p.Lat()))
	sin := math.Sin(lat * math.Pi / 180)
	x := (p.Lon() + 180) / 360
	y := 0.5 - 0.25*math.Log((1+sin)/(1-sin))/math.Pi

	scale := WorldSize(zoom)
	return Pixel{X: x * scale, Y: y * scale}
}

// Unproject converts world pixels at the given zoom back to (lng, lat).
func Unproject(px Pixel, zoom float64) orb.Point {
	scale := WorldSize(zoom)
	x := px.X / scale
	y := px.Y / scale

	lng := x*360 - 180
	lat := math.Atan(math.Sinh(math.Pi*(1-2*y))) * 180 / math.Pi
	return orb.Point{lng, lat}
}

// ProjectBound returns the pixel rectangle (min = north-west corner) of b.
func ProjectBound(b orb.Bound, zoom float64) (minPx, maxPx Pixel) {
	nw := Project(orb.Point{b.Min.Lon(), b.Max.Lat()}, zoom)
	se := Project(orb.Point{b.Max.Lon(), b.Min.Lat()}, zoom)
	return nw, se
}

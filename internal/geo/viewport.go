package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// Size is a pixel extent.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Half returns the center offset of the extent.
func (s Size) Half() Pixel {
	return Pixel{s.Width / 2, s.Height / 2}
}

// Viewport is the camera: a center, an integer zoom level and the pixel size
// of the container it is drawn into.
type Viewport struct {
	Center orb.Point `json:"center"`
	Zoom   int       `json:"zoom"`
	Size   Size      `json:"size"`
}

// PixelBounds returns the world-pixel rectangle covered by the viewport.
func (v Viewport) PixelBounds() (minPx, maxPx Pixel) {
	c := Project(v.Center, float64(v.Zoom))
	half := v.Size.Half()
	return c.Sub(half), c.Add(half)
}

// Bounds returns the geographic rectangle visible in the viewport.
func (v Viewport) Bounds() orb.Bound {
	minPx, maxPx := v.PixelBounds()
	nw := Unproject(minPx, float64(v.Zoom))
	se := Unproject(maxPx, float64(v.Zoom))
	return orb.Bound{
		Min: orb.Point{nw.Lon(), se.Lat()},
		Max: orb.Point{se.Lon(), nw.Lat()},
	}
}

// Contains reports whether p is visible in the viewport.
func (v Viewport) Contains(p orb.Point) bool {
	return v.Bounds().Contains(p)
}

// BoundsZoom returns the largest integer zoom at which b fits inside size
// after removing padding on every side, clamped to [minZoom, maxZoom].
// A degenerate bound (single point) yields maxZoom.
func BoundsZoom(b orb.Bound, size Size, padding float64, current, minZoom, maxZoom int) int {
	avail := Size{Width: size.Width - 2*padding, Height: size.Height - 2*padding}
	if avail.Width <= 0 || avail.Height <= 0 {
		return clampInt(current, minZoom, maxZoom)
	}

	nw, se := ProjectBound(b, float64(current))
	boundsW := math.Abs(se.X - nw.X)
	boundsH := math.Abs(se.Y - nw.Y)
	if boundsW == 0 && boundsH == 0 {
		return maxZoom
	}

	scale := math.Min(avail.Width/boundsW, avail.Height/boundsH)
	zoom := float64(current) + math.Log2(scale)
	// Round off float noise before flooring so an exact fit is not lost.
	zoom = math.Round(zoom*100) / 100
	return clampInt(int(math.Floor(zoom)), minZoom, maxZoom)
}

// FitCenter returns the center that places b in the middle of the viewport at zoom.
func FitCenter(b orb.Bound, zoom int) orb.Point {
	sw := Project(b.Min, float64(zoom))
	ne := Project(b.Max, float64(zoom))
	return Unproject(sw.Add(ne).Scale(0.5), float64(zoom))
}

// LimitCenter moves center the least amount needed for a viewport of the
// given size at zoom to stay inside maxBounds. When the viewport is larger
// than maxBounds along an axis it is centered on maxBounds along that axis.
func LimitCenter(center orb.Point, zoom int, size Size, maxBounds orb.Bound) orb.Point {
	c := Project(center, float64(zoom))
	half := size.Half()
	offset := boundsOffset(c.Sub(half), c.Add(half), maxBounds, zoom)
	if math.Abs(offset.X) <= 1 && math.Abs(offset.Y) <= 1 {
		return center
	}
	return Unproject(c.Add(offset), float64(zoom))
}

// ViscousOffset limits a pan offset so the viewport resists leaving
// maxBounds. viscosity 0 lets the pan through untouched, 1 stops it at the
// boundary edge; values in between let the view sink partially past the edge.
func ViscousOffset(v Viewport, offset Pixel, maxBounds orb.Bound, viscosity float64) Pixel {
	if viscosity <= 0 {
		return offset
	}
	minPx, maxPx := v.PixelBounds()
	bMin, bMax := ProjectBound(maxBounds, float64(v.Zoom))

	lowX, highX := bMin.X-minPx.X, bMax.X-maxPx.X
	lowY, highY := bMin.Y-minPx.Y, bMax.Y-maxPx.Y
	if lowX > highX {
		lowX, highX = (lowX+highX)/2, (lowX+highX)/2
	}
	if lowY > highY {
		lowY, highY = (lowY+highY)/2, (lowY+highY)/2
	}

	return Pixel{
		X: viscousAxis(offset.X, lowX, highX, viscosity),
		Y: viscousAxis(offset.Y, lowY, highY, viscosity),
	}
}

func viscousAxis(value, low, high, viscosity float64) float64 {
	if value < low {
		return value - (value-low)*viscosity
	}
	if value > high {
		return value - (value-high)*viscosity
	}
	return value
}

func boundsOffset(viewMin, viewMax Pixel, maxBounds orb.Bound, zoom int) Pixel {
	bMin, bMax := ProjectBound(maxBounds, float64(zoom))
	minOffset := bMin.Sub(viewMin)
	maxOffset := bMax.Sub(viewMax)
	return Pixel{
		X: rebound(minOffset.X, -maxOffset.X),
		Y: rebound(minOffset.Y, -maxOffset.Y),
	}
}

func rebound(left, right float64) float64 {
	if left+right > 0 {
		return math.Round(left-right) / 2
	}
	return math.Max(0, math.Ceil(left)) - math.Max(0, math.Floor(right))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

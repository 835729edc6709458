package domain

import (
	"errors"

	"github.com/paulmach/orb"
)

// Boundary is the geographic rectangle the camera is constrained to.
type Boundary struct {
	South, West, North, East float64
}

// Bound converts the boundary to an orb bound.
func (b Boundary) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
}

// Contains reports whether p lies inside the boundary, edges included.
func (b Boundary) Contains(p orb.Point) bool {
	return b.Bound().Contains(p)
}

// Validate checks that the rectangle is non-empty and within WGS-84 ranges.
func (b Boundary) Validate() error {
	if b.South >= b.North {
		return errors.New("boundary south must be less than north")
	}
	if b.West >= b.East {
		return errors.New("boundary west must be less than east")
	}
	if b.South < -85.0511 || b.North > 85.0511 || b.West < -180 || b.East > 180 {
		return errors.New("boundary outside web mercator range")
	}
	return nil
}

// ZoomRange is the inclusive range of integer zoom levels the camera may use.
type ZoomRange struct {
	Min, Max int
}

// Clamp limits z to the range.
func (r ZoomRange) Clamp(z int) int {
	if z < r.Min {
		return r.Min
	}
	if z > r.Max {
		return r.Max
	}
	return z
}

// Validate checks the range ordering and tile-pyramid limits.
func (r ZoomRange) Validate() error {
	if r.Min < 0 || r.Max > 22 {
		return errors.New("zoom range must lie within 0..22")
	}
	if r.Min > r.Max {
		return errors.New("min zoom must not exceed max zoom")
	}
	return nil
}

// Nairobi defaults.
var (
	NairobiCenter   = orb.Point{36.8219, -1.2921}
	NairobiBoundary = Boundary{South: -1.5, West: 36.5, North: -1.0, East: 37.2}
	DefaultZooms    = ZoomRange{Min: 10, Max: 18}
)

const (
	DefaultInitialZoom = 12
	DefaultSingleZoom  = 15
)

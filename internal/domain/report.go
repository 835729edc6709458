package domain

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/paulmach/orb"
)

// Report is a geotagged photo submission as served by the photo API.
type Report struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	ImageURL    string    `json:"s3_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`

	// Set when a decoded payload omitted the coordinate or sent null.
	noLatitude  bool
	noLongitude bool
}

// reportJSON is the wire form of Report. Coordinates are pointers so that a
// missing or null value can be told apart from 0.
type reportJSON struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	ImageURL    string    `json:"s3_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// UnmarshalJSON decodes a report, remembering absent coordinates.
func (r *Report) UnmarshalJSON(data []byte) error {
	var w reportJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Report{
		ID:          w.ID,
		Description: w.Description,
		ImageURL:    w.ImageURL,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
		noLatitude:  w.Latitude == nil,
		noLongitude: w.Longitude == nil,
	}
	if w.Latitude != nil {
		r.Latitude = *w.Latitude
	}
	if w.Longitude != nil {
		r.Longitude = *w.Longitude
	}
	return nil
}

// MarshalJSON encodes a report. An absent coordinate is written as null.
func (r Report) MarshalJSON() ([]byte, error) {
	w := reportJSON{
		ID:          r.ID,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if !r.noLatitude {
		lat := r.Latitude
		w.Latitude = &lat
	}
	if !r.noLongitude {
		lng := r.Longitude
		w.Longitude = &lng
	}
	return json.Marshal(w)
}

// HasCoordinates reports whether both coordinates were present.
func (r Report) HasCoordinates() bool {
	return !r.noLatitude && !r.noLongitude
}

// Position returns the report location as an orb point (lng, lat).
func (r Report) Position() orb.Point {
	return orb.Point{r.Longitude, r.Latitude}
}

// HasValidGeometry reports whether both coordinates are present and are
// finite WGS-84 degrees. Reports failing this check are skipped when building
// markers.
func (r Report) HasValidGeometry() bool {
	if !r.HasCoordinates() {
		return false
	}
	if !isFinite(r.Latitude) || !isFinite(r.Longitude) {
		return false
	}
	return r.Latitude >= -90 && r.Latitude <= 90 &&
		r.Longitude >= -180 && r.Longitude <= 180
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ReportSnapshot is one authoritative report list delivered by a source.
type ReportSnapshot struct {
	Reports   []Report
	Source    string // "api" or "kafka"
	Revision  string
	FetchedAt time.Time
	Commit    func(ctx context.Context) error
}

// Selection records a report chosen by the viewer for detail display.
type Selection struct {
	Report     Report    `json:"report"`
	SelectedAt time.Time `json:"selected_at"`
}

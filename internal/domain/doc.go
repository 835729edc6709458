// Package domain models geotagged field reports and the map geometry they
// are displayed on.
//
// # Reports
//
// A report is a single photo submission: an opaque id, a WGS-84 position,
// free-text description, a thumbnail URL and a creation timestamp. Reports are
// owned by the photo API; this service only reads them. The JSON shape matches
// the API's photo response:
//
//	{"id": "4f0c...", "description": "Blocked drain", "latitude": -1.2921,
//	 "longitude": 36.8219, "s3_url": "https://...", "created_at": "2024-05-01T09:30:00Z"}
//
// # Report lists
//
// Report lists are always full, authoritative snapshots, never deltas. The map
// engine diffs each snapshot against its live markers by id.
//
// # Geometry
//
// Positions are carried as [orb.Point] values in (lng, lat) order. A report
// has valid geometry when both coordinates are finite and within the WGS-84
// ranges. Reports outside the configured [Boundary] are still valid; the
// boundary only constrains the camera, and the photo API is expected to
// reject submissions outside it.
//
// # Default profile
//
// The built-in profile frames Nairobi:
//
//	center  -1.2921, 36.8219   zoom 12
//	bounds  SW -1.5, 36.5      NE -1.0, 37.2
//	zoom    min 10, max 18     single-report zoom 15
package domain

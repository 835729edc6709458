package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/viper"

	"github.com/Copubah/dirty-nairobi/internal/domain"
)

// Profile is the map geometry: camera, bounds, clustering and tiles.
type Profile struct {
	Center    CenterProfile   `mapstructure:"center"`
	Bounds    BoundsProfile   `mapstructure:"bounds"`
	Zoom      ZoomProfile     `mapstructure:"zoom"`
	Cluster   ClusterProfile  `mapstructure:"cluster"`
	Fit       FitProfile      `mapstructure:"fit"`
	Viewport  ViewportProfile `mapstructure:"viewport"`
	Viscosity float64         `mapstructure:"viscosity"`
	Animation time.Duration   `mapstructure:"animation"`
	Tiles     TilesProfile    `mapstructure:"tiles"`
}

// CenterProfile is the initial camera center in degrees.
type CenterProfile struct {
	Lat float64 `mapstructure:"lat"`
	Lng float64 `mapstructure:"lng"`
}

// BoundsProfile is the max-bounds rectangle the camera is held inside.
type BoundsProfile struct {
	South float64 `mapstructure:"south"`
	West  float64 `mapstructure:"west"`
	North float64 `mapstructure:"north"`
	East  float64 `mapstructure:"east"`
}

// ZoomProfile holds the zoom range, the initial zoom and the zoom used to
// recenter on a lone marker.
type ZoomProfile struct {
	Initial int `mapstructure:"initial"`
	Min     int `mapstructure:"min"`
	Max     int `mapstructure:"max"`
	Single  int `mapstructure:"single"`
}

// ClusterProfile sets the cluster merge radius in screen pixels.
type ClusterProfile struct {
	Radius float64 `mapstructure:"radius"`
}

// FitProfile sets the padding kept around markers when fitting the view.
type FitProfile struct {
	Padding float64 `mapstructure:"padding"`
}

// ViewportProfile is the pixel size of the map container.
type ViewportProfile struct {
	Width  float64 `mapstructure:"width"`
	Height float64 `mapstructure:"height"`
}

// TilesProfile describes the raster tile layer.
type TilesProfile struct {
	URL         string   `mapstructure:"url"`
	Subdomains  []string `mapstructure:"subdomains"`
	Attribution string   `mapstructure:"attribution"`
}

// LoadProfile reads the map profile. Defaults are the Nairobi profile; path,
// when non-empty, names a YAML file layered on top; MAP_* environment
// variables override both (MAP_ZOOM_INITIAL -> zoom.initial).
func LoadProfile(path string) (*Profile, error) {
	v := viper.New()

	v.SetDefault("center.lat", -1.2921)
	v.SetDefault("center.lng", 36.8219)
	v.SetDefault("bounds.south", -1.5)
	v.SetDefault("bounds.west", 36.5)
	v.SetDefault("bounds.north", -1.0)
	v.SetDefault("bounds.east", 37.2)
	v.SetDefault("zoom.initial", 12)
	v.SetDefault("zoom.min", 10)
	v.SetDefault("zoom.max", 18)
	v.SetDefault("zoom.single", 15)
	v.SetDefault("cluster.radius", 50)
	v.SetDefault("fit.padding", 20)
	v.SetDefault("viewport.width", 1024)
	v.SetDefault("viewport.height", 768)
	v.SetDefault("viscosity", 1.0)
	v.SetDefault("animation", "250ms")
	v.SetDefault("tiles.url", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("tiles.subdomains", []string{"a", "b", "c"})
	v.SetDefault("tiles.attribution", "&copy; OpenStreetMap contributors")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read map profile: %w", err)
		}
	}

	v.SetEnvPrefix("MAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("unmarshal map profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that the profile describes a usable camera.
func (p *Profile) Validate() error {
	var errs []string

	if err := p.Boundary().Validate(); err != nil {
		errs = append(errs, err.Error())
	} else if !p.Boundary().Contains(p.CenterPoint()) {
		errs = append(errs, "center must lie inside bounds")
	}
	if err := p.Zooms().Validate(); err != nil {
		errs = append(errs, err.Error())
	} else {
		if p.Zoom.Initial < p.Zoom.Min || p.Zoom.Initial > p.Zoom.Max {
			errs = append(errs, fmt.Sprintf("zoom.initial must be within %d..%d, got %d", p.Zoom.Min, p.Zoom.Max, p.Zoom.Initial))
		}
		if p.Zoom.Single < p.Zoom.Min || p.Zoom.Single > p.Zoom.Max {
			errs = append(errs, fmt.Sprintf("zoom.single must be within %d..%d, got %d", p.Zoom.Min, p.Zoom.Max, p.Zoom.Single))
		}
	}
	if p.Cluster.Radius <= 0 {
		errs = append(errs, "cluster.radius must be positive")
	}
	if p.Fit.Padding < 0 {
		errs = append(errs, "fit.padding must not be negative")
	}
	if p.Viewport.Width <= 0 || p.Viewport.Height <= 0 {
		errs = append(errs, "viewport width and height must be positive")
	}
	if p.Viscosity < 0 || p.Viscosity > 1 {
		errs = append(errs, "viscosity must be within 0..1")
	}
	if p.Animation < 0 {
		errs = append(errs, "animation must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("map profile validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// CenterPoint returns the initial camera center.
func (p *Profile) CenterPoint() orb.Point {
	return orb.Point{p.Center.Lng, p.Center.Lat}
}

// Boundary returns the max bounds.
func (p *Profile) Boundary() domain.Boundary {
	return domain.Boundary{South: p.Bounds.South, West: p.Bounds.West, North: p.Bounds.North, East: p.Bounds.East}
}

// Zooms returns the allowed zoom range.
func (p *Profile) Zooms() domain.ZoomRange {
	return domain.ZoomRange{Min: p.Zoom.Min, Max: p.Zoom.Max}
}

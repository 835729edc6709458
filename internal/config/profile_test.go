package config

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Copubah/dirty-nairobi/internal/domain"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadProfile_Defaults(t *testing.T) {
	p, err := LoadProfile("")
	require.NoError(t, err)

	assert.Equal(t, orb.Point{36.8219, -1.2921}, p.CenterPoint())
	assert.Equal(t, domain.NairobiBoundary, p.Boundary())
	assert.Equal(t, domain.DefaultZooms, p.Zooms())
	assert.Equal(t, 12, p.Zoom.Initial)
	assert.Equal(t, 15, p.Zoom.Single)
	assert.InDelta(t, 50, p.Cluster.Radius, 0)
	assert.InDelta(t, 20, p.Fit.Padding, 0)
	assert.InDelta(t, 1024, p.Viewport.Width, 0)
	assert.InDelta(t, 768, p.Viewport.Height, 0)
	assert.InDelta(t, 1.0, p.Viscosity, 0)
	assert.Equal(t, 250*time.Millisecond, p.Animation)
	assert.Equal(t, "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png", p.Tiles.URL)
	assert.Equal(t, []string{"a", "b", "c"}, p.Tiles.Subdomains)
	assert.Contains(t, p.Tiles.Attribution, "OpenStreetMap")
}

func TestLoadProfile_FileOverridesDefaults(t *testing.T) {
	path := writeProfile(t, `
center:
  lat: -4.0435
  lng: 39.6682
bounds:
  south: -4.2
  west: 39.5
  north: -3.9
  east: 39.8
zoom:
  initial: 13
cluster:
  radius: 80
animation: 1s
`)

	p, err := LoadProfile(path)
	require.NoError(t, err)

	assert.Equal(t, orb.Point{39.6682, -4.0435}, p.CenterPoint())
	assert.InDelta(t, -4.2, p.Bounds.South, 1e-9)
	assert.Equal(t, 13, p.Zoom.Initial)
	assert.Equal(t, 18, p.Zoom.Max, "unset keys keep defaults")
	assert.InDelta(t, 80, p.Cluster.Radius, 0)
	assert.Equal(t, time.Second, p.Animation)
}

func TestLoadProfile_EnvOverridesFile(t *testing.T) {
	path := writeProfile(t, "zoom:\n  initial: 13\n")
	t.Setenv("MAP_ZOOM_INITIAL", "14")
	t.Setenv("MAP_FIT_PADDING", "40")

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, 14, p.Zoom.Initial)
	assert.InDelta(t, 40, p.Fit.Padding, 0)
}

func TestLoadProfile_MissingFile(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read map profile")
}

func TestLoadProfile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"inverted bounds", "bounds:\n  south: -1.0\n  north: -1.5\n", "south must be less than north"},
		{"center outside", "center:\n  lat: 0.5\n", "center must lie inside bounds"},
		{"initial beyond max", "zoom:\n  initial: 19\n", "zoom.initial"},
		{"single below min", "zoom:\n  single: 9\n", "zoom.single"},
		{"inverted zooms", "zoom:\n  min: 15\n  max: 11\n", "min zoom must not exceed max zoom"},
		{"zero radius", "cluster:\n  radius: 0\n", "cluster.radius"},
		{"negative padding", "fit:\n  padding: -1\n", "fit.padding"},
		{"viscosity above one", "viscosity: 1.5\n", "viscosity"},
		{"empty viewport", "viewport:\n  width: 0\n", "viewport"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProfile(writeProfile(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadProfile_ShippedNairobiProfileMatchesDefaults(t *testing.T) {
	shipped, err := LoadProfile(filepath.Join("..", "..", "configs", "nairobi.yaml"))
	require.NoError(t, err)

	defaults, err := LoadProfile("")
	require.NoError(t, err)
	assert.Equal(t, defaults, shipped)
}

func TestProfileTypes_AreDocumented(t *testing.T) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "profile.go", nil, parser.ParseComments)
	require.NoError(t, err)

	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, s := range gen.Specs {
			ts := s.(*ast.TypeSpec)
			if !ts.Name.IsExported() {
				continue
			}
			doc := gen.Doc
			if ts.Doc != nil {
				doc = ts.Doc
			}
			assert.NotNil(t, doc, "exported type %s has no doc comment", ts.Name.Name)
		}
	}
}

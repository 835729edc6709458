// Command validate checks a report-list fixture against the map profile:
// report integrity, clustering consistency across every zoom level, and the
// viewport the map would frame the fixture with.
//
// Usage:
//
//	go run ./cmd/validate -json data/mock/reports_nairobi.json
//	go run ./cmd/validate -json data/mock/reports_nairobi.json -profile configs/nairobi.yaml
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/paulmach/orb"

	"github.com/Copubah/dirty-nairobi/internal/cluster"
	"github.com/Copubah/dirty-nairobi/internal/config"
	"github.com/Copubah/dirty-nairobi/internal/domain"
	"github.com/Copubah/dirty-nairobi/internal/geo"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	jsonPath := flag.String("json", "", "path to report list JSON fixture")
	profilePath := flag.String("profile", "", "optional map profile YAML (defaults to the built-in Nairobi profile)")
	flag.Parse()

	if *jsonPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*jsonPath, *profilePath); code != 0 {
		os.Exit(code)
	}
}

func run(jsonPath, profilePath string) int {
	fmt.Println("=== Report Fixture Validation ===")
	fmt.Println()

	profile, err := config.LoadProfile(profilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load map profile: %v\n", err)
		return 1
	}

	reports, err := loadJSON[domain.Report](jsonPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load report JSON: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateReports(reports, profile.Boundary()),
		validateClustering(reports, profile),
		validateFraming(reports, profile),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Reports: %d\n", len(reports))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// ── Phase 1: report integrity ──

func validateReports(reports []domain.Report, bounds domain.Boundary) *phase {
	p := &phase{name: "Phase 1: Report integrity"}
	seen := make(map[string]int, len(reports))

	for i, r := range reports {
		at := fmt.Sprintf("report[%d] %s", i, r.ID)
		if strings.TrimSpace(r.ID) == "" {
			p.errorf("report[%d]: empty id", i)
		} else if prev, dup := seen[r.ID]; dup {
			p.errorf("%s: duplicate of report[%d]", at, prev)
		} else {
			seen[r.ID] = i
		}
		if strings.TrimSpace(r.Description) == "" {
			p.errorf("%s: empty description", at)
		}
		if len(r.Description) > 1000 {
			p.errorf("%s: description longer than 1000 characters", at)
		}
		if !r.HasValidGeometry() {
			p.errorf("%s: invalid coordinates (%v, %v)", at, r.Latitude, r.Longitude)
		} else if !bounds.Contains(r.Position()) {
			p.errorf("%s: (%.4f, %.4f) outside map bounds", at, r.Latitude, r.Longitude)
		}
		if u, err := url.Parse(r.ImageURL); err != nil || u.Scheme != "https" || u.Host == "" {
			p.errorf("%s: image url %q is not an absolute https URL", at, r.ImageURL)
		}
		if r.CreatedAt.IsZero() {
			p.errorf("%s: missing created_at", at)
		}
	}
	return p
}

// ── Phase 2: clustering consistency ──

func validateClustering(reports []domain.Report, profile *config.Profile) *phase {
	p := &phase{name: "Phase 2: Clustering across zooms"}

	points := make([]cluster.Point, 0, len(reports))
	seen := map[string]bool{}
	for _, r := range reports {
		if !r.HasValidGeometry() || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		points = append(points, cluster.Point{ID: r.ID, Pos: r.Position()})
	}

	fmt.Println("zoom  clusters  singles  glyphs  largest")
	prevGlyphs := -1
	for z := profile.Zoom.Min; z <= profile.Zoom.Max; z++ {
		res := cluster.Compute(points, z, profile.Cluster.Radius)

		covered := map[string]int{}
		largest := 0
		for _, c := range res.Clusters {
			if c.Count() < 2 {
				p.errorf("zoom %d: cluster %d has %d members", z, c.ID, c.Count())
			}
			largest = max(largest, c.Count())
			for _, id := range c.Members {
				covered[id]++
			}
			if !c.Bounds.Contains(c.Center) {
				p.errorf("zoom %d: cluster %d center outside its bounds", z, c.ID)
			}
		}
		for _, id := range res.Singles {
			covered[id]++
		}
		for _, pt := range points {
			if covered[pt.ID] != 1 {
				p.errorf("zoom %d: marker %s appears %d times", z, pt.ID, covered[pt.ID])
			}
		}

		glyphs := len(res.Clusters) + len(res.Singles)
		if glyphs < prevGlyphs {
			p.errorf("zoom %d: %d glyphs, fewer than %d at the zoom below", z, glyphs, prevGlyphs)
		}
		prevGlyphs = glyphs
		fmt.Printf("%4d  %8d  %7d  %6d  %7d\n", z, len(res.Clusters), len(res.Singles), glyphs, largest)
	}
	return p
}

// ── Phase 3: framing ──

func validateFraming(reports []domain.Report, profile *config.Profile) *phase {
	p := &phase{name: "Phase 3: Viewport framing"}

	var bound orb.Bound
	n := 0
	for _, r := range reports {
		if !r.HasValidGeometry() {
			continue
		}
		if n == 0 {
			bound = r.Position().Bound()
		} else {
			bound = bound.Extend(r.Position())
		}
		n++
	}
	if n < 2 {
		fmt.Printf("framing: %d reports, viewport policy leaves or recenters the camera\n", n)
		return p
	}

	size := geo.Size{Width: profile.Viewport.Width, Height: profile.Viewport.Height}
	zoom := geo.BoundsZoom(bound, size, profile.Fit.Padding, profile.Zoom.Initial, profile.Zoom.Min, profile.Zoom.Max)
	center := geo.FitCenter(bound, zoom)
	view := geo.Viewport{Center: center, Zoom: zoom, Size: size}

	fmt.Printf("framing: zoom %d, center (%.4f, %.4f), %d tiles\n", zoom, center.Lat(), center.Lon(), len(geo.VisibleTiles(view)))

	visible := view.Bounds()
	for _, r := range reports {
		if r.HasValidGeometry() && !visible.Contains(r.Position()) {
			p.errorf("report %s not visible after fitting", r.ID)
		}
	}
	if zoom == profile.Zoom.Min {
		nw, se := geo.ProjectBound(bound, float64(zoom))
		if se.X-nw.X > size.Width || se.Y-nw.Y > size.Height {
			p.errorf("fixture spans more than one viewport at min zoom %d", zoom)
		}
	}
	return p
}

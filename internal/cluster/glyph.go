package cluster

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/Copubah/dirty-nairobi/internal/geo"
)

// Tier is the visual weight of a cluster glyph.
type Tier string

const (
	TierSmall  Tier = "small"  // up to 10 members
	TierMedium Tier = "medium" // 11 to 50
	TierLarge  Tier = "large"  // more than 50
)

// TierFor maps a member count to its tier.
func TierFor(count int) Tier {
	switch {
	case count > 50:
		return TierLarge
	case count > 10:
		return TierMedium
	default:
		return TierSmall
	}
}

// IconSize is the side of the square cluster glyph in pixels.
const IconSize = 40

// Icon describes how a cluster glyph is drawn.
type Icon struct {
	HTML      string `json:"html"`
	ClassName string `json:"class_name"`
	Size      int    `json:"size"`
}

// Icon returns the glyph for c. The label is always the exact count.
func (c Cluster) Icon() Icon {
	return Icon{
		HTML:      fmt.Sprintf("<div><span>%d</span></div>", c.Count()),
		ClassName: "marker-cluster marker-cluster-" + string(c.Tier),
		Size:      IconSize,
	}
}

// Action is what clicking a cluster does.
type Action string

const (
	ActionZoomToBounds Action = "zoom_to_bounds"
	ActionSpiderfy     Action = "spiderfy"
)

// ClickAction decides the cluster click behaviour at zoom.
func ClickAction(zoom, maxZoom int) Action {
	if zoom >= maxZoom {
		return ActionSpiderfy
	}
	return ActionZoomToBounds
}

// Leg places one member of a spiderfied cluster.
type Leg struct {
	ReportID string    `json:"report_id"`
	Position orb.Point `json:"position"`
}

// Spiderfy layout constants, in pixels.
const (
	spiralSwitchover    = 9
	circleFootSep       = 25.0
	circleMinLeg        = 35.0
	spiralFootSep       = 28.0
	spiralLengthStart   = 11.0
	spiralLengthFactor  = 5.0
	circleIconYOffsetPx = 10.0
)

// Spiderfy spreads the members of c around its center at zoom so each can be
// clicked on its own. Fewer than nine members sit on a circle, more on a
// spiral.
func Spiderfy(c Cluster, zoom int) []Leg {
	center := geo.Project(c.Center, float64(zoom))
	var offsets []geo.Pixel
	if c.Count() >= spiralSwitchover {
		offsets = spiral(c.Count())
	} else {
		center.Y += circleIconYOffsetPx
		offsets = circle(c.Count())
	}

	legs := make([]Leg, len(c.Members))
	for i, id := range c.Members {
		p := center.Add(offsets[i]).Round()
		legs[i] = Leg{ReportID: id, Position: geo.Unproject(p, float64(zoom))}
	}
	return legs
}

func circle(n int) []geo.Pixel {
	circumference := circleFootSep * float64(2+n)
	leg := math.Max(circumference/(2*math.Pi), circleMinLeg)
	step := 2 * math.Pi / float64(n)

	out := make([]geo.Pixel, n)
	for i := range out {
		angle := float64(i) * step
		out[i] = geo.Pixel{X: leg * math.Cos(angle), Y: leg * math.Sin(angle)}
	}
	return out
}

func spiral(n int) []geo.Pixel {
	leg := spiralLengthStart
	factor := spiralLengthFactor * 2 * math.Pi
	angle := 0.0

	out := make([]geo.Pixel, n)
	for i := n; i >= 0; i-- {
		if i < n {
			out[i] = geo.Pixel{X: leg * math.Cos(angle), Y: leg * math.Sin(angle)}
		}
		angle += spiralFootSep/leg + float64(i)*0.0005
		leg += factor / angle
	}
	return out
}

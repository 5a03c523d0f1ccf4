// Package overlay turns composition results into renderer-agnostic drawing
// instructions.
//
// Generate is a pure mapping: the same result always yields the same element
// list, with no randomness and no hidden state, so overlays can be
// regenerated every frame and discarded. Elements carry normalized geometry
// plus presentation attributes; the renderer decides pixels.
package overlay

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/framewise/composure/internal/composition"
	"github.com/framewise/composure/internal/geometry"
)

// Kind tags the overlay element variants.
type Kind string

const (
	// KindGrid is the thirds grid: four lines splitting the frame in thirds.
	KindGrid Kind = "grid"

	// KindCrosshair marks a target point with a centered cross.
	KindCrosshair Kind = "crosshair"

	// KindSymmetryLine is the vertical mirror axis of the frame.
	KindSymmetryLine Kind = "symmetry_line"

	// KindSafetyZone shades a frame border the subject is crowding.
	KindSafetyZone Kind = "safety_zone"
)

// Severity grades a safety zone.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Style carries the presentation attributes of one element.
type Style struct {
	// Color is the stroke or fill color as "#RRGGBB".
	Color string `json:"color"`

	// Opacity is the element opacity (0.0 to 1.0).
	Opacity float64 `json:"opacity"`

	// StrokeWidth is the stroke width in pixels at render time.
	StrokeWidth float64 `json:"strokeWidth"`
}

// Line is a straight segment in normalized coordinates.
type Line struct {
	From geometry.Point `json:"from"`
	To   geometry.Point `json:"to"`
}

// Element is one drawable overlay instruction. Exactly the fields relevant
// to its Kind are populated; everything else stays zero.
type Element struct {
	Kind     Kind            `json:"kind"`
	Lines    []Line          `json:"lines,omitempty"`
	Center   *geometry.Point `json:"center,omitempty"`
	Span     float64         `json:"span,omitempty"`
	Zone     *geometry.Rect  `json:"zone,omitempty"`
	Severity Severity        `json:"severity,omitempty"`
	Style    Style           `json:"style"`
}

// Palette defaults. Guide lines stay quiet; accent colors grade from red to
// green with the score.
const (
	guideColor   = "#FFFFFF"
	guideOpacity = 0.35
	zoneColor    = "#FF3B30"
)

// accentColor blends red through green in HCL space by score, so feedback
// color tracks quality smoothly instead of snapping between two states.
func accentColor(score float64) string {
	red, _ := colorful.Hex("#FF3B30")
	green, _ := colorful.Hex("#34C759")
	return red.BlendHcl(green, geometry.Clamp01(score)).Clamped().Hex()
}

// Generate maps a composition result to its overlay elements.
//
// Neutral (basic-only) results yield static guides for the result's rule.
// Safety zones appear exactly when the context flags the subject too close
// to an edge; the symmetry line appears only for the symmetry rule.
func Generate(result *composition.Result) []Element {
	if result == nil {
		return nil
	}
	if result.BasicOnly {
		return StaticGuides(result.Rule)
	}

	var elements []Element

	switch result.Rule {
	case composition.RuleCenterFraming:
		center := geometry.Point{X: 0.5, Y: 0.5}
		elements = append(elements, Element{
			Kind:   KindCrosshair,
			Center: &center,
			Span:   0.08,
			Style: Style{
				Color:       accentColor(result.Score),
				Opacity:     0.9,
				StrokeWidth: 2,
			},
		})

	case composition.RuleSymmetry:
		elements = append(elements, Element{
			Kind: KindSymmetryLine,
			Lines: []Line{
				{From: geometry.Point{X: 0.5, Y: 0}, To: geometry.Point{X: 0.5, Y: 1}},
			},
			Style: Style{
				Color:       accentColor(result.Score),
				Opacity:     0.8,
				StrokeWidth: 2,
			},
		})

	default: // RuleOfThirds
		elements = append(elements, gridElement())

		subject := geometry.Point{
			X: 0.5 + result.Context.OffsetX,
			Y: 0.5 + result.Context.OffsetY,
		}
		elements = append(elements, Element{
			Kind:   KindCrosshair,
			Center: &subject,
			Span:   0.05,
			Style: Style{
				Color:       accentColor(result.Score),
				Opacity:     0.9,
				StrokeWidth: 2,
			},
		})
	}

	if result.Context.Edge.TooClose {
		elements = append(elements, safetyZones(result.Context)...)
	}

	return elements
}

// StaticGuides returns the subject-independent guide overlay for a rule,
// used while no subject is detected or the engine is disabled.
func StaticGuides(rule composition.Rule) []Element {
	switch rule {
	case composition.RuleCenterFraming:
		center := geometry.Point{X: 0.5, Y: 0.5}
		return []Element{{
			Kind:   KindCrosshair,
			Center: &center,
			Span:   0.08,
			Style:  Style{Color: guideColor, Opacity: guideOpacity, StrokeWidth: 1},
		}}
	case composition.RuleSymmetry:
		return []Element{{
			Kind: KindSymmetryLine,
			Lines: []Line{
				{From: geometry.Point{X: 0.5, Y: 0}, To: geometry.Point{X: 0.5, Y: 1}},
			},
			Style: Style{Color: guideColor, Opacity: guideOpacity, StrokeWidth: 1},
		}}
	default:
		return []Element{gridElement()}
	}
}

// gridElement is the thirds grid with quiet guide styling.
func gridElement() Element {
	return Element{
		Kind: KindGrid,
		Lines: []Line{
			{From: geometry.Point{X: 1.0 / 3, Y: 0}, To: geometry.Point{X: 1.0 / 3, Y: 1}},
			{From: geometry.Point{X: 2.0 / 3, Y: 0}, To: geometry.Point{X: 2.0 / 3, Y: 1}},
			{From: geometry.Point{X: 0, Y: 1.0 / 3}, To: geometry.Point{X: 1, Y: 1.0 / 3}},
			{From: geometry.Point{X: 0, Y: 2.0 / 3}, To: geometry.Point{X: 1, Y: 2.0 / 3}},
		},
		Style: Style{Color: guideColor, Opacity: guideOpacity, StrokeWidth: 1},
	}
}

// safetyZoneDepth is how far a zone extends into the frame from its edge.
const safetyZoneDepth = 0.04

// safetyZones shades each frame edge the subject is crowding. A crowded
// bottom edge escalates to critical when the subject is being cut off.
func safetyZones(ctx composition.Context) []Element {
	zones := make([]Element, 0, len(ctx.Edge.DangerousEdges))

	for _, edge := range ctx.Edge.DangerousEdges {
		var zone geometry.Rect
		switch edge {
		case composition.EdgeTop:
			zone = geometry.Rect{X: 0, Y: 0, W: 1, H: safetyZoneDepth}
		case composition.EdgeBottom:
			zone = geometry.Rect{X: 0, Y: 1 - safetyZoneDepth, W: 1, H: safetyZoneDepth}
		case composition.EdgeLeft:
			zone = geometry.Rect{X: 0, Y: 0, W: safetyZoneDepth, H: 1}
		case composition.EdgeRight:
			zone = geometry.Rect{X: 1 - safetyZoneDepth, Y: 0, W: safetyZoneDepth, H: 1}
		}

		severity := SeverityWarning
		if edge == composition.EdgeBottom && ctx.Headroom.Cutoff {
			severity = SeverityCritical
		}

		z := zone
		zones = append(zones, Element{
			Kind:     KindSafetyZone,
			Zone:     &z,
			Severity: severity,
			Style:    Style{Color: zoneColor, Opacity: 0.25, StrokeWidth: 0},
		})
	}

	return zones
}

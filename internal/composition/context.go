package composition

import (
	"github.com/framewise/composure/internal/detect"
	"github.com/framewise/composure/internal/geometry"
)

// SizeClass buckets the subject by the fraction of the frame it covers.
// Tolerance bands widen for close-up subjects and tighten for distant ones,
// so the classification lives here rather than being duplicated per rule.
type SizeClass int

const (
	// SizeSmall is a subject covering less than 15% of the frame.
	SizeSmall SizeClass = iota

	// SizeMedium is a subject covering 15% to 35% of the frame.
	SizeMedium

	// SizeLarge is a subject covering more than 35% of the frame.
	SizeLarge
)

// String returns the serialized name of the size class.
func (s SizeClass) String() string {
	switch s {
	case SizeMedium:
		return "medium"
	case SizeLarge:
		return "large"
	default:
		return "small"
	}
}

// MarshalJSON serializes the size class as its string name.
func (s SizeClass) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Edge identifies one side of the frame.
type Edge string

const (
	EdgeTop    Edge = "top"
	EdgeBottom Edge = "bottom"
	EdgeLeft   Edge = "left"
	EdgeRight  Edge = "right"
)

// EdgeProximity describes how close the subject sits to the frame borders.
type EdgeProximity struct {
	// TooClose is true when any margin falls below the danger threshold.
	TooClose bool `json:"tooClose"`

	// DangerousEdges lists the edges whose margin violates the threshold.
	DangerousEdges []Edge `json:"dangerousEdges,omitempty"`

	// MarginFraction is the smallest normalized distance from any subject
	// edge to the corresponding frame edge.
	MarginFraction float64 `json:"marginFraction"`
}

// Headroom describes the vertical space above the subject.
type Headroom struct {
	// Ratio is the space above the subject top as a fraction of frame height.
	Ratio float64 `json:"ratio"`

	// Excessive is true when more than 40% of the frame is empty headroom.
	Excessive bool `json:"excessive"`

	// Cutoff is true when the subject is nearly clipped at the bottom edge.
	Cutoff bool `json:"cutoff"`

	// OptimalForPortrait is true when the headroom ratio falls in the
	// classical portrait band of 10% to 25%.
	OptimalForPortrait bool `json:"optimalForPortrait"`
}

// Context carries the rule-agnostic signals derived from one observation.
// It is recomputed for every evaluation and never cached.
type Context struct {
	// SizeClass is the subject's size bucket.
	SizeClass SizeClass `json:"subjectSize"`

	// OffsetX is the signed horizontal displacement of the subject center
	// from the frame center, as a fraction of frame width. Positive means
	// the subject sits right of center.
	OffsetX float64 `json:"subjectOffsetX"`

	// OffsetY is the signed vertical displacement from the frame center.
	// Positive means the subject sits below center.
	OffsetY float64 `json:"subjectOffsetY"`

	// Edge describes border proximity.
	Edge EdgeProximity `json:"edgeProximity"`

	// Headroom describes the space above the subject.
	Headroom Headroom `json:"headroom"`

	// MultipleSubjects is reserved for future multi-box detection and is
	// currently always false.
	MultipleSubjects bool `json:"multipleSubjects"`

	// ReducedConfidence marks results computed from degraded input, such as
	// symmetry scored without pixel data.
	ReducedConfidence bool `json:"reducedConfidence,omitempty"`
}

// Size classification bands (fraction of frame area).
const (
	smallMax = 0.15
	largeMin = 0.35
)

// Edge and headroom thresholds (fractions of the frame dimension).
const (
	edgeDangerMargin   = 0.03
	headroomExcessive  = 0.40
	headroomCutoff     = 0.02
	headroomPortraitLo = 0.10
	headroomPortraitHi = 0.25
)

// Analyze derives a Context from a subject observation and frame size.
// It is pure and side-effect-free; rules may recompute offsets against their
// own target points, but the baseline here is always the geometric center.
//
// For a no-subject observation the returned context is neutral: zero offsets,
// full margin, no warnings.
func Analyze(obs detect.Observation, frame geometry.Size) Context {
	if !obs.HasSubject() || !frame.Valid() {
		return Context{Edge: EdgeProximity{MarginFraction: 1}}
	}

	box := obs.Bounds
	center := box.Center()

	ctx := Context{
		SizeClass: classifySize(box.Area()),
		OffsetX:   center.X - 0.5,
		OffsetY:   center.Y - 0.5,
	}

	margins := map[Edge]float64{
		EdgeLeft:   box.X,
		EdgeTop:    box.Y,
		EdgeRight:  1 - (box.X + box.W),
		EdgeBottom: 1 - (box.Y + box.H),
	}

	minMargin := 1.0
	for _, edge := range []Edge{EdgeTop, EdgeBottom, EdgeLeft, EdgeRight} {
		m := margins[edge]
		if m < minMargin {
			minMargin = m
		}
		if m < edgeDangerMargin {
			ctx.Edge.DangerousEdges = append(ctx.Edge.DangerousEdges, edge)
		}
	}
	ctx.Edge.MarginFraction = minMargin
	ctx.Edge.TooClose = minMargin < edgeDangerMargin

	ratio := box.Y
	ctx.Headroom = Headroom{
		Ratio:              ratio,
		Excessive:          ratio > headroomExcessive,
		Cutoff:             margins[EdgeBottom] < headroomCutoff,
		OptimalForPortrait: ratio >= headroomPortraitLo && ratio <= headroomPortraitHi,
	}

	return ctx
}

// classifySize maps a frame-area fraction to a size class.
func classifySize(areaFrac float64) SizeClass {
	switch {
	case areaFrac > largeMin:
		return SizeLarge
	case areaFrac >= smallMax:
		return SizeMedium
	default:
		return SizeSmall
	}
}

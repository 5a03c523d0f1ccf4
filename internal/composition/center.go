package composition

import (
	"image"
	"math"
	"strings"

	"github.com/framewise/composure/internal/detect"
	"github.com/framewise/composure/internal/geometry"
)

// frameCenter is the fixed centering target. It deliberately does not adapt
// to the subject's own visual center: a fixed reference keeps the feedback
// predictable from frame to frame.
var frameCenter = geometry.Point{X: 0.5, Y: 0.5}

// evaluateCenter scores the subject against the frame's geometric center.
//
// Scoring is effectively binary at the tolerance boundary: inside the band
// the base score is at least 0.7 and graded by distance; outside it the
// status is always NeedsAdjustment. When the subject is already centered and
// pixel data is available, a symmetry sub-score contributes up to a 20%
// bonus. Symmetry can never rescue a miscentered subject.
func evaluateCenter(obs detect.Observation, px image.Image, ctx Context, tun Tuning) *Result {
	center := obs.Bounds.Center()
	dist := center.DistanceTo(frameCenter)
	centered := dist <= tun.CenterTolerance

	var score float64
	bonusApplied := false

	if centered {
		score = 0.7 + 0.3*(1-dist/tun.CenterTolerance)
		if px != nil {
			similarity, _ := mirrorSimilarity(px, tun.SymmetryGrid, tun.SymmetryBalance)
			if similarity >= tun.CenterBonusFloor {
				score = geometry.Clamp01(score + tun.CenterSymmetryBonus*similarity)
				bonusApplied = true
			}
		}
	} else {
		// Continuous at the boundary (0.7 at dist == tolerance), decaying
		// to zero as the subject approaches the frame edge.
		score = math.Max(0, 0.7*(1-(dist-tun.CenterTolerance)/0.5))
	}

	var status Status
	switch {
	case centered && bonusApplied:
		status = StatusPerfect
	case centered:
		status = StatusGood
	default:
		status = StatusNeedsAdjustment
	}

	return &Result{
		Rule:       RuleCenterFraming,
		Score:      geometry.Clamp01(score),
		Status:     status,
		Suggestion: centerSuggestion(ctx, centered, bonusApplied, tun),
		Context:    ctx,
	}
}

// centerSuggestion builds follow-subject guidance: the camera moves in the
// same direction the subject is already offset, so the subject drifts back
// toward center. Telling the user to move opposite the offset reads as
// backwards in the viewfinder.
// Directional guidance is emitted whenever a per-axis offset exceeds the
// directional threshold, even inside the tolerance band: a subject can sit
// within tolerance on straight-line distance while still drifting visibly
// along one axis.
func centerSuggestion(ctx Context, centered, bonusApplied bool, tun Tuning) string {
	var directions []string
	if math.Abs(ctx.OffsetX) > tun.CenterDirectional {
		if ctx.OffsetX > 0 {
			directions = append(directions, "right")
		} else {
			directions = append(directions, "left")
		}
	}
	if math.Abs(ctx.OffsetY) > tun.CenterDirectional {
		if ctx.OffsetY > 0 {
			directions = append(directions, "down")
		} else {
			directions = append(directions, "up")
		}
	}

	if centered {
		if len(directions) > 0 {
			return "Well centered, drift slightly " + strings.Join(directions, " and ")
		}
		if bonusApplied {
			return "Perfectly centered with strong symmetry"
		}
		return "Well centered"
	}

	if len(directions) == 0 {
		return "Adjust framing to center the subject"
	}
	return "Move " + strings.Join(directions, " and ")
}

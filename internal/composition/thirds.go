package composition

import (
	"fmt"
	"math"

	"github.com/framewise/composure/internal/detect"
	"github.com/framewise/composure/internal/geometry"
)

// thirdsTarget is one of the four grid intersections.
type thirdsTarget struct {
	point geometry.Point
	name  string
}

// thirdsTargets are the four intersections of the thirds grid.
var thirdsTargets = []thirdsTarget{
	{geometry.Point{X: 1.0 / 3, Y: 1.0 / 3}, "top-left"},
	{geometry.Point{X: 2.0 / 3, Y: 1.0 / 3}, "top-right"},
	{geometry.Point{X: 1.0 / 3, Y: 2.0 / 3}, "bottom-left"},
	{geometry.Point{X: 2.0 / 3, Y: 2.0 / 3}, "bottom-right"},
}

// evaluateThirds scores the subject against the rule-of-thirds grid.
//
// The score is the better of two placements: distance to the nearest grid
// intersection at full weight, or distance to the nearest grid line at
// reduced weight. Both use an adaptive tolerance band that widens with the
// subject's size class, since a close-up subject cannot sit as precisely on
// a point as a distant one.
func evaluateThirds(obs detect.Observation, ctx Context, tun Tuning) *Result {
	center := obs.Bounds.Center()
	tolerance := thirdsTolerance(ctx.SizeClass, tun)

	nearest := thirdsTargets[0]
	interDist := math.Inf(1)
	for _, target := range thirdsTargets {
		if d := center.DistanceTo(target.point); d < interDist {
			interDist = d
			nearest = target
		}
	}

	lineDist := math.Min(
		math.Min(math.Abs(center.X-1.0/3), math.Abs(center.X-2.0/3)),
		math.Min(math.Abs(center.Y-1.0/3), math.Abs(center.Y-2.0/3)),
	)

	interScore := math.Max(0, 1-interDist/tolerance)
	lineScore := math.Max(0, 1-lineDist/tolerance)

	score := geometry.Clamp01(math.Max(interScore, lineScore*tun.ThirdsLineWeight))

	var status Status
	switch {
	case score > tun.ThirdsPerfect:
		status = StatusPerfect
	case score > tun.ThirdsGood:
		status = StatusGood
	default:
		status = StatusNeedsAdjustment
	}

	return &Result{
		Rule:       RuleOfThirds,
		Score:      score,
		Status:     status,
		Suggestion: thirdsSuggestion(status, nearest.name),
		Context:    ctx,
	}
}

// thirdsTolerance interpolates the tolerance band by size class:
// small subjects get the base band, large subjects the widened one, and
// medium subjects the midpoint.
func thirdsTolerance(size SizeClass, tun Tuning) float64 {
	switch size {
	case SizeLarge:
		return tun.ThirdsToleranceLarge
	case SizeMedium:
		return (tun.ThirdsToleranceSmall + tun.ThirdsToleranceLarge) / 2
	default:
		return tun.ThirdsToleranceSmall
	}
}

// thirdsSuggestion names the nearest grid intersection so the photographer
// always knows which third the feedback refers to.
func thirdsSuggestion(status Status, quadrant string) string {
	switch status {
	case StatusPerfect:
		return fmt.Sprintf("Subject sits on the %s third", quadrant)
	case StatusGood:
		return fmt.Sprintf("Move subject slightly to align with the %s third", quadrant)
	default:
		return fmt.Sprintf("Move subject to the %s third", quadrant)
	}
}

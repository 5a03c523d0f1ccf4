package composition

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/framewise/composure/internal/detect"
	"github.com/framewise/composure/internal/geometry"
)

// Balance labels where the frame's luminance mass sits.
type Balance string

const (
	BalanceBalanced      Balance = "balanced"
	BalanceLeftWeighted  Balance = "left-weighted"
	BalanceRightWeighted Balance = "right-weighted"
)

// evaluateSymmetry scores horizontal mirror symmetry of the whole frame.
//
// With pixel data: the frame is downsampled to a small luminance grid and
// each row is compared against its own mirror; the score is one minus the
// normalized average difference. A secondary classification compares total
// luminance mass left and right of center.
//
// Without pixel data: the rule degrades to a geometry-only approximation
// built from the centering offset, flagged with ReducedConfidence in the
// context. Missing pixels never fail the evaluation.
func evaluateSymmetry(obs detect.Observation, px image.Image, ctx Context, tun Tuning) *Result {
	if px == nil {
		return symmetryFallback(obs, ctx, tun)
	}

	similarity, balance := mirrorSimilarity(px, tun.SymmetryGrid, tun.SymmetryBalance)

	var status Status
	switch {
	case similarity > tun.SymmetryPerfect:
		status = StatusPerfect
	case similarity > tun.SymmetryGood:
		status = StatusGood
	default:
		status = StatusNeedsAdjustment
	}

	return &Result{
		Rule:       RuleSymmetry,
		Score:      geometry.Clamp01(similarity),
		Status:     status,
		Suggestion: symmetrySuggestion(status, balance),
		Context:    ctx,
	}
}

// symmetryFallback approximates symmetry from subject geometry alone, using
// the centering offset the way the center-framing rule does.
func symmetryFallback(obs detect.Observation, ctx Context, tun Tuning) *Result {
	ctx.ReducedConfidence = true

	dist := obs.Bounds.Center().DistanceTo(frameCenter)
	score := math.Max(0, 1-dist/(2*tun.CenterTolerance))
	score = geometry.Clamp01(score)

	status := StatusNeedsAdjustment
	if score > tun.SymmetryGood {
		status = StatusGood
	}

	return &Result{
		Rule:       RuleSymmetry,
		Score:      score,
		Status:     status,
		Suggestion: "Center the camera on the subject to approximate symmetry",
		Context:    ctx,
	}
}

// symmetrySuggestion references camera movement rather than subject
// movement: symmetry is a property of the whole frame, not the subject.
func symmetrySuggestion(status Status, balance Balance) string {
	switch balance {
	case BalanceLeftWeighted:
		return "Pan slightly left to center the visual weight"
	case BalanceRightWeighted:
		return "Pan slightly right to center the visual weight"
	}
	if status == StatusPerfect {
		return "Strong symmetry, hold this framing"
	}
	return "Align the camera with the scene's symmetry axis"
}

// mirrorSimilarity downsamples the frame to a grid×grid luminance image and
// measures horizontal mirror similarity plus left/right mass balance.
//
// The frame is borrowed read-only for the duration of the call:
// downsampling copies what it needs and nothing is retained.
func mirrorSimilarity(px image.Image, grid int, balanceThreshold float64) (float64, Balance) {
	if grid < 2 {
		grid = 2
	}

	small := imaging.Resize(px, grid, grid, imaging.Box)
	gray := imaging.Grayscale(small)

	var totalDiff float64
	var leftMass, rightMass float64
	samples := 0

	for y := 0; y < grid; y++ {
		for x := 0; x < grid/2; x++ {
			a := float64(gray.NRGBAAt(x, y).R)
			b := float64(gray.NRGBAAt(grid-1-x, y).R)
			totalDiff += math.Abs(a - b)
			leftMass += a
			rightMass += b
			samples++
		}
	}

	if samples == 0 {
		return 0, BalanceBalanced
	}

	similarity := 1 - (totalDiff/float64(samples))/255.0

	balance := BalanceBalanced
	if mass := leftMass + rightMass; mass > 0 {
		imbalance := (leftMass - rightMass) / mass
		switch {
		case imbalance > balanceThreshold:
			balance = BalanceLeftWeighted
		case imbalance < -balanceThreshold:
			balance = BalanceRightWeighted
		}
	}

	return geometry.Clamp01(similarity), balance
}

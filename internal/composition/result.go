package composition

import (
	"encoding/json"
	"fmt"
	"image"

	"github.com/framewise/composure/internal/detect"
	"github.com/framewise/composure/internal/geometry"
)

// Rule identifies one composition rule. The set is closed: adding a rule
// means adding an enum value and its evaluator, not implementing an open
// interface.
type Rule int

const (
	// RuleOfThirds scores placement against the thirds grid.
	RuleOfThirds Rule = iota

	// RuleCenterFraming scores placement against the fixed frame center.
	RuleCenterFraming

	// RuleSymmetry scores horizontal mirror symmetry of the whole frame.
	RuleSymmetry
)

// Rules lists all rules in fixed priority order. BestSuggestion breaks score
// ties by this order.
var Rules = []Rule{RuleOfThirds, RuleCenterFraming, RuleSymmetry}

// String returns the serialized rule name.
func (r Rule) String() string {
	switch r {
	case RuleCenterFraming:
		return "center_framing"
	case RuleSymmetry:
		return "symmetry"
	default:
		return "rule_of_thirds"
	}
}

// ParseRule maps a serialized rule name back to its Rule value.
func ParseRule(s string) (Rule, error) {
	switch s {
	case "rule_of_thirds", "thirds":
		return RuleOfThirds, nil
	case "center_framing", "center":
		return RuleCenterFraming, nil
	case "symmetry":
		return RuleSymmetry, nil
	}
	return RuleOfThirds, fmt.Errorf("unknown composition rule %q", s)
}

// MarshalJSON serializes the rule as its string name.
func (r Rule) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON parses a rule from its string name.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRule(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Status classifies a score against rule-specific thresholds.
type Status string

const (
	// StatusPerfect means the subject placement satisfies the rule fully.
	StatusPerfect Status = "Perfect"

	// StatusGood means the placement is acceptable but improvable.
	StatusGood Status = "Good"

	// StatusNeedsAdjustment means the placement violates the rule.
	StatusNeedsAdjustment Status = "NeedsAdjustment"
)

// Result is the outcome of evaluating one rule against one frame.
//
// Results are created per evaluation call and owned by the caller; Manager
// retains only the most recent one, overwritten on each evaluation.
type Result struct {
	// Rule is the composition rule that produced this result.
	Rule Rule `json:"composition"`

	// Score is the rule score in [0,1].
	Score float64 `json:"score"`

	// Status is derived deterministically from Score and the rule's
	// thresholds.
	Status Status `json:"status"`

	// Suggestion is human-readable guidance. Empty for neutral results.
	Suggestion string `json:"suggestion,omitempty"`

	// Context carries the rule-agnostic signals used by this evaluation.
	Context Context `json:"context"`

	// BasicOnly marks a neutral result (engine disabled or no subject):
	// overlay generation emits static guides only.
	BasicOnly bool `json:"-"`
}

// Tuning holds every rule's geometry and scoring parameters. Zero-value
// Tuning is not usable; start from DefaultTuning.
type Tuning struct {
	// ThirdsToleranceSmall is the thirds tolerance band for small subjects,
	// as a fraction of the frame dimension.
	ThirdsToleranceSmall float64

	// ThirdsToleranceLarge is the widened band for large subjects. Medium
	// subjects get the midpoint.
	ThirdsToleranceLarge float64

	// ThirdsLineWeight discounts placement on a grid line relative to
	// placement on an intersection.
	ThirdsLineWeight float64

	// ThirdsPerfect and ThirdsGood are the status thresholds for the
	// thirds rule.
	ThirdsPerfect float64
	ThirdsGood    float64

	// CenterTolerance is the strict centering band as a fraction of the
	// frame dimension.
	CenterTolerance float64

	// CenterDirectional is the per-axis offset above which a direction is
	// included in the suggestion.
	CenterDirectional float64

	// CenterSymmetryBonus is the maximum score bonus contributed by the
	// symmetry sub-score when the subject is already centered.
	CenterSymmetryBonus float64

	// CenterBonusFloor is the minimum symmetry similarity for the bonus to
	// apply at all.
	CenterBonusFloor float64

	// SymmetryGrid is the downsample grid size for pixel symmetry analysis.
	SymmetryGrid int

	// SymmetryBalance is the luminance-mass imbalance fraction above which
	// the frame is labeled left- or right-weighted.
	SymmetryBalance float64

	// SymmetryPerfect and SymmetryGood are the status thresholds for the
	// symmetry rule.
	SymmetryPerfect float64
	SymmetryGood    float64
}

// DefaultTuning returns the standard rule parameters.
func DefaultTuning() Tuning {
	return Tuning{
		ThirdsToleranceSmall: 0.12,
		ThirdsToleranceLarge: 0.18,
		ThirdsLineWeight:     0.7,
		ThirdsPerfect:        0.8,
		ThirdsGood:           0.5,
		CenterTolerance:      0.12,
		CenterDirectional:    0.05,
		CenterSymmetryBonus:  0.20,
		CenterBonusFloor:     0.6,
		SymmetryGrid:         64,
		SymmetryBalance:      0.05,
		SymmetryPerfect:      0.85,
		SymmetryGood:         0.65,
	}
}

// Evaluate scores one rule against one frame.
//
// The pixel image is optional: only the symmetry rule (and the centering
// bonus) consume it, and both degrade gracefully without it. Pixel data is
// borrowed read-only for the duration of the call and never retained.
//
// An invalid frame size is the only error: scoring against degenerate
// geometry is meaningless, so the caller must skip the frame. Every other
// condition produces a valid result.
func Evaluate(rule Rule, obs detect.Observation, frame geometry.Size, px image.Image, tun Tuning) (*Result, error) {
	if !frame.Valid() {
		return nil, fmt.Errorf("invalid frame size %dx%d", frame.Width, frame.Height)
	}

	ctx := Analyze(obs, frame)

	// Symmetry is a whole-frame property and can run without a subject as
	// long as pixels are available. The geometric rules cannot.
	if !obs.HasSubject() && !(rule == RuleSymmetry && px != nil) {
		return neutralResult(rule, ctx), nil
	}

	switch rule {
	case RuleCenterFraming:
		return evaluateCenter(obs, px, ctx, tun), nil
	case RuleSymmetry:
		return evaluateSymmetry(obs, px, ctx, tun), nil
	default:
		return evaluateThirds(obs, ctx, tun), nil
	}
}

// neutralResult is the "basic overlay only" outcome: no subject or engine
// disabled. It carries no suggestion and never counts as an error.
func neutralResult(rule Rule, ctx Context) *Result {
	return &Result{
		Rule:      rule,
		Score:     0,
		Status:    StatusNeedsAdjustment,
		Context:   ctx,
		BasicOnly: true,
	}
}

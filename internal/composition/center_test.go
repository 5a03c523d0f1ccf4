package composition

import (
	"image"
	"image/color"
	"strings"
	"testing"
)

// verticalGradient builds an image whose pixel value depends only on the
// row, making it perfectly mirror-symmetric around the vertical axis.
func verticalGradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		v := uint8(255 * y / h)
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// halfSplit builds an image with a bright left half and dark right half:
// maximally asymmetric and left-weighted.
func halfSplit(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{10, 10, 10, 255}
			if x < w/2 {
				c = color.RGBA{245, 245, 245, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestCenterFramingCentered(t *testing.T) {
	obs := subjectAt(0.5, 0.5, 0.2, 0.2)

	result, err := Evaluate(RuleCenterFraming, obs, testFrame, nil, DefaultTuning())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if result.Status != StatusGood && result.Status != StatusPerfect {
		t.Errorf("Status = %v, want Good or Perfect for centered subject", result.Status)
	}
	if result.Score < 0.7 {
		t.Errorf("Score = %v, want ≥ 0.7 inside tolerance", result.Score)
	}
}

func TestCenterFramingFollowSubjectDirection(t *testing.T) {
	// Regression guard: the suggestion follows the subject, never the
	// inverted direction. A subject right of center means "right": the
	// camera chases the subject. The offset here (0.10) is inside the
	// distance tolerance, so the direction must be emitted as drift
	// guidance without demoting the status.
	obs := subjectAt(0.6, 0.5, 0.1, 0.1)

	result, err := Evaluate(RuleCenterFraming, obs, testFrame, nil, DefaultTuning())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if !strings.Contains(result.Suggestion, "right") {
		t.Errorf("Suggestion = %q, want direction 'right'", result.Suggestion)
	}
	if strings.Contains(result.Suggestion, "left") {
		t.Errorf("Suggestion = %q, must not contain inverted direction 'left'", result.Suggestion)
	}
	if result.Status != StatusGood {
		t.Errorf("Status = %v, want Good inside tolerance", result.Status)
	}
}

func TestCenterFramingNoDriftBelowDirectionalThreshold(t *testing.T) {
	// An offset under the directional threshold is noise, not drift.
	obs := subjectAt(0.53, 0.5, 0.1, 0.1)

	result, err := Evaluate(RuleCenterFraming, obs, testFrame, nil, DefaultTuning())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if result.Suggestion != "Well centered" {
		t.Errorf("Suggestion = %q, want %q", result.Suggestion, "Well centered")
	}
}

func TestCenterFramingFollowSubjectAllDirections(t *testing.T) {
	tests := []struct {
		name   string
		cx, cy float64
		want   string
	}{
		{"subject left", 0.3, 0.5, "Move left"},
		{"subject right", 0.7, 0.5, "Move right"},
		{"subject above", 0.5, 0.3, "Move up"},
		{"subject below", 0.5, 0.7, "Move down"},
		{"subject down-right", 0.7, 0.7, "Move right and down"},
		{"subject up-left", 0.3, 0.3, "Move left and up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Evaluate(RuleCenterFraming, subjectAt(tt.cx, tt.cy, 0.1, 0.1), testFrame, nil, DefaultTuning())
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if result.Suggestion != tt.want {
				t.Errorf("Suggestion = %q, want %q", result.Suggestion, tt.want)
			}
			if result.Status != StatusNeedsAdjustment {
				t.Errorf("Status = %v, want NeedsAdjustment", result.Status)
			}
		})
	}
}

func TestCenterFramingSymmetryBonus(t *testing.T) {
	obs := subjectAt(0.5, 0.5, 0.2, 0.2)
	px := verticalGradient(200, 200)

	withPixels, err := Evaluate(RuleCenterFraming, obs, testFrame, px, DefaultTuning())
	if err != nil {
		t.Fatalf("Evaluate with pixels failed: %v", err)
	}
	withoutPixels, err := Evaluate(RuleCenterFraming, obs, testFrame, nil, DefaultTuning())
	if err != nil {
		t.Fatalf("Evaluate without pixels failed: %v", err)
	}

	if withPixels.Status != StatusPerfect {
		t.Errorf("Status with symmetric pixels = %v, want Perfect", withPixels.Status)
	}
	if withoutPixels.Status != StatusGood {
		t.Errorf("Status without pixels = %v, want Good", withoutPixels.Status)
	}
	if withPixels.Score < withoutPixels.Score {
		t.Errorf("bonus should not lower the score: %v < %v",
			withPixels.Score, withoutPixels.Score)
	}
}

func TestCenterFramingBonusCannotRescueMiscentered(t *testing.T) {
	// Perfect symmetry must not lift a miscentered subject out of
	// NeedsAdjustment.
	obs := subjectAt(0.8, 0.5, 0.1, 0.1)
	px := verticalGradient(200, 200)

	result, err := Evaluate(RuleCenterFraming, obs, testFrame, px, DefaultTuning())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if result.Status != StatusNeedsAdjustment {
		t.Errorf("Status = %v, want NeedsAdjustment despite symmetric pixels", result.Status)
	}
	if result.Score >= 0.7 {
		t.Errorf("Score = %v, want below the centered floor", result.Score)
	}
}

func TestCenterFramingScoreRange(t *testing.T) {
	for _, cx := range []float64{0, 0.25, 0.5, 0.75, 1} {
		for _, cy := range []float64{0, 0.5, 1} {
			result, err := Evaluate(RuleCenterFraming, subjectAt(cx, cy, 0.1, 0.1), testFrame, nil, DefaultTuning())
			if err != nil {
				t.Fatalf("Evaluate(%v,%v) failed: %v", cx, cy, err)
			}
			if result.Score < 0 || result.Score > 1 {
				t.Errorf("score %v outside [0,1] at (%v,%v)", result.Score, cx, cy)
			}
		}
	}
}

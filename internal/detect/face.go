package detect

import (
	"image"

	pigo "github.com/esimov/pigo/core"

	"github.com/framewise/composure/internal/geometry"
)

// faceQualityCeiling is the pigo quality score treated as full confidence.
// Cascade Q scores are open-ended; in practice strong frontal faces land
// between 30 and 80.
const faceQualityCeiling = 50.0

// detectFace runs the pigo cascade over the frame and returns the
// highest-quality face as an observation. Returns false when the cascade is
// unavailable or no candidate passes the quality threshold.
func (d *Detector) detectFace(img image.Image, frame geometry.Size) (Observation, bool) {
	if d.classifier == nil {
		return None(), false
	}

	pixels := pigo.RgbToGrayscale(img)
	rows := frame.Height
	cols := frame.Width

	minDim := cols
	if rows < minDim {
		minDim = rows
	}
	minSize := int(float64(minDim) * d.cfg.MinFaceSizeFrac)
	if minSize < 20 {
		minSize = 20
	}

	params := pigo.CascadeParams{
		MinSize:     minSize,
		MaxSize:     minDim,
		ShiftFactor: d.cfg.ShiftFactor,
		ScaleFactor: d.cfg.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.cfg.ClusterIoU)

	best, ok := bestDetection(dets, d.cfg.MinFaceQuality)
	if !ok {
		return None(), false
	}

	half := best.Scale / 2
	box := image.Rect(best.Col-half, best.Row-half, best.Col+half, best.Row+half)

	return Observation{
		Bounds:     geometry.FromPixels(box, frame),
		Kind:       KindFace,
		Confidence: geometry.Clamp01(float64(best.Q) / faceQualityCeiling),
	}, true
}

// bestDetection picks the highest-quality detection at or above the
// minimum quality threshold.
func bestDetection(dets []pigo.Detection, minQ float32) (pigo.Detection, bool) {
	var best pigo.Detection
	found := false
	for _, det := range dets {
		if det.Q < minQ {
			continue
		}
		if !found || det.Q > best.Q {
			best = det
			found = true
		}
	}
	return best, found
}

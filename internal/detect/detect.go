package detect

import (
	"fmt"
	"image"
	"log"

	pigo "github.com/esimov/pigo/core"

	"github.com/framewise/composure/internal/geometry"
)

// Kind identifies what sort of subject an observation describes.
type Kind int

const (
	// KindNone means no subject was found in the frame.
	KindNone Kind = iota

	// KindFace is a detected face (highest-priority tier).
	KindFace

	// KindHuman is a human-scale salient region found by the fallback tier.
	KindHuman
)

// String returns the serialized name of the kind.
func (k Kind) String() string {
	switch k {
	case KindFace:
		return "face"
	case KindHuman:
		return "human"
	default:
		return "none"
	}
}

// Observation is the result of one detection pass over a frame.
//
// Observations are immutable value types: produced once per evaluated frame,
// passed by copy through the scoring pipeline, and discarded after one
// evaluation cycle.
type Observation struct {
	// Bounds is the subject bounding box, normalized to [0,1]×[0,1].
	// Empty when Kind is KindNone.
	Bounds geometry.Rect `json:"bounds"`

	// Kind is the detection tier that produced this observation.
	Kind Kind `json:"kind"`

	// Confidence is the detector's confidence in this subject (0.0 to 1.0).
	Confidence float64 `json:"confidence"`
}

// HasSubject reports whether the observation describes an actual subject.
func (o Observation) HasSubject() bool {
	return o.Kind != KindNone && !o.Bounds.Empty()
}

// None returns the canonical no-subject observation.
func None() Observation {
	return Observation{Kind: KindNone}
}

// Config holds detection thresholds for both tiers.
type Config struct {
	// MinFaceQuality is the minimum pigo quality score for a face candidate.
	MinFaceQuality float32

	// ShiftFactor is the cascade window stride as a fraction of window size.
	ShiftFactor float64

	// ScaleFactor is the cascade window growth factor between scales.
	ScaleFactor float64

	// MinFaceSizeFrac is the minimum face size as a fraction of the shorter
	// frame edge.
	MinFaceSizeFrac float64

	// ClusterIoU is the intersection-over-union threshold used to merge
	// overlapping face candidates.
	ClusterIoU float64

	// SaliencyThumb is the thumbnail width used by the human-region tier.
	SaliencyThumb int

	// MinRegionFrac is the minimum salient region area as a fraction of the
	// frame for the human-region tier to report a subject.
	MinRegionFrac float64
}

// DefaultConfig returns detection thresholds tuned for handheld photography.
func DefaultConfig() Config {
	return Config{
		MinFaceQuality:  10.0,
		ShiftFactor:     0.1,
		ScaleFactor:     1.1,
		MinFaceSizeFrac: 0.05,
		ClusterIoU:      0.2,
		SaliencyThumb:   128,
		MinRegionFrac:   0.02,
	}
}

// Detector runs the tiered subject detection pipeline.
//
// A Detector is stateless between frames and safe for sequential reuse; the
// evaluation pipeline calls Detect from a single background goroutine.
type Detector struct {
	cfg        Config
	classifier *pigo.Pigo
}

// New creates a Detector without face cascade data. The face tier is skipped
// and detection starts at the human-region tier.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// NewWithCascade creates a Detector with a pigo face cascade (the binary
// facefinder format). Returns an error if the cascade cannot be unpacked;
// callers that want detection to degrade instead of fail can fall back to New.
func NewWithCascade(cfg Config, cascade []byte) (d *Detector, err error) {
	// Unpack panics on truncated cascade bytes rather than returning an
	// error, so the panic has to be converted here to keep the contract.
	defer func() {
		if r := recover(); r != nil {
			d = nil
			err = fmt.Errorf("failed to unpack face cascade: %v", r)
		}
	}()

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack face cascade: %w", err)
	}
	return &Detector{cfg: cfg, classifier: classifier}, nil
}

// Detect runs the tiered pipeline over a frame and returns at most one
// primary subject observation.
//
// Detect never fails: nil or degenerate frames, missing cascade data, and
// panics inside the vision code all yield the no-subject observation.
func (d *Detector) Detect(img image.Image) (obs Observation) {
	obs = None()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("detect: recovered from panic, degrading to no subject: %v", r)
			obs = None()
		}
	}()

	if img == nil {
		return obs
	}
	frame := geometry.SizeOf(img)
	if !frame.Valid() {
		return obs
	}

	if face, ok := d.detectFace(img, frame); ok {
		obs = face
		return obs
	}

	if region, ok := detectSalientRegion(img, frame, d.cfg); ok {
		obs = region
		return obs
	}

	return obs
}

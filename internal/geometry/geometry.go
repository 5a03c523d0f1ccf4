// Package geometry provides the shared coordinate types for the composition
// engine: pixel frame sizes and normalized points/rectangles.
//
// # Coordinate System
//
// Normalized coordinates are fractions of the frame in [0,1]:
//   - (0,0) is the top-left corner
//   - X increases rightward, Y increases downward
//   - A Rect stores its top-left corner plus width and height
//
// Pixel coordinates follow the standard image convention with origin at the
// top-left. Conversions between the two always go through a Size.
package geometry

import (
	"image"
	"math"
)

// Size is a frame size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive. Composition scoring
// against a degenerate frame is meaningless, so callers reject invalid sizes
// at the boundary.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// SizeOf returns the pixel size of an image.
func SizeOf(img image.Image) Size {
	if img == nil {
		return Size{}
	}
	b := img.Bounds()
	return Size{Width: b.Dx(), Height: b.Dy()}
}

// Point is a normalized 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the Euclidean distance between two normalized points.
func (p Point) DistanceTo(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Rect is a normalized rectangle. X and Y locate the top-left corner;
// W and H are the normalized width and height.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Area returns the normalized area (fraction of the frame covered).
func (r Rect) Area() float64 {
	return r.W * r.H
}

// Empty reports whether the rectangle has no extent.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// FromPixels converts a pixel rectangle to a normalized Rect within the given
// frame size. Returns an empty Rect when the frame size is invalid.
func FromPixels(pr image.Rectangle, s Size) Rect {
	if !s.Valid() {
		return Rect{}
	}
	fw := float64(s.Width)
	fh := float64(s.Height)
	return Rect{
		X: float64(pr.Min.X) / fw,
		Y: float64(pr.Min.Y) / fh,
		W: float64(pr.Dx()) / fw,
		H: float64(pr.Dy()) / fh,
	}
}

// ToPixels converts a normalized Rect back to pixel coordinates within the
// given frame size.
func (r Rect) ToPixels(s Size) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X*float64(s.Width))),
		int(math.Round(r.Y*float64(s.Height))),
		int(math.Round((r.X+r.W)*float64(s.Width))),
		int(math.Round((r.Y+r.H)*float64(s.Height))),
	)
}

// Clamp01 constrains a value to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

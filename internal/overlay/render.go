package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/framewise/composure/internal/geometry"
)

// Render draws an element list onto a copy of the base image and returns
// the annotated copy. The base image is never modified.
//
// This rasterizer exists for the CLI's annotated-output mode and for visual
// debugging; live UI rendering is owned by the consuming application.
func Render(base image.Image, elements []Element) *image.RGBA {
	bounds := base.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), base, bounds.Min, draw.Src)

	size := geometry.Size{Width: bounds.Dx(), Height: bounds.Dy()}

	for _, el := range elements {
		c := styleColor(el.Style)

		switch el.Kind {
		case KindGrid, KindSymmetryLine:
			for _, line := range el.Lines {
				drawLine(out, size, line, el.Style.StrokeWidth, c)
			}

		case KindCrosshair:
			if el.Center == nil {
				continue
			}
			drawCrosshair(out, size, *el.Center, el.Span, el.Style.StrokeWidth, c)

		case KindSafetyZone:
			if el.Zone == nil {
				continue
			}
			fillRect(out, el.Zone.ToPixels(size), c)
		}
	}

	return out
}

// styleColor resolves a style to a premultiplied-free RGBA with the style's
// opacity folded into the alpha channel. Unparseable colors fall back to
// opaque white so a bad palette entry degrades visibly instead of silently.
func styleColor(s Style) color.RGBA {
	c, err := colorful.Hex(s.Color)
	if err != nil {
		c = colorful.Color{R: 1, G: 1, B: 1}
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: uint8(255 * geometry.Clamp01(s.Opacity))}
}

// drawLine draws an axis-aligned line (every overlay line is horizontal or
// vertical) with the given stroke width.
func drawLine(img *image.RGBA, size geometry.Size, line Line, stroke float64, c color.RGBA) {
	x1 := int(math.Round(line.From.X * float64(size.Width)))
	y1 := int(math.Round(line.From.Y * float64(size.Height)))
	x2 := int(math.Round(line.To.X * float64(size.Width)))
	y2 := int(math.Round(line.To.Y * float64(size.Height)))

	half := int(stroke) / 2
	if half < 0 {
		half = 0
	}

	if x1 == x2 { // vertical
		for w := -half; w <= half; w++ {
			for y := min(y1, y2); y <= max(y1, y2); y++ {
				blendPixel(img, x1+w, y, c)
			}
		}
		return
	}

	for w := -half; w <= half; w++ {
		for x := min(x1, x2); x <= max(x1, x2); x++ {
			blendPixel(img, x, y1+w, c)
		}
	}
}

// drawCrosshair draws two centered arms of the given normalized span.
func drawCrosshair(img *image.RGBA, size geometry.Size, center geometry.Point, span, stroke float64, c color.RGBA) {
	drawLine(img, size, Line{
		From: geometry.Point{X: center.X - span, Y: center.Y},
		To:   geometry.Point{X: center.X + span, Y: center.Y},
	}, stroke, c)
	drawLine(img, size, Line{
		From: geometry.Point{X: center.X, Y: center.Y - span},
		To:   geometry.Point{X: center.X, Y: center.Y + span},
	}, stroke, c)
}

// fillRect alpha-blends a filled rectangle.
func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			blendPixel(img, x, y, c)
		}
	}
}

// blendPixel alpha-blends a color over the existing pixel, clipping to the
// image bounds.
func blendPixel(img *image.RGBA, x, y int, c color.RGBA) {
	bounds := img.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return
	}

	dst := img.RGBAAt(x, y)
	a := float64(c.A) / 255.0
	blend := func(over, under uint8) uint8 {
		return uint8(float64(over)*a + float64(under)*(1-a))
	}
	img.SetRGBA(x, y, color.RGBA{
		R: blend(c.R, dst.R),
		G: blend(c.G, dst.G),
		B: blend(c.B, dst.B),
		A: 255,
	})
}

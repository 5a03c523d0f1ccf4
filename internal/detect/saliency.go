package detect

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/transform"

	"github.com/framewise/composure/internal/geometry"
)

// detectSalientRegion is the human-region fallback tier. It looks for the
// largest connected region of concentrated edge energy in a downsampled
// thumbnail and reports its bounding box as a human-scale subject.
//
// Pipeline:
//
//  1. Resize the frame to a small thumbnail (speed; detail is irrelevant)
//  2. Sobel edge filter to build an energy map, weighted toward the frame
//     center (a handheld shot's subject is rarely in a corner)
//  3. Threshold at mean + 0.5σ to isolate textured regions
//  4. Flood-fill connected components and keep the one with the most energy
//  5. Reject regions below the configured area floor
func detectSalientRegion(img image.Image, frame geometry.Size, cfg Config) (Observation, bool) {
	tw := cfg.SaliencyThumb
	if tw < 16 {
		tw = 16
	}
	th := tw * frame.Height / frame.Width
	if th < 16 {
		th = 16
	}

	thumb := transform.Resize(img, tw, th, transform.Linear)
	edges := effect.Sobel(thumb)

	cx, cy := float64(tw)/2, float64(th)/2
	maxDist := math.Hypot(cx, cy)

	energy := make([][]float64, th)
	var sum, sumSq float64
	for y := 0; y < th; y++ {
		energy[y] = make([]float64, tw)
		for x := 0; x < tw; x++ {
			r, g, b, _ := edges.At(x, y).RGBA()
			// BT.601 luminance of the edge response
			v := (0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)) / 255.0
			// Center prior: corner energy counts half as much as central.
			weight := 1.0 - 0.5*math.Hypot(float64(x)-cx, float64(y)-cy)/maxDist
			v *= weight
			energy[y][x] = v
			sum += v
			sumSq += v * v
		}
	}

	n := float64(tw * th)
	mean := sum / n
	stddev := math.Sqrt(math.Max(0, sumSq/n-mean*mean))
	if stddev < 1e-3 {
		// Featureless frame: every pixel would pass a flat threshold and the
		// whole frame would register as one giant "subject".
		return None(), false
	}
	threshold := mean + 0.5*stddev

	mask := make([][]bool, th)
	for y := 0; y < th; y++ {
		mask[y] = make([]bool, tw)
		for x := 0; x < tw; x++ {
			mask[y][x] = energy[y][x] >= threshold
		}
	}

	region, ok := largestRegion(mask, energy, tw, th)
	if !ok {
		return None(), false
	}

	areaFrac := float64(region.box.Dx()*region.box.Dy()) / n
	if areaFrac < cfg.MinRegionFrac {
		return None(), false
	}

	// Confidence tracks how much the region's energy stands out from the
	// frame average, capped at moderate values: the fallback tier can never
	// be as certain as a cascade face hit.
	meanEnergy := region.energy / float64(region.pixels)
	confidence := geometry.Clamp01((meanEnergy - mean) / (1.0 - mean + 1e-6))
	if confidence > 0.75 {
		confidence = 0.75
	}

	return Observation{
		Bounds:     geometry.FromPixels(region.box, geometry.Size{Width: tw, Height: th}),
		Kind:       KindHuman,
		Confidence: confidence,
	}, true
}

// salientRegion is one connected component of above-threshold pixels.
type salientRegion struct {
	box    image.Rectangle
	pixels int
	energy float64
}

// largestRegion flood-fills connected components of the mask (4-neighborhood)
// and returns the component carrying the most total energy.
func largestRegion(mask [][]bool, energy [][]float64, w, h int) (salientRegion, bool) {
	visited := make([][]bool, h)
	for y := range visited {
		visited[y] = make([]bool, w)
	}

	var best salientRegion
	found := false

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y][x] || visited[y][x] {
				continue
			}

			region := floodFill(mask, energy, visited, x, y, w, h)
			if !found || region.energy > best.energy {
				best = region
				found = true
			}
		}
	}

	return best, found
}

// floodFill collects one connected component starting at (sx, sy) using an
// explicit stack to avoid deep recursion on large regions.
func floodFill(mask [][]bool, energy [][]float64, visited [][]bool, sx, sy, w, h int) salientRegion {
	region := salientRegion{box: image.Rect(sx, sy, sx+1, sy+1)}

	stack := []image.Point{{X: sx, Y: sy}}
	visited[sy][sx] = true

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		region.pixels++
		region.energy += energy[p.Y][p.X]
		region.box = region.box.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

		neighbors := []image.Point{
			{X: p.X - 1, Y: p.Y},
			{X: p.X + 1, Y: p.Y},
			{X: p.X, Y: p.Y - 1},
			{X: p.X, Y: p.Y + 1},
		}
		for _, nb := range neighbors {
			if nb.X < 0 || nb.X >= w || nb.Y < 0 || nb.Y >= h {
				continue
			}
			if !mask[nb.Y][nb.X] || visited[nb.Y][nb.X] {
				continue
			}
			visited[nb.Y][nb.X] = true
			stack = append(stack, nb)
		}
	}

	return region
}

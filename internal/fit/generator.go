package fit

import (
	"image"
	"math/rand"
)

// Generator draws random primitive proposals for a fixed target size
type Generator struct {
	rng     *rand.Rand
	width   int
	height  int
	palette Palette
	shapes  []Shape
	biased  bool
}

// NewGenerator creates a generator. The palette and shape list must be
// non-empty and the dimensions positive before Next is called.
func NewGenerator(rng *rand.Rand, width, height int, palette Palette, shapes []Shape, biased bool) *Generator {
	return &Generator{
		rng:     rng,
		width:   width,
		height:  height,
		palette: palette,
		shapes:  shapes,
		biased:  biased,
	}
}

// Next draws the proposal for the given iteration.
//
// Draw order is fixed (anchor x, anchor y, color, vertical offset, horizontal
// offset, shape) so a seeded stream reproduces a run exactly.
func (g *Generator) Next(iteration int64, size SizeRange) Proposal {
	x0 := g.rng.Intn(g.width)
	y0 := g.rng.Intn(g.height)
	c := g.palette[g.rng.Intn(len(g.palette))]

	span := float64(size.Max)
	lower := size.Lower()
	y := float64(y0) + span*g.offset(lower)

	var p1 image.Point
	if g.biased {
		x := float64(x0) + span*g.offset(lower)
		p1 = image.Pt(int(x), int(y))
	} else {
		// Alternate direction by parity rather than by a random sign
		sign := 1.0
		if iteration%2 == 0 {
			sign = -1.0
		}
		x := float64(x0) + sign*span*g.offset(lower)
		p1 = clipToOrigin(float64(x0), float64(y0), x, y)
	}

	shape := g.shapes[g.rng.Intn(len(g.shapes))]

	return Proposal{
		Shape: shape,
		P0:    image.Pt(x0, y0),
		P1:    p1,
		Color: c,
	}
}

// offset samples uniformly from [lower, 1)
func (g *Generator) offset(lower float64) float64 {
	return lower + g.rng.Float64()*(1-lower)
}

// clipToOrigin returns (x,y) truncated to integers, unless x is negative. In
// that case the segment from (x0,y0) is cut where it meets x=0, or y=0 when
// the x=0 crossing lies above the raster.
func clipToOrigin(x0, y0, x, y float64) image.Point {
	if x >= 0 {
		return image.Pt(int(x), int(y))
	}

	// x < 0 <= x0, so x-x0 is never zero here
	yInt := y0 - x0*(y-y0)/(x-x0)
	if yInt >= 0 {
		return image.Pt(0, int(yInt))
	}

	if y == y0 {
		return image.Pt(0, int(y0))
	}
	xInt := x0 - y0*(x-x0)/(y-y0)
	if xInt < 0 {
		xInt = 0
	}
	return image.Pt(int(xInt), 0)
}

package imageio

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blur"

	"github.com/cwbudde/redraw/internal/fit"
)

// Blur applies a gaussian blur with the given radius and returns a new raster.
// A non-positive radius returns an unchanged copy.
func Blur(r *fit.Raster, radius float64) *fit.Raster {
	if radius <= 0 || r.Empty() {
		return r.Clone()
	}
	return fit.FromRGBA(blur.Gaussian(r.ToNRGBA(), radius))
}

// Diff renders the per-pixel L1 error between target and canvas as a
// false-color image: black where they agree, red where they differ most
func Diff(target, canvas *fit.Raster) *image.NRGBA {
	diff := image.NewNRGBA(image.Rect(0, 0, target.Width, target.Height))
	if !target.SameSize(canvas) {
		return diff
	}

	for y := 0; y < target.Height; y++ {
		for x := 0; x < target.Width; x++ {
			// Max L1 is 3*255
			d := fit.L1(target.At(x, y), canvas.At(x, y)) / 3
			diff.SetNRGBA(x, y, color.NRGBA{uint8(d), 0, 0, 255})
		}
	}
	return diff
}

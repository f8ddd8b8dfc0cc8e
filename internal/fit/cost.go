package fit

import "image"

// Score is the outcome of comparing a candidate color with the canvas over
// one footprint
type Score struct {
	Candidate int64 // L1 error if the candidate were drawn
	Current   int64 // L1 error of the canvas as it is
	Accepted  bool
}

// Evaluate scores color c over the footprint. Out-of-bounds points are skipped,
// so an empty or fully clipped footprint scores 0 against 0 and is rejected.
func Evaluate(target, canvas *Raster, footprint []image.Point, c Color) Score {
	var s Score
	for _, p := range footprint {
		if !target.In(p.X, p.Y) {
			continue
		}
		want := target.At(p.X, p.Y)
		s.Current += L1(want, canvas.At(p.X, p.Y))
		s.Candidate += L1(want, c)
	}
	s.Accepted = s.Candidate < s.Current
	return s
}

// Commit paints c over every in-bounds footprint point
func Commit(canvas *Raster, footprint []image.Point, c Color) {
	for _, p := range footprint {
		if canvas.In(p.X, p.Y) {
			canvas.Set(p.X, p.Y, c)
		}
	}
}

// TotalError computes the image-wide L1 error between two rasters of equal size.
// It is only used for reporting; acceptance is decided locally by Evaluate.
func TotalError(target, canvas *Raster) int64 {
	if !target.SameSize(canvas) {
		panic("image dimensions must match")
	}

	var sum int64
	for i := 0; i+2 < len(target.Pix); i += bytesPerPixel {
		sum += absDiff(target.Pix[i+0], canvas.Pix[i+0])
		sum += absDiff(target.Pix[i+1], canvas.Pix[i+1])
		sum += absDiff(target.Pix[i+2], canvas.Pix[i+2])
	}
	return sum
}

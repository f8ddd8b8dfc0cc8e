package fit

import (
	"image"
	"image/color"
)

// Color is an 8-bit RGB triple
type Color struct {
	R, G, B uint8
}

// Less orders colors lexicographically by R, then G, then B
func (c Color) Less(o Color) bool {
	if c.R != o.R {
		return c.R < o.R
	}
	if c.G != o.G {
		return c.G < o.G
	}
	return c.B < o.B
}

// RGBA implements color.Color with full opacity
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{c.R, c.G, c.B, 255}.RGBA()
}

// L1 returns the sum of absolute channel differences between two colors
func L1(a, b Color) int64 {
	return absDiff(a.R, b.R) + absDiff(a.G, b.G) + absDiff(a.B, b.B)
}

func absDiff(a, b uint8) int64 {
	d := int64(a) - int64(b)
	if d < 0 {
		return -d
	}
	return d
}

const bytesPerPixel = 3

// Raster is a packed RGB image with its origin at (0,0)
type Raster struct {
	Width  int
	Height int
	Pix    []uint8 // 3 bytes per pixel, row major
}

// NewRaster allocates a black raster
func NewRaster(width, height int) *Raster {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*bytesPerPixel),
	}
}

// In reports whether (x,y) lies inside the raster
func (r *Raster) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < r.Width && y < r.Height
}

// Empty reports whether the raster has no pixels
func (r *Raster) Empty() bool {
	return r.Width == 0 || r.Height == 0
}

func (r *Raster) offset(x, y int) int {
	return (y*r.Width + x) * bytesPerPixel
}

// At returns the color at (x,y). The point must be in bounds.
func (r *Raster) At(x, y int) Color {
	i := r.offset(x, y)
	return Color{r.Pix[i], r.Pix[i+1], r.Pix[i+2]}
}

// Set writes the color at (x,y). The point must be in bounds.
func (r *Raster) Set(x, y int, c Color) {
	i := r.offset(x, y)
	r.Pix[i+0] = c.R
	r.Pix[i+1] = c.G
	r.Pix[i+2] = c.B
}

// Clone returns a deep copy
func (r *Raster) Clone() *Raster {
	pix := make([]uint8, len(r.Pix))
	copy(pix, r.Pix)
	return &Raster{Width: r.Width, Height: r.Height, Pix: pix}
}

// SameSize reports whether two rasters have equal dimensions
func (r *Raster) SameSize(o *Raster) bool {
	return r.Width == o.Width && r.Height == o.Height
}

// ToNRGBA converts the raster to an opaque image.NRGBA for encoding
func (r *Raster) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			src := r.offset(x, y)
			dst := img.PixOffset(x, y)
			img.Pix[dst+0] = r.Pix[src+0]
			img.Pix[dst+1] = r.Pix[src+1]
			img.Pix[dst+2] = r.Pix[src+2]
			img.Pix[dst+3] = 255
		}
	}
	return img
}

// FromRGBA copies the color channels of an RGBA image, dropping alpha.
// Since RGBA is premultiplied, translucent pixels end up composited over black.
func FromRGBA(img *image.RGBA) *Raster {
	b := img.Bounds()
	r := NewRaster(b.Dx(), b.Dy())
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			src := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			dst := r.offset(x, y)
			r.Pix[dst+0] = img.Pix[src+0]
			r.Pix[dst+1] = img.Pix[src+1]
			r.Pix[dst+2] = img.Pix[src+2]
		}
	}
	return r
}

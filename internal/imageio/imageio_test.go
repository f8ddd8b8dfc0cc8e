package imageio

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/redraw/internal/fit"
)

func checkerRaster(width, height int) *fit.Raster {
	r := fit.NewRaster(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x+y)%2 == 0 {
				r.Set(x, y, fit.Color{R: 250, G: 20, B: 40})
			} else {
				r.Set(x, y, fit.Color{R: 10, G: 200, B: 90})
			}
		}
	}
	return r
}

func TestFormatFromExt(t *testing.T) {
	tests := []struct {
		ext  string
		want Format
	}{
		{".png", PNG},
		{"PNG", PNG},
		{".jpg", JPEG},
		{"jpeg", JPEG},
		{".gif", GIF},
		{".tif", TIFF},
		{".tiff", TIFF},
		{".bmp", BMP},
		{".webp", WebP},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got, err := FormatFromExt(tt.ext)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FormatFromExt("")
	assert.Error(t, err)
	_, err = FormatFromExt(".xcf")
	assert.Error(t, err)
}

func TestSaveLoadLossless(t *testing.T) {
	dir := t.TempDir()
	src := checkerRaster(7, 5)

	for _, name := range []string{"out.png", "out.bmp", "out.tiff"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, Save(path, src))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, src.Width, loaded.Width)
			assert.Equal(t, src.Height, loaded.Height)
			assert.Equal(t, src.Pix, loaded.Pix)
		})
	}
}

func TestSaveLossyKeepsSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.jpg")
	require.NoError(t, Save(path, checkerRaster(12, 9)))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, loaded.Width)
	assert.Equal(t, 9, loaded.Height)
}

func TestSaveRejectsUnknownExtension(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "out.xyz"), checkerRaster(2, 2))
	assert.Error(t, err)

	var buf bytes.Buffer
	assert.Error(t, Encode(&buf, checkerRaster(2, 2), WebP))
}

func TestSaveFailureKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.webp")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0644))

	err := Save(path, fit.NewRaster(4, 4))
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestSaveFailureCreatesNothing(t *testing.T) {
	dir := t.TempDir()
	require.Error(t, Save(filepath.Join(dir, "out.webp"), fit.NewRaster(4, 4)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	_, err = Load(dir)
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0644))
	_, err = Load(garbage)
	assert.Error(t, err)
}

func TestDecodeTranslucentOverBlack(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{200, 100, 0, 0})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	r, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, fit.Color{}, r.At(0, 0))
}

func TestFromImageOffsetBounds(t *testing.T) {
	img := image.NewNRGBA(image.Rect(3, 4, 5, 6))
	img.SetNRGBA(3, 4, color.NRGBA{1, 2, 3, 255})
	img.SetNRGBA(4, 5, color.NRGBA{9, 8, 7, 255})

	r := FromImage(img)
	assert.Equal(t, 2, r.Width)
	assert.Equal(t, 2, r.Height)
	assert.Equal(t, fit.Color{R: 1, G: 2, B: 3}, r.At(0, 0))
	assert.Equal(t, fit.Color{R: 9, G: 8, B: 7}, r.At(1, 1))
}

func TestBlur(t *testing.T) {
	src := checkerRaster(16, 16)

	same := Blur(src, 0)
	assert.Equal(t, src.Pix, same.Pix)
	same.Set(0, 0, fit.Color{})
	assert.NotEqual(t, src.Pix, same.Pix, "zero blur must return a copy")

	blurred := Blur(src, 2)
	assert.Equal(t, src.Width, blurred.Width)
	assert.Equal(t, src.Height, blurred.Height)
	assert.NotEqual(t, src.Pix, blurred.Pix)

	assert.True(t, Blur(fit.NewRaster(0, 0), 3).Empty())
}

func TestDiff(t *testing.T) {
	target := checkerRaster(4, 4)
	canvas := target.Clone()
	canvas.Set(1, 2, fit.Color{})

	diff := Diff(target, canvas)
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, diff.NRGBAAt(0, 0))

	want := fit.L1(target.At(1, 2), fit.Color{}) / 3
	assert.Equal(t, color.NRGBA{uint8(want), 0, 0, 255}, diff.NRGBAAt(1, 2))
}

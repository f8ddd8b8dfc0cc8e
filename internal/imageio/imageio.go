// Package imageio converts between image files and fit rasters.
package imageio

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/clone"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // Register WebP format

	"github.com/cwbudde/redraw/internal/fit"
)

// Format is an image encoding
type Format int

const (
	None Format = iota
	PNG
	JPEG
	GIF
	TIFF
	BMP
	WebP
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case JPEG:
		return "jpeg"
	case GIF:
		return "gif"
	case TIFF:
		return "tiff"
	case BMP:
		return "bmp"
	case WebP:
		return "webp"
	default:
		return "none"
	}
}

// FormatFromExt returns the Format for a filename extension, with or
// without the leading dot
func FormatFromExt(ext string) (Format, error) {
	if len(ext) == 0 {
		return None, errors.New("extension is empty")
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch ext {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "gif":
		return GIF, nil
	case "tif", "tiff":
		return TIFF, nil
	case "bmp":
		return BMP, nil
	case "webp":
		return WebP, nil
	}
	return None, fmt.Errorf("extension %q not recognized", ext)
}

// Load decodes an image file into a raster.
// Supported formats: PNG, JPEG, GIF, TIFF, BMP, WebP.
func Load(path string) (*fit.Raster, error) {
	if path == "" {
		return nil, fmt.Errorf("image path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to stat image file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads any registered image format into a raster.
// Translucent pixels are composited over black.
func Decode(r io.Reader) (*fit.Raster, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image (format: %s): %w", format, err)
	}
	return FromImage(img), nil
}

// FromImage converts any image to a raster
func FromImage(img image.Image) *fit.Raster {
	return fit.FromRGBA(clone.AsRGBA(img))
}

// Save encodes the raster to path, choosing the format from the extension.
// The image is written to a temporary file and renamed into place, so a
// failed save leaves any existing file untouched. WebP is decode-only.
func Save(path string, r *fit.Raster) (err error) {
	format, err := FormatFromExt(filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("failed to determine output format: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	w := bufio.NewWriter(f)
	if err = Encode(w, r, format); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// Encode writes the raster in the given format
func Encode(w io.Writer, r *fit.Raster, format Format) error {
	img := r.ToNRGBA()

	var err error
	switch format {
	case PNG:
		err = png.Encode(w, img)
	case JPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case GIF:
		err = gif.Encode(w, img, nil)
	case TIFF:
		err = tiff.Encode(w, img, nil)
	case BMP:
		err = bmp.Encode(w, img)
	default:
		return fmt.Errorf("cannot encode format %s", format)
	}

	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return nil
}

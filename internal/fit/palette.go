package fit

import "slices"

// Palette is the sequence of colors proposals are drawn from
type Palette []Color

// BuildPalette collects one color per target pixel in scan order.
//
// With uniform set, the colors are sorted and deduplicated so each distinct
// color is equally likely to be drawn, instead of dominant colors winning
// most draws.
func BuildPalette(target *Raster, uniform bool) Palette {
	palette := make(Palette, 0, target.Width*target.Height)
	for y := 0; y < target.Height; y++ {
		for x := 0; x < target.Width; x++ {
			palette = append(palette, target.At(x, y))
		}
	}

	if uniform {
		slices.SortFunc(palette, func(a, b Color) int {
			switch {
			case a.Less(b):
				return -1
			case b.Less(a):
				return 1
			default:
				return 0
			}
		})
		palette = slices.Compact(palette)
	}

	return palette
}

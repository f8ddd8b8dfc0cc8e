package fit

import "image"

// Rasterize returns the pixels covered by a shape spanning two anchors.
// Points may fall outside any particular raster; callers skip those.
func (s Shape) Rasterize(x0, y0, x1, y1 int) []image.Point {
	switch s {
	case Line:
		return RasterizeLine(x0, y0, x1, y1)
	case Rectangle:
		return RasterizeRect(x0, y0, x1, y1)
	default:
		return nil
	}
}

// RasterizeLine walks a Bresenham line from (x0,y0) to (x1,y1), both ends
// inclusive. The result is 8-connected and each point appears once.
func RasterizeLine(x0, y0, x1, y1 int) []image.Point {
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)

	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}

	// Error starts at half the dominant delta
	err := -dy / 2
	if dx > dy {
		err = dx / 2
	}

	line := make([]image.Point, 0, max(dx, dy)+1)
	x, y := x0, y0
	for {
		line = append(line, image.Pt(x, y))
		if x == x1 && y == y1 {
			break
		}

		// Doubled so the step tests compare against half the deltas
		e := 2 * err
		if e > -dx {
			err -= dy
			x += sx
		}
		if e < dy {
			err += dx
			y += sy
		}
	}

	return line
}

// RasterizeRect covers the half-open box [x0,x1) × [y0,y1).
// Reversed corners produce an empty footprint; they are not swapped.
func RasterizeRect(x0, y0, x1, y1 int) []image.Point {
	if x1 <= x0 || y1 <= y0 {
		return nil
	}

	rect := make([]image.Point, 0, (x1-x0)*(y1-y0))
	for x := x0; x < x1; x++ {
		for y := y0; y < y1; y++ {
			rect = append(rect, image.Pt(x, y))
		}
	}
	return rect
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

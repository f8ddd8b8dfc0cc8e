package fit

import (
	"fmt"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRasterizeLine_AllOctants(t *testing.T) {
	for x1 := -4; x1 <= 4; x1++ {
		for y1 := -4; y1 <= 4; y1++ {
			x0, y0 := 0, 0
			line := RasterizeLine(x0, y0, x1, y1)

			require.NotEmpty(t, line)
			assert.Equal(t, image.Pt(x0, y0), line[0], "start of (%d,%d)", x1, y1)
			assert.Equal(t, image.Pt(x1, y1), line[len(line)-1], "end of (%d,%d)", x1, y1)

			seen := map[image.Point]bool{}
			for i, p := range line {
				assert.False(t, seen[p], "duplicate point %v in line to (%d,%d)", p, x1, y1)
				seen[p] = true
				if i == 0 {
					continue
				}
				prev := line[i-1]
				assert.LessOrEqual(t, abs(p.X-prev.X), 1)
				assert.LessOrEqual(t, abs(p.Y-prev.Y), 1)
			}

			assert.LessOrEqual(t, len(line), abs(x1)+abs(y1)+1)
			assert.GreaterOrEqual(t, len(line), max(abs(x1), abs(y1))+1)
		}
	}
}

func TestRasterizeLine_OffsetAnchors(t *testing.T) {
	tests := []struct {
		x0, y0, x1, y1 int
	}{
		{3, 7, 20, 2},
		{20, 2, 3, 7},
		{10, 10, 10, 30},
		{15, 4, 2, 4},
		{5, 5, 12, 12},
		{12, 0, 0, 12},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("(%d,%d)-(%d,%d)", tt.x0, tt.y0, tt.x1, tt.y1), func(t *testing.T) {
			line := RasterizeLine(tt.x0, tt.y0, tt.x1, tt.y1)
			assert.Equal(t, image.Pt(tt.x0, tt.y0), line[0])
			assert.Equal(t, image.Pt(tt.x1, tt.y1), line[len(line)-1])
		})
	}
}

func TestRasterizeLine_Footprints(t *testing.T) {
	tests := []struct {
		x0, y0, x1, y1 int
		want           []image.Point
	}{
		{0, 0, -6, -6, []image.Point{
			{0, 0}, {0, -1}, {-1, -1}, {-1, -2}, {-2, -2}, {-2, -3}, {-3, -3},
			{-3, -4}, {-4, -4}, {-4, -5}, {-5, -5}, {-5, -6}, {-6, -6},
		}},
		{0, 0, 3, 1, []image.Point{{0, 0}, {1, 0}, {2, 1}, {3, 1}}},
		{0, 0, 5, -2, []image.Point{{0, 0}, {1, 0}, {2, -1}, {3, -1}, {4, -1}, {5, -2}}},
		{0, 0, 1, 4, []image.Point{{0, 0}, {0, 1}, {0, 2}, {1, 3}, {1, 4}}},
		{2, 3, 6, 3, []image.Point{{2, 3}, {3, 3}, {4, 3}, {5, 3}, {6, 3}}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("(%d,%d)-(%d,%d)", tt.x0, tt.y0, tt.x1, tt.y1), func(t *testing.T) {
			assert.Equal(t, tt.want, RasterizeLine(tt.x0, tt.y0, tt.x1, tt.y1))
		})
	}
}

func TestRasterizeLine_Degenerate(t *testing.T) {
	line := RasterizeLine(4, 9, 4, 9)
	assert.Equal(t, []image.Point{{4, 9}}, line)
}

func TestRasterizeRect(t *testing.T) {
	tests := []struct {
		name           string
		x0, y0, x1, y1 int
		want           int
	}{
		{"unit", 0, 0, 1, 1, 1},
		{"2x2", 0, 0, 2, 2, 4},
		{"wide", 3, 1, 10, 3, 14},
		{"zero width", 5, 0, 5, 4, 0},
		{"zero height", 0, 5, 4, 5, 0},
		{"reversed x", 6, 0, 2, 3, 0},
		{"reversed y", 0, 6, 3, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rect := RasterizeRect(tt.x0, tt.y0, tt.x1, tt.y1)
			assert.Len(t, rect, tt.want)
			assert.Equal(t, max(0, tt.x1-tt.x0)*max(0, tt.y1-tt.y0), len(rect))
			for _, p := range rect {
				assert.True(t, p.X >= tt.x0 && p.X < tt.x1 && p.Y >= tt.y0 && p.Y < tt.y1, "point %v outside box", p)
			}
		})
	}
}

func TestShapeRasterizeDispatch(t *testing.T) {
	assert.Equal(t, RasterizeLine(0, 0, 3, 1), Line.Rasterize(0, 0, 3, 1))
	assert.Equal(t, RasterizeRect(0, 0, 3, 1), Rectangle.Rasterize(0, 0, 3, 1))
	assert.Nil(t, Shape(42).Rasterize(0, 0, 3, 1))
}

func TestParseShapes(t *testing.T) {
	shapes, err := ParseShapes("lines,rectangles")
	require.NoError(t, err)
	assert.Equal(t, []Shape{Line, Rectangle}, shapes)

	shapes, err = ParseShapes("rect, line")
	require.NoError(t, err)
	assert.Equal(t, []Shape{Rectangle, Line}, shapes)

	_, err = ParseShapes("lines,circles")
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "Shapes", cfgErr.Field)

	_, err = ParseShapes("")
	assert.Error(t, err)
}

func TestShapeText(t *testing.T) {
	text, err := Rectangle.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "rectangle", string(text))

	var s Shape
	require.NoError(t, s.UnmarshalText([]byte("lines")))
	assert.Equal(t, Line, s)

	_, err = Shape(7).MarshalText()
	assert.Error(t, err)
}

package fit

import (
	"fmt"
	"image"
	"strings"
)

// Shape is the kind of primitive a proposal rasterizes to
type Shape int

const (
	Line Shape = iota
	Rectangle
)

func (s Shape) String() string {
	switch s {
	case Line:
		return "line"
	case Rectangle:
		return "rectangle"
	default:
		return "unknown"
	}
}

// MarshalText encodes the shape by name so configs round-trip through JSON
func (s Shape) MarshalText() ([]byte, error) {
	if s != Line && s != Rectangle {
		return nil, fmt.Errorf("unknown shape: %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText parses a shape name
func (s *Shape) UnmarshalText(text []byte) error {
	parsed, err := ParseShape(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseShape resolves a shape name. Plural forms are accepted for
// compatibility with the comma-separated --shapes flag.
func ParseShape(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "line", "lines":
		return Line, nil
	case "rect", "rectangle", "rectangles":
		return Rectangle, nil
	default:
		return 0, &ConfigError{Field: "Shapes", Reason: fmt.Sprintf("%q is not a valid shape", name)}
	}
}

// ParseShapes parses a comma-separated list of shape names
func ParseShapes(list string) ([]Shape, error) {
	var shapes []Shape
	for _, name := range strings.Split(list, ",") {
		s, err := ParseShape(name)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, s)
	}
	return shapes, nil
}

// Proposal is a primitive that has been generated but not yet committed
type Proposal struct {
	Shape  Shape
	P0, P1 image.Point
	Color  Color
}

// Footprint rasterizes the proposal
func (p Proposal) Footprint() []image.Point {
	return p.Shape.Rasterize(p.P0.X, p.P0.Y, p.P1.X, p.P1.Y)
}

// SizeRange bounds the span between a proposal's two anchors.
// Max > Min holds at all times.
type SizeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Lower returns the lower bound of the offset distribution, Min/Max
func (r SizeRange) Lower() float64 {
	return float64(r.Min) / float64(r.Max)
}

// State is the mutable part of a search: counters plus the decaying size range.
// It is what a checkpoint needs to continue a run.
type State struct {
	Iteration int64     `json:"iteration"`
	Committed int64     `json:"committed"`
	Shrinks   int       `json:"shrinks"`
	Size      SizeRange `json:"size"`
}

// Streak is the rejection measure used by the adaptive schedule
func (s State) Streak() int64 {
	return s.Iteration - s.Committed
}

package main

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/cwbudde/redraw/internal/fit"
)

// shapesValue is a pflag.Value for a comma-separated shape list
type shapesValue struct {
	shapes *[]fit.Shape
}

var _ pflag.Value = (*shapesValue)(nil)

func newShapesValue(def []fit.Shape, p *[]fit.Shape) *shapesValue {
	*p = append([]fit.Shape(nil), def...)
	return &shapesValue{shapes: p}
}

func (v *shapesValue) String() string {
	if v.shapes == nil {
		return ""
	}
	names := make([]string, len(*v.shapes))
	for i, s := range *v.shapes {
		names[i] = s.String()
	}
	return strings.Join(names, ",")
}

func (v *shapesValue) Set(s string) error {
	shapes, err := fit.ParseShapes(s)
	if err != nil {
		return err
	}
	*v.shapes = shapes
	return nil
}

func (v *shapesValue) Type() string {
	return "shapes"
}

package render_test

import (
	"image/color"
	"math"
)

// grayColorizer maps [0,1] to gray levels with opacity equal to the value.
type grayColorizer struct{}

func (grayColorizer) RGBA(v float64) color.NRGBA {
	v = math.Max(0, math.Min(1, v))
	g := uint8(v * 255)
	return color.NRGBA{R: g, G: g, B: g, A: g}
}

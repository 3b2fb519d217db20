// Package colormap implements color transfer functions mapping scalar
// values to colors and opacities.
package colormap

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

var ErrUnknownColor = errors.New("unknown color")

var _ palette.ColorMap = (*TransferFunction)(nil)

// DefaultOpacity is the opacity ramp used for volumes when none is set.
var DefaultOpacity = []float64{0, 0, 0.2, 0.4, 0.8, 1}

// TransferFunction maps scalars in [Min, Max] to colors and opacities
// by linear interpolation between evenly spaced stops. Values outside
// the range are clamped.
type TransferFunction struct {
	min, max float64
	alpha    float64
	stops    []color.NRGBA
	// smooth replaces stops when the transfer function was built
	// from a named continuous map.
	smooth  palette.ColorMap
	opacity []float64
}

// New returns a transfer function with colors evenly spaced over [vmin, vmax].
func New(colors []color.Color, vmin, vmax float64) *TransferFunction {
	if len(colors) == 0 {
		panic("colormap needs at least one color")
	}
	tf := &TransferFunction{min: vmin, max: vmax, alpha: 1}
	for _, c := range colors {
		tf.stops = append(tf.stops, color.NRGBAModel.Convert(c).(color.NRGBA))
	}
	tf.opacity = append([]float64(nil), DefaultOpacity...)
	return tf
}

// FromNames parses names with ParseColor and returns a transfer function
// over [vmin, vmax].
func FromNames(names []string, vmin, vmax float64) (*TransferFunction, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("empty color list: %w", ErrUnknownColor)
	}
	colors := make([]color.Color, len(names))
	for i, name := range names {
		c, err := ParseColor(name)
		if err != nil {
			return nil, err
		}
		colors[i] = c
	}
	return New(colors, vmin, vmax), nil
}

var named = map[string]func() palette.ColorMap{
	"coolwarm":      smoothBlueRed,
	"bluered":       smoothBlueRed,
	"blackbody":     moreland.BlackBody,
	"ext-blackbody": moreland.ExtendedBlackBody,
	"kindlmann":     moreland.Kindlmann,
	"ext-kindlmann": moreland.ExtendedKindlmann,
}

func smoothBlueRed() palette.ColorMap { return moreland.SmoothBlueRed() }

// Named returns a transfer function for a continuous named map.
// Known names are coolwarm (alias bluered), blackbody, ext-blackbody,
// kindlmann and ext-kindlmann.
func Named(name string, vmin, vmax float64) (*TransferFunction, error) {
	fn, ok := named[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("colormap %q: %w", name, ErrUnknownColor)
	}
	cm := fn()
	cm.SetMin(0)
	cm.SetMax(1)
	return &TransferFunction{
		min:     vmin,
		max:     vmax,
		alpha:   1,
		smooth:  cm,
		opacity: append([]float64(nil), DefaultOpacity...),
	}, nil
}

// Parse builds a transfer function from a comma separated list of
// colors or, when desc holds a single word, from a named continuous map.
func Parse(desc string, vmin, vmax float64) (*TransferFunction, error) {
	if tf, err := Named(strings.TrimSpace(desc), vmin, vmax); err == nil {
		return tf, nil
	}
	return FromNames(strings.Split(desc, ","), vmin, vmax)
}

var aliases = map[string]string{
	"r": "red",
	"g": "green",
	"b": "blue",
	"c": "cyan",
	"m": "magenta",
	"y": "yellow",
	"k": "black",
	"w": "white",
}

// ParseColor parses an X11 color name, a single letter alias such as "g"
// or a #rrggbb / #rrggbbaa hex string.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if full, ok := aliases[s]; ok {
		s = full
	}
	if c, ok := colornames.Map[s]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}
	if strings.HasPrefix(s, "#") && (len(s) == 7 || len(s) == 9) {
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err == nil {
			if len(s) == 7 {
				v = v<<8 | 0xff
			}
			return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
		}
	}
	return color.NRGBA{}, fmt.Errorf("%q: %w", s, ErrUnknownColor)
}

// Color returns the color mapped to v. The color is opaque, see Opacity.
func (tf *TransferFunction) Color(v float64) color.NRGBA {
	t := tf.normalize(v)
	if tf.smooth != nil {
		c, err := tf.smooth.At(t)
		if err != nil {
			// Unreachable for t in [0, 1].
			panic(err)
		}
		nc := color.NRGBAModel.Convert(c).(color.NRGBA)
		nc.A = 255
		return nc
	}
	if len(tf.stops) == 1 {
		return tf.stops[0]
	}
	f, i := position(t, len(tf.stops))
	a, b := tf.stops[i], tf.stops[i+1]
	return color.NRGBA{
		R: lerp8(a.R, b.R, f),
		G: lerp8(a.G, b.G, f),
		B: lerp8(a.B, b.B, f),
		A: 255,
	}
}

// SetOpacity sets evenly spaced opacity stops over the scalar range.
// Values are clamped to [0, 1].
func (tf *TransferFunction) SetOpacity(values ...float64) {
	if len(values) == 0 {
		panic("no opacity values")
	}
	tf.opacity = tf.opacity[:0]
	for _, v := range values {
		tf.opacity = append(tf.opacity, math.Max(0, math.Min(1, v)))
	}
}

// Opacity returns the opacity mapped to v multiplied by the global alpha.
func (tf *TransferFunction) Opacity(v float64) float64 {
	if len(tf.opacity) == 1 {
		return tf.opacity[0] * tf.alpha
	}
	f, i := position(tf.normalize(v), len(tf.opacity))
	return (tf.opacity[i]*(1-f) + tf.opacity[i+1]*f) * tf.alpha
}

// RGBA returns the color of v with its opacity as alpha.
func (tf *TransferFunction) RGBA(v float64) color.NRGBA {
	c := tf.Color(v)
	c.A = uint8(math.Round(255 * tf.Opacity(v)))
	return c
}

// At implements palette.ColorMap. Values outside of the range return
// palette.ErrUnderflow or palette.ErrOverflow.
func (tf *TransferFunction) At(v float64) (color.Color, error) {
	switch {
	case math.IsNaN(v):
		return nil, palette.ErrNaN
	case v < tf.min:
		return nil, palette.ErrUnderflow
	case v > tf.max:
		return nil, palette.ErrOverflow
	}
	c := tf.Color(v)
	c.A = uint8(math.Round(255 * tf.alpha))
	return c, nil
}

func (tf *TransferFunction) Min() float64       { return tf.min }
func (tf *TransferFunction) Max() float64       { return tf.max }
func (tf *TransferFunction) SetMin(v float64)   { tf.min = v }
func (tf *TransferFunction) SetMax(v float64)   { tf.max = v }
func (tf *TransferFunction) Alpha() float64     { return tf.alpha }
func (tf *TransferFunction) SetAlpha(a float64) { tf.alpha = math.Max(0, math.Min(1, a)) }

// Palette samples n colors evenly over the scalar range. The palette is
// empty when n is not positive.
func (tf *TransferFunction) Palette(n int) palette.Palette {
	if n <= 0 {
		return plt(nil)
	}
	colors := make([]color.Color, n)
	for i := range colors {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		colors[i] = tf.Color(tf.min + t*(tf.max-tf.min))
	}
	return plt(colors)
}

type plt []color.Color

func (p plt) Colors() []color.Color { return p }

// normalize maps v to [0, 1] over the scalar range.
func (tf *TransferFunction) normalize(v float64) float64 {
	span := tf.max - tf.min
	if span <= 0 || math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, (v-tf.min)/span))
}

// position returns the segment index i and the fraction within it for
// t in [0, 1] over n evenly spaced stops.
func position(t float64, n int) (f float64, i int) {
	x := t * float64(n-1)
	i = int(x)
	if i >= n-1 {
		return 1, n - 2
	}
	return x - float64(i), i
}

func lerp8(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a)*(1-f) + float64(b)*f))
}

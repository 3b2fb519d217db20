package colormap

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/palette"
)

func TestParseColor(t *testing.T) {
	for _, test := range []struct {
		in   string
		want color.NRGBA
	}{
		{"tomato", color.NRGBA{R: 255, G: 99, B: 71, A: 255}},
		{"g", color.NRGBA{G: 128, A: 255}},
		{" B ", color.NRGBA{B: 255, A: 255}},
		{"#102030", color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 255}},
		{"#10203080", color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x80}},
	} {
		got, err := ParseColor(test.in)
		require.NoError(t, err, test.in)
		assert.Equal(t, test.want, got, test.in)
	}
	for _, bad := range []string{"", "notacolor", "#12", "#zzzzzz"} {
		_, err := ParseColor(bad)
		assert.ErrorIs(t, err, ErrUnknownColor, bad)
	}
}

func TestTransferFunctionStops(t *testing.T) {
	tf, err := FromNames([]string{"black", "white"}, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{A: 255}, tf.Color(-4))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, tf.Color(3))
	assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 255}, tf.Color(0.5))

	tf, err = FromNames([]string{"red", "green", "blue"}, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{G: 128, A: 255}, tf.Color(1))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, tf.Color(2))

	_, err = FromNames([]string{"red", "nope"}, 0, 1)
	assert.ErrorIs(t, err, ErrUnknownColor)
}

func TestOpacity(t *testing.T) {
	tf := New([]color.Color{color.White}, 0, 1)
	assert.InDelta(t, 0, tf.Opacity(0), 1e-12)
	assert.InDelta(t, 1, tf.Opacity(1), 1e-12)
	assert.InDelta(t, 0.3, tf.Opacity(0.5), 1e-12)

	tf.SetOpacity(0, 2)
	assert.InDelta(t, 0.5, tf.Opacity(0.5), 1e-12)
	tf.SetAlpha(0.5)
	assert.InDelta(t, 0.25, tf.Opacity(0.5), 1e-12)
	assert.Equal(t, uint8(64), tf.RGBA(0.5).A)

	tf.SetOpacity(0.7)
	assert.InDelta(t, 0.35, tf.Opacity(123), 1e-12)
	assert.Panics(t, func() { tf.SetOpacity() })
}

func TestNamedAndParse(t *testing.T) {
	tf, err := Named("coolwarm", -1, 1)
	require.NoError(t, err)
	lo, hi := tf.Color(-1), tf.Color(1)
	assert.Greater(t, lo.B, lo.R, "cool end is blue")
	assert.Greater(t, hi.R, hi.B, "warm end is red")

	_, err = Named("viridis-ish", 0, 1)
	assert.ErrorIs(t, err, ErrUnknownColor)

	tf, err = Parse("tomato,g,b", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, tf.Color(1))
	tf, err = Parse("kindlmann", 0, 1)
	require.NoError(t, err)
	assert.NotNil(t, tf.smooth)
}

func TestColorMapInterface(t *testing.T) {
	var cm palette.ColorMap = New([]color.Color{color.Black, color.White}, 0, 10)
	_, err := cm.At(-1)
	assert.ErrorIs(t, err, palette.ErrUnderflow)
	_, err = cm.At(11)
	assert.ErrorIs(t, err, palette.ErrOverflow)
	c, err := cm.At(10)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, c)
	cm.SetMax(20)
	assert.Equal(t, 20.0, cm.Max())
	assert.Len(t, cm.Palette(5).Colors(), 5)
	assert.Empty(t, cm.Palette(0).Colors())
	assert.Empty(t, cm.Palette(-3).Colors())
}

func TestNamedMaps(t *testing.T) {
	for _, name := range []string{"coolwarm", "bluered", "blackbody", "ext-blackbody", "kindlmann", "ext-kindlmann"} {
		tf, err := Named(name, 0, 1)
		require.NoError(t, err, name)
		assert.Len(t, tf.Palette(3).Colors(), 3, name)
	}
}

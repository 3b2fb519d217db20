package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/soypat/pointvol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

var unitBox = r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}}

// redColorizer encodes values in [0, 1] in the red channel.
type redColorizer struct{}

func (redColorizer) RGBA(v float64) color.NRGBA {
	return color.NRGBA{R: uint8(255 * max(0, min(1, v))), A: 128}
}

func TestSliceActorGeometry(t *testing.T) {
	vol := sphereVolume(t)
	_, err := SliceOf(vol, 3, 0, redColorizer{})
	require.ErrorIs(t, err, pointvol.ErrSlice)
	_, err = SliceOf(vol, 0, 12, redColorizer{})
	require.ErrorIs(t, err, pointvol.ErrSlice)

	sa, err := SliceOf(vol, 1, 5, redColorizer{})
	require.NoError(t, err)
	plane := vol.Position(pointvol.V3i{0, 5, 0}).Y
	geom := sa.geometry(nil, 1)
	require.Len(t, geom, 12*12*4)
	for _, st := range geom {
		assert.Equal(t, uint8(255), st.color.A)
		for _, v := range st.V {
			require.Equal(t, plane, v.Y)
		}
		require.False(t, st.Degenerate(1e-9))
	}
	bb := sa.Bounds()
	assert.Equal(t, plane, bb.Min.Y)
	assert.Equal(t, plane, bb.Max.Y)
}

func TestSliceImage(t *testing.T) {
	vol, err := pointvol.NewVolume(unitBox, pointvol.V3i{3, 4, 5})
	require.NoError(t, err)
	for z := 0; z < 5; z++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 3; x++ {
				vol.Set(pointvol.V3i{x, y, z}, vol.Position(pointvol.V3i{x, y, z}).Z)
			}
		}
	}
	tests := []struct {
		axis, index int
		w, h        int
	}{
		{axis: 0, index: 1, w: 4, h: 5},
		{axis: 1, index: 3, w: 3, h: 5},
		{axis: 2, index: 0, w: 3, h: 4},
	}
	for _, test := range tests {
		img, err := SliceImage(vol, test.axis, test.index, redColorizer{}, 0)
		require.NoError(t, err)
		assert.Equal(t, test.w, img.Bounds().Dx(), "axis %d", test.axis)
		assert.Equal(t, test.h, img.Bounds().Dy(), "axis %d", test.axis)
	}

	// Plane normal to x: z grows up the image.
	img, err := SliceImage(vol, 0, 1, redColorizer{}, 0)
	require.NoError(t, err)
	top := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	bottom := color.NRGBAModel.Convert(img.At(0, 4)).(color.NRGBA)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, top)
	assert.Equal(t, color.NRGBA{A: 255}, bottom)

	big, err := SliceImage(vol, 2, 2, redColorizer{}, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, big.Bounds().Dx())
	assert.Equal(t, 40, big.Bounds().Dy())

	_, err = SliceImage(vol, 2, 5, redColorizer{}, 0)
	assert.ErrorIs(t, err, pointvol.ErrSlice)
}

func TestWriteSlicesPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSlicesPNG(&buf, sphereVolume(t), redColorizer{}, 50))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 3*50+2*4, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

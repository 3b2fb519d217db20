package render_test

import (
	"bytes"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/soypat/pointvol"
	"github.com/soypat/pointvol/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot/cmpimg"
)

func testScene(t testing.TB) []render.Actor {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	bb := r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}}
	cloud := pointvol.RandomCloud(rng, 200, bb)
	cloud.ScalarsFromAxis(2)
	vol, err := pointvol.NewVolume(bb, pointvol.V3i{10, 10, 10})
	require.NoError(t, err)
	dims := vol.Dims()
	for z := 0; z < dims[2]; z++ {
		for y := 0; y < dims[1]; y++ {
			for x := 0; x < dims[0]; x++ {
				i := pointvol.V3i{x, y, z}
				vol.Set(i, vol.Position(i).Z)
			}
		}
	}
	return []render.Actor{
		render.Points(cloud, grayColorizer{}),
		render.VolumeOf(vol, grayColorizer{}),
	}
}

func TestShow(t *testing.T) {
	p, err := render.Show(testScene(t), render.ShowOptions{
		Width: 80, Height: 60, Axes: true, Elevation: -30, Title: "z",
	})
	require.NoError(t, err)
	defer p.Close()
	img, err := p.Image()
	require.NoError(t, err)
	assert.Equal(t, 80, img.Bounds().Dx())
	assert.Equal(t, 60, img.Bounds().Dy())

	painted := 0
	for y := 0; y < 60; y++ {
		for x := 0; x < 80; x++ {
			if color.NRGBAModel.Convert(img.At(x, y)) != (color.NRGBA{255, 255, 255, 255}) {
				painted++
			}
		}
	}
	assert.Greater(t, painted, 80*60/20, "scene should cover part of the image")
}

func TestShowDeterministic(t *testing.T) {
	opts := render.ShowOptions{Width: 64, Height: 48, Axes: true, Azimuth: 30, Elevation: 20}
	var raw [2]bytes.Buffer
	for i := range raw {
		p, err := render.Show(testScene(t), opts)
		require.NoError(t, err)
		require.NoError(t, p.WritePNG(&raw[i]))
		require.NoError(t, p.Close())
	}
	ok, err := cmpimg.Equal("png", raw[0].Bytes(), raw[1].Bytes())
	require.NoError(t, err)
	assert.True(t, ok, "renders of the same scene differ")
}

func TestShowNothing(t *testing.T) {
	_, err := render.Show(nil, render.ShowOptions{})
	assert.ErrorIs(t, err, render.ErrNothingToShow)
}

func TestPlotterClose(t *testing.T) {
	p, err := render.Show(testScene(t)[:1], render.ShowOptions{Width: 32, Height: 32})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, p.Screenshot(path))
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	_, err = p.Image()
	assert.ErrorIs(t, err, render.ErrClosed)
	assert.ErrorIs(t, p.Screenshot(path), render.ErrClosed)
	assert.ErrorIs(t, p.WritePNG(&bytes.Buffer{}), render.ErrClosed)
}

func TestShowSlices(t *testing.T) {
	vol := testScene(t)[1].(*render.VolumeActor).Volume
	var actors []render.Actor
	for axis := 0; axis < 3; axis++ {
		sa, err := render.SliceOf(vol, axis, 5, grayColorizer{})
		require.NoError(t, err)
		actors = append(actors, sa)
	}
	p, err := render.Show(actors, render.ShowOptions{Width: 64, Height: 48, Elevation: 20, Azimuth: 30})
	require.NoError(t, err)
	defer p.Close()
	img, err := p.Image()
	require.NoError(t, err)
	// Opaque slices cover the center of the view.
	assert.NotEqual(t, color.NRGBAModel.Convert(color.White), color.NRGBAModel.Convert(img.At(32, 24)))
}

package render

import (
	"image"
	"image/draw"
	"image/png"
	"io"

	"github.com/nfnt/resize"
	"github.com/soypat/pointvol"
	"gonum.org/v1/gonum/spatial/r3"
)

// SliceActor draws the samples of a volume plane normal to an axis as
// opaque cells colored by a transfer function.
type SliceActor struct {
	Colors Colorizer
	axis   int
	plane  *pointvol.Volume
}

// SliceOf returns an actor drawing the plane of vol normal to axis at
// sample index. Planes outside vol return pointvol.ErrSlice.
func SliceOf(vol *pointvol.Volume, axis, index int, cz Colorizer) (*SliceActor, error) {
	plane, err := vol.Slice(axis, index)
	if err != nil {
		return nil, err
	}
	return &SliceActor{Colors: cz, axis: axis, plane: plane}, nil
}

func (sa *SliceActor) Bounds() r3.Box { return sa.plane.Bounds() }

func (sa *SliceActor) geometry(dst []sceneTriangle, diag float64) []sceneTriangle {
	g := newVoxelGrid(sa.plane, func(float64) bool { return true })
	dims := sa.plane.Dims()
	var tmp []Triangle3
	for z := 0; z < dims[2]; z++ {
		for y := 0; y < dims[1]; y++ {
			for x := 0; x < dims[0]; x++ {
				idx := pointvol.V3i{x, y, z}
				c := sa.Colors.RGBA(sa.plane.At(idx))
				c.A = 255
				cell := g.cell(idx)
				// Both windings so the plane shows from either side.
				tmp = appendQuad(tmp[:0], cell, faceDir{axis: sa.axis, sign: 1})
				tmp = appendQuad(tmp, cell, faceDir{axis: sa.axis, sign: -1})
				for _, t := range tmp {
					dst = append(dst, sceneTriangle{Triangle3: t, color: c})
				}
			}
		}
	}
	return dst
}

// sliceAxes returns the volume axes along image columns and rows for a
// plane normal to axis.
func sliceAxes(axis int) (col, row int) {
	switch axis {
	case 0:
		return 1, 2
	case 1:
		return 0, 2
	}
	return 0, 1
}

// SliceImage draws the plane of vol normal to axis at sample index, one
// opaque pixel per sample, and scales it to width pixels wide with nearest
// neighbor sampling. A non positive width keeps one pixel per sample.
// The lower remaining axis runs along columns and the higher one up the rows.
func SliceImage(vol *pointvol.Volume, axis, index int, cz Colorizer, width int) (image.Image, error) {
	plane, err := vol.Slice(axis, index)
	if err != nil {
		return nil, err
	}
	col, row := sliceAxes(axis)
	dims := plane.Dims()
	w, h := dims[col], dims[row]
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	var idx pointvol.V3i
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			idx[col], idx[row] = i, j
			c := cz.RGBA(plane.At(idx))
			c.A = 255
			img.SetNRGBA(i, h-1-j, c)
		}
	}
	if width <= 0 || width == w {
		return img, nil
	}
	return resize.Resize(uint(width), 0, img, resize.NearestNeighbor), nil
}

// WriteSlicesPNG encodes the three planes through the center of vol, normal
// to x, y and z, side by side as a PNG image. Each plane is size pixels wide.
func WriteSlicesPNG(w io.Writer, vol *pointvol.Volume, cz Colorizer, size int) error {
	dims := vol.Dims()
	var planes [3]image.Image
	height := 0
	for axis := range planes {
		img, err := SliceImage(vol, axis, dims[axis]/2, cz, size)
		if err != nil {
			return err
		}
		planes[axis] = img
		height = max(height, img.Bounds().Dy())
	}
	const gap = 4
	width := 0
	for _, p := range planes {
		width += p.Bounds().Dx() + gap
	}
	out := image.NewNRGBA(image.Rect(0, 0, width-gap, height))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	x := 0
	for _, p := range planes {
		b := p.Bounds()
		draw.Draw(out, image.Rect(x, 0, x+b.Dx(), b.Dy()), p, b.Min, draw.Src)
		x += b.Dx() + gap
	}
	return png.Encode(w, out)
}

package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"sort"
	"sync"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/pointvol"
	"github.com/soypat/pointvol/internal/d3"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrNothingToShow = errors.New("no actors to show")
	ErrClosed        = errors.New("plotter is closed")
)

// Actor is an object that can be placed in a scene.
type Actor interface {
	// Bounds returns the region of space occupied by the actor.
	Bounds() r3.Box
	// geometry appends the actor's triangles. diag is the scene diagonal
	// used to size screen independent features such as point glyphs.
	geometry(dst []sceneTriangle, diag float64) []sceneTriangle
}

type sceneTriangle struct {
	Triangle3
	color color.NRGBA
}

// PointsActor draws each point of a cloud as a small cube.
type PointsActor struct {
	Cloud *pointvol.PointCloud
	// Colors maps point scalars to colors. Nil draws every point with Color.
	Colors Colorizer
	Color  color.NRGBA
	// Size is the cube side as a fraction of the scene diagonal.
	Size float64
}

// Points returns an actor drawing cloud colored by cz. cz may be nil.
func Points(cloud *pointvol.PointCloud, cz Colorizer) *PointsActor {
	return &PointsActor{
		Cloud:  cloud,
		Colors: cz,
		Color:  color.NRGBA{R: 0x46, G: 0x89, B: 0x66, A: 255},
		Size:   0.008,
	}
}

func (pa *PointsActor) Bounds() r3.Box { return pa.Cloud.Bounds() }

func (pa *PointsActor) geometry(dst []sceneTriangle, diag float64) []sceneTriangle {
	side := pa.Size * diag
	var tmp []Triangle3
	for i, p := range pa.Cloud.Points {
		c := pa.Color
		if pa.Colors != nil && i < len(pa.Cloud.Scalars) {
			c = pa.Colors.RGBA(pa.Cloud.Scalars[i])
			c.A = 255
		}
		tmp = appendBox(tmp[:0], r3.Box(d3.NewBox(p, d3.Elem(side))))
		for _, t := range tmp {
			dst = append(dst, sceneTriangle{Triangle3: t, color: c})
		}
	}
	return dst
}

// VolumeActor draws the voxels of a volume as translucent cells colored
// and faded by a transfer function.
type VolumeActor struct {
	Volume *pointvol.Volume
	Colors Colorizer
	// MaxSamples caps the samples drawn along each axis. Larger volumes
	// are resampled before drawing.
	MaxSamples int
	// Cutoff is the lowest opacity drawn, in [0, 1].
	Cutoff float64
}

// VolumeOf returns an actor drawing vol with the transfer function cz.
func VolumeOf(vol *pointvol.Volume, cz Colorizer) *VolumeActor {
	return &VolumeActor{Volume: vol, Colors: cz, MaxSamples: 40, Cutoff: 0.02}
}

func (va *VolumeActor) Bounds() r3.Box { return va.Volume.Bounds() }

func (va *VolumeActor) geometry(dst []sceneTriangle, diag float64) []sceneTriangle {
	vol := va.Volume
	dims := vol.Dims()
	if va.MaxSamples > 0 {
		small := dims
		for i := range small {
			small[i] = min(small[i], va.MaxSamples)
		}
		if small != dims {
			resampled, err := vol.Resample(small)
			if err != nil {
				panic(err) // dims are positive.
			}
			vol = resampled
		}
	}
	cutoff := uint8(math.Round(255 * va.Cutoff))
	visible := func(v float64) bool {
		return va.Colors.RGBA(v).A >= max(cutoff, 1)
	}
	mesh := VoxelMesh(vol, visible, va.Colors)
	for i, t := range mesh.Triangles {
		dst = append(dst, sceneTriangle{Triangle3: t, color: mesh.Colors[i]})
	}
	return dst
}

// ShowOptions configure how a scene is rendered.
type ShowOptions struct {
	Width, Height int
	// Axes draws X, Y and Z axes along the scene bounds with labels.
	Axes bool
	// Elevation and Azimuth rotate the camera in degrees. The camera
	// starts on the +Z side of the scene looking down with Y up.
	// Azimuth rotates about the up axis, elevation about the camera's
	// horizontal axis.
	Elevation, Azimuth float64
	// Background color. Nil means white.
	Background color.Color
	// Supersample renders at a multiple of the final resolution and
	// downsamples for antialiasing. Zero means 2.
	Supersample int
	// Title is drawn at the top left of the image.
	Title string
}

func (opts *ShowOptions) defaults() {
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 600
	}
	if opts.Supersample <= 0 {
		opts.Supersample = 2
	}
	if opts.Background == nil {
		opts.Background = color.White
	}
}

// Plotter is a handle to a rendered scene. It must be closed to release
// its rendering buffers.
type Plotter struct {
	mu     sync.Mutex
	ctx    *fauxgl.Context
	img    *image.NRGBA
	closed bool
}

const fovy = 30 // vertical field of view in degrees

// Show renders actors into an image and returns a handle to it.
func Show(actors []Actor, opts ShowOptions) (*Plotter, error) {
	if len(actors) == 0 {
		return nil, ErrNothingToShow
	}
	opts.defaults()
	bb := d3.Box(actors[0].Bounds())
	for _, a := range actors[1:] {
		bb = bb.Extend(d3.Box(a.Bounds()))
	}
	diag := r3.Norm(bb.Size())
	if diag == 0 {
		bb = d3.NewBox(bb.Center(), d3.Elem(1))
		diag = r3.Norm(bb.Size())
	}
	cam := newCamera(r3.Box(bb), opts)

	var opaque, translucent []sceneTriangle
	var geom []sceneTriangle
	for _, a := range actors {
		geom = a.geometry(geom[:0], diag)
		for _, t := range geom {
			if t.color.A == 255 {
				opaque = append(opaque, t)
			} else {
				translucent = append(translucent, t)
			}
		}
	}
	if opts.Axes {
		opaque = appendAxes(opaque, r3.Box(bb), diag)
	}
	// Painter's order for blending: farthest first.
	sort.Slice(translucent, func(i, j int) bool {
		di := r3.Norm2(r3.Sub(translucent[i].Centroid(), cam.eye))
		dj := r3.Norm2(r3.Sub(translucent[j].Centroid(), cam.eye))
		return di > dj
	})

	ss := opts.Supersample
	context := fauxgl.NewContext(opts.Width*ss, opts.Height*ss)
	context.ClearColorBufferWith(fauxgl.MakeColor(opts.Background))
	context.Shader = &vertexColorShader{
		matrix:  cam.matrix,
		light:   fauxgl.V(-0.75, 1, 0.25).Normalize(),
		ambient: 0.35,
	}
	context.DrawTriangles(toFaux(opaque))
	context.AlphaBlend = true
	context.DrawTriangles(toFaux(translucent))
	context.AlphaBlend = false

	// downsample image for antialiasing
	small := resize.Resize(uint(opts.Width), uint(opts.Height), context.Image(), resize.Bilinear)
	img := image.NewNRGBA(small.Bounds())
	draw.Draw(img, img.Bounds(), small, small.Bounds().Min, draw.Src)
	if opts.Axes {
		labelAxes(img, cam, r3.Box(bb))
	}
	if opts.Title != "" {
		drawText(img, 8, 16, opts.Title)
	}
	return &Plotter{ctx: context, img: img}, nil
}

// Image returns the rendered image.
func (p *Plotter) Image() (image.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	return p.img, nil
}

// Screenshot saves the rendered image as a PNG file.
func (p *Plotter) Screenshot(path string) error {
	img, err := p.Image()
	if err != nil {
		return err
	}
	return fauxgl.SavePNG(path, img)
}

// WritePNG encodes the rendered image as PNG to w.
func (p *Plotter) WritePNG(w io.Writer) error {
	img, err := p.Image()
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// Close releases the rendering buffers. Closing twice is a no-op.
func (p *Plotter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.ctx = nil
	p.img = nil
	return nil
}

type camera struct {
	eye, center, up r3.Vec
	matrix          fauxgl.Matrix
	width, height   int
}

func newCamera(bb r3.Box, opts ShowOptions) camera {
	center := d3.Box(bb).Center()
	radius := 0.5 * r3.Norm(d3.Box(bb).Size())
	dist := 1.15 * radius / math.Sin(0.5*fovy*math.Pi/180)
	dir := r3.Vec{Z: 1}
	up := r3.Vec{Y: 1}
	az := r3.NewRotation(opts.Azimuth*math.Pi/180, up)
	dir = az.Rotate(dir)
	right := r3.Unit(r3.Cross(up, dir))
	// Positive elevation raises the eye above the center.
	el := r3.NewRotation(-opts.Elevation*math.Pi/180, right)
	dir = el.Rotate(dir)
	up = el.Rotate(up)
	eye := r3.Add(center, r3.Scale(dist, dir))
	aspect := float64(opts.Width) / float64(opts.Height)
	near := math.Max(dist-2*radius, 1e-3*dist)
	far := dist + 2*radius
	matrix := fauxgl.LookAt(faux(eye), faux(center), faux(up)).Perspective(fovy, aspect, near, far)
	return camera{
		eye: eye, center: center, up: up,
		matrix: matrix,
		width:  opts.Width, height: opts.Height,
	}
}

// project returns the image coordinates of p.
func (c camera) project(p r3.Vec) (x, y int) {
	v := c.matrix.MulPositionW(faux(p))
	ndcX, ndcY := v.X/v.W, v.Y/v.W
	x = int(math.Round((ndcX + 1) / 2 * float64(c.width)))
	y = int(math.Round((1 - ndcY) / 2 * float64(c.height)))
	return x, y
}

func faux(v r3.Vec) fauxgl.Vector { return fauxgl.V(v.X, v.Y, v.Z) }

func toFaux(ts []sceneTriangle) []*fauxgl.Triangle {
	out := make([]*fauxgl.Triangle, len(ts))
	for i, t := range ts {
		out[i] = toFauxTriangle(t.Triangle3, toFauxColor(t.color))
	}
	return out
}

// appendBox appends the 12 outward facing triangles of bb.
func appendBox(dst []Triangle3, bb r3.Box) []Triangle3 {
	for _, d := range faceDirs {
		dst = appendQuad(dst, bb, d)
	}
	return dst
}

var axisColors = [3]color.NRGBA{
	{R: 0xd6, G: 0x27, B: 0x28, A: 255},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 255},
	{R: 0x1f, G: 0x77, B: 0xb4, A: 255},
}

const axisTicks = 5

// appendAxes appends thin boxes along the three edges of bb meeting at
// bb.Min with evenly spaced tick marks.
func appendAxes(dst []sceneTriangle, bb r3.Box, diag float64) []sceneTriangle {
	thick := 0.004 * diag
	var tmp []Triangle3
	for axis := 0; axis < 3; axis++ {
		end := bb.Min
		setComponent(&end, axis, d3.Component(bb.Max, axis))
		tmp = appendBox(tmp[:0], r3.Box{
			Min: r3.Sub(bb.Min, d3.Elem(thick/2)),
			Max: r3.Add(end, d3.Elem(thick/2)),
		})
		lo, hi := d3.Component(bb.Min, axis), d3.Component(bb.Max, axis)
		for i := 0; i <= axisTicks; i++ {
			p := bb.Min
			setComponent(&p, axis, lo+(hi-lo)*float64(i)/axisTicks)
			tmp = appendBox(tmp, r3.Box(d3.NewBox(p, d3.Elem(2.5*thick))))
		}
		for _, t := range tmp {
			dst = append(dst, sceneTriangle{Triangle3: t, color: axisColors[axis]})
		}
	}
	return dst
}

func labelAxes(img *image.NRGBA, cam camera, bb r3.Box) {
	for axis, name := range [3]string{"x", "y", "z"} {
		end := bb.Min
		hi := d3.Component(bb.Max, axis)
		setComponent(&end, axis, hi)
		x, y := cam.project(end)
		drawText(img, x+6, y, fmt.Sprintf("%s=%.3g", name, hi))
	}
	x, y := cam.project(bb.Min)
	drawText(img, x+6, y+14, fmt.Sprintf("(%.3g, %.3g, %.3g)", bb.Min.X, bb.Min.Y, bb.Min.Z))
}

func drawText(img *image.NRGBA, x, y int, s string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func setComponent(v *r3.Vec, axis int, f float64) {
	switch axis {
	case 0:
		v.X = f
	case 1:
		v.Y = f
	case 2:
		v.Z = f
	default:
		panic("illegal dimension")
	}
}

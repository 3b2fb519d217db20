package render

import (
	"io"

	"github.com/soypat/pointvol"
	"gonum.org/v1/gonum/spatial/r3"
)

// Selector reports whether a voxel value belongs to the rendered set.
type Selector func(v float64) bool

// IsoAbove selects voxels with values at or above level.
func IsoAbove(level float64) Selector {
	return func(v float64) bool { return v >= level }
}

// InRange selects voxels with values in [lo, hi).
func InRange(lo, hi float64) Selector {
	return func(v float64) bool { return v >= lo && v < hi }
}

// faceDir describes one of the six axis aligned voxel faces.
type faceDir struct {
	axis int // axis the face normal lies along
	sign int // +1 or -1
}

var faceDirs = [6]faceDir{
	{0, 1}, {0, -1},
	{1, 1}, {1, -1},
	{2, 1}, {2, -1},
}

func (d faceDir) neighbor(i pointvol.V3i) pointvol.V3i {
	i[d.axis] += d.sign
	return i
}

// voxelGrid caches the selection mask of a volume.
type voxelGrid struct {
	vol    *pointvol.Volume
	inside []bool
}

func newVoxelGrid(vol *pointvol.Volume, sel Selector) voxelGrid {
	if vol == nil || sel == nil {
		panic("nil volume or selector")
	}
	inside := make([]bool, vol.Len())
	for i, v := range vol.Data() {
		inside[i] = sel(v)
	}
	return voxelGrid{vol: vol, inside: inside}
}

func (g *voxelGrid) isInside(i pointvol.V3i) bool {
	if !i.InBounds(g.vol.Dims()) {
		return false
	}
	return g.inside[g.vol.Index(i)]
}

// cell returns the box of space represented by voxel i: the sample position
// plus or minus half the spacing, clipped to the volume bounds.
func (g *voxelGrid) cell(i pointvol.V3i) r3.Box {
	c := g.vol.Position(i)
	half := r3.Scale(0.5, g.vol.Spacing())
	bb := g.vol.Bounds()
	lo := r3.Sub(c, half)
	hi := r3.Add(c, half)
	lo = r3.Vec{X: max(lo.X, bb.Min.X), Y: max(lo.Y, bb.Min.Y), Z: max(lo.Z, bb.Min.Z)}
	hi = r3.Vec{X: min(hi.X, bb.Max.X), Y: min(hi.Y, bb.Max.Y), Z: min(hi.Z, bb.Max.Z)}
	return r3.Box{Min: lo, Max: hi}
}

// faces appends the triangles of the boundary faces of voxel i to dst.
// A face is on the boundary when the neighboring voxel is not selected.
func (g *voxelGrid) faces(dst []Triangle3, i pointvol.V3i) []Triangle3 {
	if !g.isInside(i) {
		return dst
	}
	cell := g.cell(i)
	for _, d := range faceDirs {
		if g.isInside(d.neighbor(i)) {
			continue
		}
		dst = appendQuad(dst, cell, d)
	}
	return dst
}

// appendQuad appends the two outward facing triangles of face d of box bb.
func appendQuad(dst []Triangle3, bb r3.Box, d faceDir) []Triangle3 {
	u, v := (d.axis+1)%3, (d.axis+2)%3
	lo := [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	hi := [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	plane := lo[d.axis]
	if d.sign > 0 {
		plane = hi[d.axis]
	}
	corner := func(uval, vval float64) r3.Vec {
		var p [3]float64
		p[d.axis] = plane
		p[u] = uval
		p[v] = vval
		return r3.Vec{X: p[0], Y: p[1], Z: p[2]}
	}
	p0 := corner(lo[u], lo[v])
	p1 := corner(hi[u], lo[v])
	p2 := corner(hi[u], hi[v])
	p3 := corner(lo[u], hi[v])
	if d.sign < 0 {
		// Reverse winding so the normal points along -axis.
		p1, p3 = p3, p1
	}
	return append(dst,
		Triangle3{V: [3]r3.Vec{p0, p1, p2}},
		Triangle3{V: [3]r3.Vec{p0, p2, p3}},
	)
}

// maxFaceTriangles is the most triangles a single voxel can produce.
const maxFaceTriangles = 12

type voxelRenderer struct {
	grid      voxelGrid
	cursor    int
	unwritten triangle3Buffer
	tmp       []Triangle3
}

// NewVoxelRenderer returns a Renderer streaming the closed surface enclosing
// the voxels of vol selected by sel.
func NewVoxelRenderer(vol *pointvol.Volume, sel Selector) Renderer {
	return &voxelRenderer{
		grid: newVoxelGrid(vol, sel),
		tmp:  make([]Triangle3, 0, maxFaceTriangles),
	}
}

// ReadTriangles writes triangles rendered from the volume into the argument buffer.
// returns number of triangles written and an error if present.
func (vr *voxelRenderer) ReadTriangles(dst []Triangle3) (n int, err error) {
	if len(dst) == 0 {
		panic("cannot write to empty triangle slice")
	}
	if vr.unwritten.Len() > 0 {
		n += vr.unwritten.Read(dst[n:])
		if n == len(dst) {
			return n, nil
		}
	}
	dims := vr.grid.vol.Dims()
	for n < len(dst) && vr.cursor < len(vr.grid.inside) {
		c := vr.cursor
		vr.cursor++
		if !vr.grid.inside[c] {
			continue
		}
		idx := pointvol.V3i{c % dims[0], (c / dims[0]) % dims[1], c / (dims[0] * dims[1])}
		vr.tmp = vr.grid.faces(vr.tmp[:0], idx)
		written := copy(dst[n:], vr.tmp)
		n += written
		if written < len(vr.tmp) {
			// Not enough room in buffer for all of the voxel's faces.
			vr.unwritten.Write(vr.tmp[written:])
		}
	}
	if vr.cursor >= len(vr.grid.inside) && vr.unwritten.Len() == 0 {
		// Done rendering model.
		return n, io.EOF
	}
	return n, nil
}

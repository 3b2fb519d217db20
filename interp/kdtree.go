package interp

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	_ kdtree.Interface  = kdPoints{}
	_ kdtree.Comparable = kdPoint{}
)

// kdPoint is a cloud point that remembers its index so that the
// scalar can be looked up after a neighbor query.
type kdPoint struct {
	r3.Vec
	idx int
}

type kdPoints []kdPoint

func (k kdPoints) Index(i int) kdtree.Comparable { return k[i] }

// Len returns the length of the list.
func (k kdPoints) Len() int { return len(k) }

// Pivot partitions the list based on the dimension specified.
func (k kdPoints) Pivot(d kdtree.Dim) int {
	p := kdPlane{dim: d, points: k}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// Slice returns a slice of the list using zero-based half
// open indexing equivalent to built-in slice indexing.
func (k kdPoints) Slice(start, end int) kdtree.Interface {
	return k[start:end]
}

// Compare returns the signed distance of a from the plane passing through
// b and perpendicular to the dimension d.
//
// Given c = a.Compare(b, d):
//
//	c = a_d - b_d
func (a kdPoint) Compare(b kdtree.Comparable, d kdtree.Dim) float64 {
	return kdComp(a, b.(kdPoint), d)
}

// Dims returns the number of dimensions described in the Comparable.
func (a kdPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between the receiver and
// the parameter.
func (a kdPoint) Distance(b kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(a.Vec, b.(kdPoint).Vec))
}

func kdComp(a, b kdPoint, d kdtree.Dim) float64 {
	switch d {
	case 0:
		return a.X - b.X
	case 1:
		return a.Y - b.Y
	case 2:
		return a.Z - b.Z
	}
	panic("illegal dimension")
}

type kdPlane struct {
	dim    kdtree.Dim
	points kdPoints
}

func (p kdPlane) Less(i, j int) bool {
	return kdComp(p.points[i], p.points[j], p.dim) < 0
}
func (p kdPlane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}
func (p kdPlane) Len() int {
	return len(p.points)
}
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}

// neighbor is a query result: cloud index and euclidean distance.
type neighbor struct {
	idx  int
	dist float64
}

func newKDTree(pts []r3.Vec) *kdtree.Tree {
	kd := make(kdPoints, len(pts))
	for i, p := range pts {
		kd[i] = kdPoint{Vec: p, idx: i}
	}
	return kdtree.New(kd, false)
}

// collect appends the kept points of a keeper heap to dst,
// skipping the keeper's sentinel.
func collect(dst []neighbor, h kdtree.Heap) []neighbor {
	for _, cd := range h {
		if cd.Comparable == nil {
			continue
		}
		dst = append(dst, neighbor{idx: cd.Comparable.(kdPoint).idx, dist: math.Sqrt(cd.Dist)})
	}
	return dst
}

func withinRadius(dst []neighbor, t *kdtree.Tree, p r3.Vec, radius float64) []neighbor {
	keep := kdtree.NewDistKeeper(radius * radius)
	t.NearestSet(keep, kdPoint{Vec: p})
	return collect(dst, keep.Heap)
}

func nClosest(dst []neighbor, t *kdtree.Tree, p r3.Vec, n int) []neighbor {
	keep := kdtree.NewNKeeper(n)
	t.NearestSet(keep, kdPoint{Vec: p})
	return collect(dst, keep.Heap)
}

func closest(t *kdtree.Tree, p r3.Vec) neighbor {
	c, d := t.Nearest(kdPoint{Vec: p})
	return neighbor{idx: c.(kdPoint).idx, dist: math.Sqrt(d)}
}

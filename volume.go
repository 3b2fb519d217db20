package pointvol

import (
	"fmt"
	"math"
	"sort"

	"github.com/soypat/pointvol/internal/d3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

var _ Field3 = (*Volume)(nil)

// Volume is a regular grid of scalar samples spanning a bounding box.
// Sample (0,0,0) lies on bounds.Min and sample dims-1 on bounds.Max.
// Data is stored with x varying fastest.
type Volume struct {
	dims V3i
	bb   r3.Box
	data []float64
}

// MaxSamples is the most samples a Volume may hold.
const MaxSamples = 1 << 30

// CheckDims returns the amount of samples of a volume with dimensions dims.
// It returns ErrBadDims if a dimension is below 1 or the amount exceeds
// MaxSamples.
func CheckDims(dims V3i) (int, error) {
	n, ok := dims.CheckedProd()
	if !ok || dims[0] < 1 || dims[1] < 1 || dims[2] < 1 || n > MaxSamples {
		return 0, fmt.Errorf("dims %v: %w", dims, ErrBadDims)
	}
	return n, nil
}

// NewVolume returns a zero filled volume of the given dimensions spanning bb.
func NewVolume(bb r3.Box, dims V3i) (*Volume, error) {
	n, err := CheckDims(dims)
	if err != nil {
		return nil, err
	}
	if d3.LTZero(r3.Sub(bb.Max, bb.Min)) {
		return nil, ErrDegenerateBounds
	}
	return &Volume{
		dims: dims,
		bb:   bb,
		data: make([]float64, n),
	}, nil
}

// Dims returns the amount of samples along each axis.
func (v *Volume) Dims() V3i { return v.dims }

// Bounds returns the box spanned by the samples.
func (v *Volume) Bounds() r3.Box { return v.bb }

// Origin returns the position of sample (0,0,0).
func (v *Volume) Origin() r3.Vec { return v.bb.Min }

// Len returns the amount of samples in the volume.
func (v *Volume) Len() int { return len(v.data) }

// Data returns the backing slice of the volume. Modifying it modifies the volume.
func (v *Volume) Data() []float64 { return v.data }

// Spacing returns the distance between adjacent samples along each axis.
// Axes with a single sample have zero spacing.
func (v *Volume) Spacing() r3.Vec {
	size := d3.Box(v.bb).Size()
	var sp [3]float64
	for i := 0; i < 3; i++ {
		if v.dims[i] > 1 {
			sp[i] = d3.Component(size, i) / float64(v.dims[i]-1)
		}
	}
	return r3.Vec{X: sp[0], Y: sp[1], Z: sp[2]}
}

// Index returns the position of sample i in Data.
func (v *Volume) Index(i V3i) int {
	if !i.InBounds(v.dims) {
		panic(fmt.Sprintf("voxel index %v out of bounds %v", i, v.dims))
	}
	return i[0] + v.dims[0]*(i[1]+v.dims[1]*i[2])
}

// At returns the sample at i.
func (v *Volume) At(i V3i) float64 { return v.data[v.Index(i)] }

// Set sets the sample at i to f.
func (v *Volume) Set(i V3i, f float64) { v.data[v.Index(i)] = f }

// Position returns the location in space of sample i. The last sample
// along an axis lies exactly on bounds.Max.
func (v *Volume) Position(i V3i) r3.Vec {
	return r3.Vec{X: v.coord(0, i[0]), Y: v.coord(1, i[1]), Z: v.coord(2, i[2])}
}

func (v *Volume) coord(axis, i int) float64 {
	lo := d3.Component(v.bb.Min, axis)
	n := v.dims[axis]
	if n == 1 {
		return lo
	}
	return mix(lo, d3.Component(v.bb.Max, axis), float64(i)/float64(n-1))
}

// Clone returns a deep copy of the volume.
func (v *Volume) Clone() *Volume {
	cp := *v
	cp.data = append([]float64(nil), v.data...)
	return &cp
}

// Range returns the minimum and maximum finite sample values. Both are
// NaN when the volume has no finite samples.
func (v *Volume) Range() (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, f := range v.data {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		min = math.Min(min, f)
		max = math.Max(max, f)
	}
	if min > max {
		return math.NaN(), math.NaN()
	}
	return min, max
}

// Slice returns the plane of samples normal to axis at sample index as a
// volume with a single sample along axis. Axes 0, 1 and 2 are x, y and z.
func (v *Volume) Slice(axis, index int) (*Volume, error) {
	if axis < 0 || axis > 2 || index < 0 || index >= v.dims[axis] {
		return nil, fmt.Errorf("axis %d index %d of dims %v: %w", axis, index, v.dims, ErrSlice)
	}
	dims := v.dims
	dims[axis] = 1
	at := v.coord(axis, index)
	lo := [3]float64{v.bb.Min.X, v.bb.Min.Y, v.bb.Min.Z}
	hi := [3]float64{v.bb.Max.X, v.bb.Max.Y, v.bb.Max.Z}
	lo[axis], hi[axis] = at, at
	out, err := NewVolume(r3.Box{
		Min: r3.Vec{X: lo[0], Y: lo[1], Z: lo[2]},
		Max: r3.Vec{X: hi[0], Y: hi[1], Z: hi[2]},
	}, dims)
	if err != nil {
		return nil, err
	}
	for z := 0; z < dims[2]; z++ {
		for y := 0; y < dims[1]; y++ {
			for x := 0; x < dims[0]; x++ {
				i := V3i{x, y, z}
				src := i
				src[axis] = index
				out.Set(i, v.At(src))
			}
		}
	}
	return out, nil
}

// Evaluate samples the volume at p with trilinear interpolation.
// p is clamped to the volume bounds.
func (v *Volume) Evaluate(p r3.Vec) float64 {
	p = d3.Clamp(p, v.bb.Min, v.bb.Max)
	sp := v.Spacing()
	var (
		i0, i1 V3i
		t      [3]float64
	)
	for ax := 0; ax < 3; ax++ {
		s := d3.Component(sp, ax)
		if s == 0 {
			continue
		}
		u := (d3.Component(p, ax) - d3.Component(v.bb.Min, ax)) / s
		fl := math.Floor(u)
		i0[ax] = int(fl)
		if i0[ax] >= v.dims[ax]-1 {
			i0[ax] = v.dims[ax] - 1
			i1[ax] = i0[ax]
			continue
		}
		i1[ax] = i0[ax] + 1
		t[ax] = u - fl
	}
	c00 := mix(v.At(V3i{i0[0], i0[1], i0[2]}), v.At(V3i{i1[0], i0[1], i0[2]}), t[0])
	c10 := mix(v.At(V3i{i0[0], i1[1], i0[2]}), v.At(V3i{i1[0], i1[1], i0[2]}), t[0])
	c01 := mix(v.At(V3i{i0[0], i0[1], i1[2]}), v.At(V3i{i1[0], i0[1], i1[2]}), t[0])
	c11 := mix(v.At(V3i{i0[0], i1[1], i1[2]}), v.At(V3i{i1[0], i1[1], i1[2]}), t[0])
	c0 := mix(c00, c10, t[1])
	c1 := mix(c01, c11, t[1])
	return mix(c0, c1, t[2])
}

// Threshold selects a scalar range for remapping. Above and Below bound
// the half-open range [Above, Below). A nil bound leaves that side open.
// Replace is written to samples inside the range and ReplaceOut to samples
// outside of it. Nil replacement values leave those samples untouched.
type Threshold struct {
	Above, Below        *float64
	Replace, ReplaceOut *float64
}

func (th Threshold) contains(f float64) bool {
	if th.Above != nil && f < *th.Above {
		return false
	}
	if th.Below != nil && f >= *th.Below {
		return false
	}
	return true
}

// Threshold rewrites the volume samples according to th and returns the
// amount of samples inside the range that were replaced.
func (v *Volume) Threshold(th Threshold) (replaced int, err error) {
	switch {
	case th.Above == nil && th.Below == nil:
		return 0, ErrNoRange
	case th.Above != nil && th.Below != nil && *th.Above > *th.Below:
		return 0, fmt.Errorf("above=%g below=%g: %w", *th.Above, *th.Below, ErrInvertedRange)
	}
	for i, f := range v.data {
		if th.contains(f) {
			if th.Replace != nil {
				v.data[i] = *th.Replace
				replaced++
			}
		} else if th.ReplaceOut != nil {
			v.data[i] = *th.ReplaceOut
		}
	}
	return replaced, nil
}

// ThresholdRange replaces all samples within [above, below) with replace.
// This carves a gap into the volume's histogram.
func (v *Volume) ThresholdRange(above, below, replace float64) (int, error) {
	return v.Threshold(Threshold{Above: &above, Below: &below, Replace: &replace})
}

// Histogram bins the finite volume samples into bins evenly spaced bins
// over the volume's range. dividers has length bins+1. NaN and infinite
// samples are not counted.
func (v *Volume) Histogram(bins int) (dividers, counts []float64) {
	if bins < 1 {
		panic("histogram needs at least one bin")
	}
	sorted := make([]float64, 0, len(v.data))
	for _, f := range v.data {
		if !math.IsNaN(f) && !math.IsInf(f, 0) {
			sorted = append(sorted, f)
		}
	}
	sort.Float64s(sorted)
	lo, hi := 0.0, 1.0
	if len(sorted) > 0 {
		lo, hi = sorted[0], sorted[len(sorted)-1]
	}
	if hi == lo {
		hi = lo + 1
	}
	dividers = make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	// Last divider is exclusive in stat.Histogram.
	dividers[bins] = math.Nextafter(dividers[bins], math.Inf(1))
	if len(sorted) == 0 {
		return dividers, make([]float64, bins)
	}
	counts = stat.Histogram(nil, dividers, sorted, nil)
	return dividers, counts
}

func mix(x, y, a float64) float64 {
	return x*(1-a) + y*a
}

// Resample returns a new volume over the same bounds with the given
// dimensions, sampled from v with trilinear interpolation.
func (v *Volume) Resample(dims V3i) (*Volume, error) {
	out, err := NewVolume(v.bb, dims)
	if err != nil {
		return nil, err
	}
	for z := 0; z < dims[2]; z++ {
		for y := 0; y < dims[1]; y++ {
			for x := 0; x < dims[0]; x++ {
				i := V3i{x, y, z}
				out.Set(i, v.Evaluate(out.Position(i)))
			}
		}
	}
	return out, nil
}

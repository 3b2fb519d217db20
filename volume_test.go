package pointvol

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

var unitBox = r3.Box{Max: r3.Vec{X: 1, Y: 1, Z: 1}}

func rampVolume(t testing.TB, dims V3i) *Volume {
	t.Helper()
	vol, err := NewVolume(unitBox, dims)
	require.NoError(t, err)
	for z := 0; z < dims[2]; z++ {
		for y := 0; y < dims[1]; y++ {
			for x := 0; x < dims[0]; x++ {
				i := V3i{x, y, z}
				vol.Set(i, vol.Position(i).Z)
			}
		}
	}
	return vol
}

func TestNewVolumeErrors(t *testing.T) {
	_, err := NewVolume(unitBox, V3i{0, 2, 2})
	assert.ErrorIs(t, err, ErrBadDims)
	_, err = NewVolume(r3.Box{Min: r3.Vec{X: 1}}, V3i{2, 2, 2})
	assert.ErrorIs(t, err, ErrDegenerateBounds)
	vol, err := NewVolume(unitBox, V3i{3, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, 60, vol.Len())
}

func TestNewVolumeDimsProduct(t *testing.T) {
	for _, dims := range []V3i{
		{1 << 32, 1 << 32, 1},
		{1 << 30, 5, 3435973837},
		{MaxSamples, 2, 1},
		{-2, -2, 1},
	} {
		_, err := NewVolume(unitBox, dims)
		assert.ErrorIs(t, err, ErrBadDims, "dims %v", dims)
	}
	n, ok := V3i{3, 4, 5}.CheckedProd()
	assert.True(t, ok)
	assert.Equal(t, 60, n)
	_, ok = V3i{math.MaxInt / 2, 3, 1}.CheckedProd()
	assert.False(t, ok)

	n, err := CheckDims(V3i{MaxSamples, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, MaxSamples, n)
}

func TestPositionLastSampleOnMax(t *testing.T) {
	bb := r3.Box{Min: r3.Vec{X: -0.3, Y: 0.1, Z: 0}, Max: r3.Vec{X: 0.7, Y: 1.3, Z: 1}}
	for _, dims := range []V3i{{1, 1, 50}, {7, 13, 3}, {101, 2, 49}} {
		vol, err := NewVolume(bb, dims)
		require.NoError(t, err)
		last := dims.SubScalar(1)
		got := vol.Position(last)
		if dims[0] == 1 {
			assert.Equal(t, bb.Min.X, got.X)
		} else {
			assert.Equal(t, bb.Max.X, got.X, "dims %v", dims)
		}
		assert.Equal(t, bb.Max.Z, got.Z, "dims %v", dims)
		assert.Equal(t, bb.Min, vol.Position(V3i{}))
	}
}

func TestVolumeIndexing(t *testing.T) {
	vol, err := NewVolume(unitBox, V3i{3, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, 0, vol.Index(V3i{0, 0, 0}))
	assert.Equal(t, 1, vol.Index(V3i{1, 0, 0}))
	assert.Equal(t, 3, vol.Index(V3i{0, 1, 0}))
	assert.Equal(t, 12, vol.Index(V3i{0, 0, 1}))
	assert.Equal(t, 59, vol.Index(V3i{2, 3, 4}))
	assert.Panics(t, func() { vol.Index(V3i{3, 0, 0}) })

	sp := vol.Spacing()
	assert.InDelta(t, 0.5, sp.X, 1e-12)
	assert.InDelta(t, 1./3, sp.Y, 1e-12)
	assert.InDelta(t, 0.25, sp.Z, 1e-12)
	assert.Equal(t, r3.Vec{X: 1, Y: 1, Z: 1}, vol.Position(V3i{2, 3, 4}))
}

func TestVolumeSingleSampleAxis(t *testing.T) {
	vol, err := NewVolume(unitBox, V3i{1, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, 0.0, vol.Spacing().X)
	vol.Set(V3i{0, 1, 1}, 4)
	assert.InDelta(t, 1.0, vol.Evaluate(r3.Vec{X: 0.7, Y: 0.5, Z: 0.5}), 1e-12)
}

func TestVolumeEvaluateTrilinear(t *testing.T) {
	vol := rampVolume(t, V3i{5, 5, 5})
	for _, p := range []r3.Vec{
		{X: 0.1, Y: 0.2, Z: 0.33},
		{X: 0.9, Y: 0.9, Z: 0.99},
		{Z: 0.5},
	} {
		assert.InDelta(t, p.Z, vol.Evaluate(p), 1e-12, "at %v", p)
	}
	// Clamped outside of bounds.
	assert.InDelta(t, 1.0, vol.Evaluate(r3.Vec{Z: 3}), 1e-12)
	assert.InDelta(t, 0.0, vol.Evaluate(r3.Vec{Z: -3}), 1e-12)
}

func TestThresholdRangeHalfOpen(t *testing.T) {
	vol, err := NewVolume(unitBox, V3i{5, 1, 1})
	require.NoError(t, err)
	copy(vol.Data(), []float64{0.1, 0.3, 0.35, 0.4, 0.5})
	n, err := vol.ThresholdRange(0.3, 0.4, 0.6)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	if diff := cmp.Diff([]float64{0.1, 0.6, 0.6, 0.4, 0.5}, vol.Data()); diff != "" {
		t.Errorf("threshold mismatch (-want +got):\n%s", diff)
	}
}

func TestThresholdCases(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	for _, test := range []struct {
		name     string
		th       Threshold
		want     []float64
		replaced int
		err      error
	}{
		{name: "no range", th: Threshold{Replace: f(1)}, err: ErrNoRange},
		{name: "inverted", th: Threshold{Above: f(2), Below: f(1), Replace: f(1)}, err: ErrInvertedRange},
		{name: "empty range", th: Threshold{Above: f(2), Below: f(2), Replace: f(9)}, want: []float64{0, 1, 2, 3}},
		{name: "above only", th: Threshold{Above: f(2), Replace: f(9)}, want: []float64{0, 1, 9, 9}, replaced: 2},
		{name: "below only", th: Threshold{Below: f(2), Replace: f(9)}, want: []float64{9, 9, 2, 3}, replaced: 2},
		{name: "replace out", th: Threshold{Above: f(1), Below: f(3), ReplaceOut: f(-1)}, want: []float64{-1, 1, 2, -1}},
		{name: "binary", th: Threshold{Above: f(1), Below: f(3), Replace: f(1), ReplaceOut: f(0)}, want: []float64{0, 1, 1, 0}, replaced: 2},
	} {
		t.Run(test.name, func(t *testing.T) {
			vol, err := NewVolume(unitBox, V3i{4, 1, 1})
			require.NoError(t, err)
			copy(vol.Data(), []float64{0, 1, 2, 3})
			n, err := vol.Threshold(test.th)
			if test.err != nil {
				assert.True(t, errors.Is(err, test.err), "got %v want %v", err, test.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.replaced, n)
			assert.Equal(t, test.want, vol.Data())
		})
	}
}

func TestHistogramGap(t *testing.T) {
	vol := rampVolume(t, V3i{4, 4, 101})
	_, err := vol.ThresholdRange(0.3, 0.4, 0.6)
	require.NoError(t, err)
	dividers, counts := vol.Histogram(10)
	require.Len(t, dividers, 11)
	require.Len(t, counts, 10)
	total := 0.0
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, float64(vol.Len()), total)
	// Bin [0.3, 0.4) must be empty, its samples moved into [0.6, 0.7).
	assert.Zero(t, counts[3])
	assert.Greater(t, counts[6], counts[5])
}

func TestHistogramConstant(t *testing.T) {
	vol, err := NewVolume(unitBox, V3i{2, 2, 2})
	require.NoError(t, err)
	_, counts := vol.Histogram(4)
	assert.Equal(t, []float64{8, 0, 0, 0}, counts)
	assert.Panics(t, func() { vol.Histogram(0) })
}

func TestHistogramNonFinite(t *testing.T) {
	vol := rampVolume(t, V3i{2, 2, 3})
	vol.Set(V3i{0, 0, 0}, math.Inf(1))
	vol.Set(V3i{1, 0, 0}, math.NaN())
	vol.Set(V3i{0, 1, 0}, math.Inf(-1))
	lo, hi := vol.Range()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
	dividers, counts := vol.Histogram(4)
	assert.Equal(t, 0.0, dividers[0])
	total := 0.0
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, float64(vol.Len()-3), total)

	for i := range vol.Data() {
		vol.Data()[i] = math.NaN()
	}
	lo, hi = vol.Range()
	assert.True(t, math.IsNaN(lo) && math.IsNaN(hi))
	_, counts = vol.Histogram(2)
	assert.Equal(t, []float64{0, 0}, counts)
}

func TestSlice(t *testing.T) {
	vol := rampVolume(t, V3i{3, 4, 5})
	for i, v := range vol.Data() {
		vol.Data()[i] = v + float64(i)
	}
	tests := []struct {
		axis, index int
		dims        V3i
	}{
		{axis: 0, index: 2, dims: V3i{1, 4, 5}},
		{axis: 1, index: 0, dims: V3i{3, 1, 5}},
		{axis: 2, index: 4, dims: V3i{3, 4, 1}},
	}
	for _, test := range tests {
		s, err := vol.Slice(test.axis, test.index)
		require.NoError(t, err)
		require.Equal(t, test.dims, s.Dims())
		var src V3i
		src[test.axis] = test.index
		plane := vol.Position(src)
		sb := s.Bounds()
		assert.Equal(t, []float64{plane.X, plane.Y, plane.Z}[test.axis], []float64{sb.Min.X, sb.Min.Y, sb.Min.Z}[test.axis])
		assert.Equal(t, []float64{plane.X, plane.Y, plane.Z}[test.axis], []float64{sb.Max.X, sb.Max.Y, sb.Max.Z}[test.axis])
		for z := 0; z < test.dims[2]; z++ {
			for y := 0; y < test.dims[1]; y++ {
				for x := 0; x < test.dims[0]; x++ {
					i := V3i{x, y, z}
					j := i
					j[test.axis] = test.index
					require.Equal(t, vol.At(j), s.At(i))
					require.Equal(t, vol.Position(j), s.Position(i))
				}
			}
		}
	}
	for _, bad := range [][2]int{{3, 0}, {-1, 0}, {0, 3}, {2, -1}} {
		_, err := vol.Slice(bad[0], bad[1])
		assert.ErrorIs(t, err, ErrSlice)
	}
}

func TestVolumeCloneIndependent(t *testing.T) {
	vol := rampVolume(t, V3i{2, 2, 2})
	cp := vol.Clone()
	cp.Set(V3i{}, math.Pi)
	assert.NotEqual(t, math.Pi, vol.At(V3i{}))
	lo, hi := vol.Range()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
}

func TestResample(t *testing.T) {
	vol := rampVolume(t, V3i{3, 3, 9})
	small, err := vol.Resample(V3i{2, 2, 5})
	require.NoError(t, err)
	assert.Equal(t, vol.Bounds(), small.Bounds())
	for z := 0; z < 5; z++ {
		assert.InDelta(t, float64(z)/4, small.At(V3i{1, 1, z}), 1e-12)
	}
	_, err = vol.Resample(V3i{})
	assert.ErrorIs(t, err, ErrBadDims)
}

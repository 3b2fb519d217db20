package pointvol

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/soypat/pointvol/internal/d3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// PointCloud is an unordered set of points carrying one scalar each.
type PointCloud struct {
	Points  []r3.Vec
	Scalars []float64
}

// NewPointCloud returns a point cloud with a copy of pts and no scalars.
func NewPointCloud(pts []r3.Vec) *PointCloud {
	cp := make([]r3.Vec, len(pts))
	copy(cp, pts)
	return &PointCloud{Points: cp}
}

// RandomCloud samples n points uniformly within bb.
func RandomCloud(rng *rand.Rand, n int, bb r3.Box) *PointCloud {
	if n < 0 {
		panic("negative point count")
	}
	box := d3.Box(bb)
	pts := make([]r3.Vec, n)
	for i := range pts {
		pts[i] = box.Random(rng)
	}
	return &PointCloud{Points: pts}
}

// Len returns the number of points in the cloud.
func (pc *PointCloud) Len() int { return len(pc.Points) }

// SetScalars sets the per-point scalars. s is copied.
func (pc *PointCloud) SetScalars(s []float64) error {
	if len(s) != len(pc.Points) {
		return fmt.Errorf("got %d scalars for %d points: %w", len(s), len(pc.Points), ErrScalarCount)
	}
	pc.Scalars = append(pc.Scalars[:0], s...)
	return nil
}

// ScalarsFromAxis sets each point's scalar to its coordinate along axis
// (0 for x, 1 for y, 2 for z).
func (pc *PointCloud) ScalarsFromAxis(axis int) {
	if axis < 0 || axis > 2 {
		panic("axis must be 0, 1 or 2")
	}
	s := make([]float64, len(pc.Points))
	for i, p := range pc.Points {
		s[i] = d3.Component(p, axis)
	}
	pc.Scalars = s
}

// Bounds returns the smallest box containing all points.
// An empty cloud returns the zero box.
func (pc *PointCloud) Bounds() r3.Box {
	if len(pc.Points) == 0 {
		return r3.Box{}
	}
	set := d3.Set(pc.Points)
	return r3.Box{Min: set.Min(), Max: set.Max()}
}

// ScalarRange returns the minimum and maximum scalar. It returns
// zeros if there are no scalars.
func (pc *PointCloud) ScalarRange() (min, max float64) {
	if len(pc.Scalars) == 0 {
		return 0, 0
	}
	return floats.Min(pc.Scalars), floats.Max(pc.Scalars)
}

// Validate checks the cloud is usable for interpolation.
func (pc *PointCloud) Validate() error {
	if len(pc.Points) == 0 {
		return ErrEmptyCloud
	}
	if len(pc.Scalars) != len(pc.Points) {
		return fmt.Errorf("got %d scalars for %d points: %w", len(pc.Scalars), len(pc.Points), ErrScalarCount)
	}
	for i, p := range pc.Points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) || !finite(pc.Scalars[i]) {
			return fmt.Errorf("point %d: %w", i, ErrNonFinite)
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

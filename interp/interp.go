// Package interp estimates a continuous scalar field from a scattered
// point cloud and samples it onto a regular volume.
package interp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/soypat/pointvol"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrNoFootprint = errors.New("interpolation needs a positive Radius or N")
	ErrKernelParam = errors.New("kernel Power and Sharpness must be finite and not negative")
)

// DefaultDims are the volume dimensions used when Config.Dims is zero.
var DefaultDims = pointvol.V3i{25, 25, 25}

// Config configures scattered data interpolation.
type Config struct {
	Kernel Kernel
	// Radius selects every point within Radius of the evaluated position.
	// It takes precedence over N.
	Radius float64
	// N selects the N closest points to the evaluated position.
	N int
	// Dims is the amount of samples along each axis of the output volume.
	Dims pointvol.V3i
	// Bounds of the output volume. Nil uses the point cloud bounds.
	Bounds *r3.Box
	// NullValue is assigned to positions with no points in the footprint.
	// If nil the value of the closest point is used instead.
	NullValue *float64
	// Power is the shepard inverse distance exponent. Zero means 2.
	Power float64
	// Sharpness is the gaussian kernel sharpness. Zero means 2.
	Sharpness float64
	// Workers is the amount of goroutines filling the volume.
	// Zero means GOMAXPROCS.
	Workers int
}

func (cfg Config) withDefaults() Config {
	if cfg.Dims == (pointvol.V3i{}) {
		cfg.Dims = DefaultDims
	}
	if cfg.Power == 0 {
		cfg.Power = 2
	}
	if cfg.Sharpness == 0 {
		cfg.Sharpness = 2
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return cfg
}

// Interpolator evaluates the field defined by a point cloud at arbitrary
// positions. It is safe for concurrent use.
type Interpolator struct {
	cfg   Config
	cloud *pointvol.PointCloud
	tree  *kdtree.Tree
}

// New builds the neighbor search structure for cloud. The cloud must not be
// modified while the Interpolator is in use.
func New(cloud *pointvol.PointCloud, cfg Config) (*Interpolator, error) {
	if err := cloud.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if cfg.Kernel > Linear {
		return nil, fmt.Errorf("%s: %w", cfg.Kernel, ErrUnknownKernel)
	}
	if cfg.Radius <= 0 && cfg.N <= 0 && cfg.Kernel != Voronoi {
		return nil, ErrNoFootprint
	}
	if !finiteNonNegative(cfg.Power) || !finiteNonNegative(cfg.Sharpness) {
		return nil, fmt.Errorf("power=%g sharpness=%g: %w", cfg.Power, cfg.Sharpness, ErrKernelParam)
	}
	if _, err := pointvol.CheckDims(cfg.Dims); err != nil {
		return nil, err
	}
	return &Interpolator{
		cfg:   cfg,
		cloud: cloud,
		tree:  newKDTree(cloud.Points),
	}, nil
}

func finiteNonNegative(f float64) bool {
	return f >= 0 && !math.IsInf(f, 1)
}

// Config returns the configuration with defaults applied.
func (it *Interpolator) Config() Config { return it.cfg }

// At returns the interpolated value at p. ok is false when no point was
// within the footprint and the null strategy supplied the value.
func (it *Interpolator) At(p r3.Vec) (v float64, ok bool) {
	var s scratch
	return it.at(p, &s)
}

// scratch holds per goroutine buffers reused between evaluations.
type scratch struct {
	nb   []neighbor
	d, w []float64
}

func (it *Interpolator) at(p r3.Vec, s *scratch) (float64, bool) {
	cfg := &it.cfg
	switch {
	case cfg.Kernel == Voronoi:
		s.nb = append(s.nb[:0], closest(it.tree, p))
	case cfg.Radius > 0:
		s.nb = withinRadius(s.nb[:0], it.tree, p, cfg.Radius)
	default:
		s.nb = nClosest(s.nb[:0], it.tree, p, cfg.N)
	}
	if len(s.nb) == 0 {
		if cfg.NullValue != nil {
			return *cfg.NullValue, false
		}
		return it.cloud.Scalars[closest(it.tree, p).idx], false
	}
	radius := cfg.Radius
	s.d = s.d[:0]
	for _, n := range s.nb {
		s.d = append(s.d, n.dist)
		if cfg.Radius <= 0 && n.dist > radius {
			// N closest footprint extends to the farthest neighbor.
			radius = n.dist
		}
	}
	if cap(s.w) < len(s.nb) {
		s.w = make([]float64, len(s.nb))
	}
	s.w = s.w[:len(s.nb)]
	cfg.Kernel.weights(s.w, s.d, radius, cfg.Power, cfg.Sharpness)
	v := 0.0
	for i, n := range s.nb {
		v += s.w[i] * it.cloud.Scalars[n.idx]
	}
	return v, true
}

// Volume samples the field onto a new volume. z slabs are filled
// concurrently. Cancelling ctx aborts the fill and returns ctx's error.
func (it *Interpolator) Volume(ctx context.Context) (*pointvol.Volume, error) {
	bb := it.cloud.Bounds()
	if it.cfg.Bounds != nil {
		bb = *it.cfg.Bounds
	}
	vol, err := pointvol.NewVolume(bb, it.cfg.Dims)
	if err != nil {
		return nil, err
	}
	dims := vol.Dims()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(it.cfg.Workers)
	for z := 0; z < dims[2]; z++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			var s scratch
			for y := 0; y < dims[1]; y++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				for x := 0; x < dims[0]; x++ {
					idx := pointvol.V3i{x, y, z}
					v, _ := it.at(vol.Position(idx), &s)
					vol.Set(idx, v)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return vol, nil
}

// ToVolume interpolates the scalars of cloud onto a regular volume.
func ToVolume(ctx context.Context, cloud *pointvol.PointCloud, cfg Config) (*pointvol.Volume, error) {
	it, err := New(cloud, cfg)
	if err != nil {
		return nil, err
	}
	return it.Volume(ctx)
}

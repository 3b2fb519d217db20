package pointvol

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"
)

// Field3 is the interface to a scalar field defined over a 3D region.
type Field3 interface {
	// Evaluate returns the value of the field at p. Points outside
	// of Bounds are evaluated at the closest point within Bounds.
	Evaluate(p r3.Vec) float64
	// Bounds returns the bounding box that completely contains
	// the region where the field is defined.
	Bounds() r3.Box
}

var (
	ErrEmptyCloud       = errors.New("point cloud has no points")
	ErrScalarCount      = errors.New("scalar count does not match point count")
	ErrNonFinite        = errors.New("non finite coordinate or scalar")
	ErrBadDims          = errors.New("volume dimensions must be 1 or larger and hold at most MaxSamples")
	ErrDegenerateBounds = errors.New("volume bounds minimum exceeds maximum")
	ErrNoRange          = errors.New("threshold needs at least one of Above or Below")
	ErrInvertedRange    = errors.New("threshold Above is greater than Below")
	ErrSlice            = errors.New("slice axis or index out of range")
)

package interp

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Kernel selects how neighbor samples are weighted when estimating the
// field at a voxel.
type Kernel uint8

const (
	// Shepard weights neighbors by inverse distance to a power.
	Shepard Kernel = iota
	// Gaussian weights neighbors with a gaussian of the distance
	// relative to the footprint radius.
	Gaussian
	// Voronoi takes the value of the closest point.
	Voronoi
	// Linear averages all neighbors with equal weight.
	Linear
)

var ErrUnknownKernel = errors.New("unknown interpolation kernel")

var kernelNames = [...]string{
	Shepard:  "shepard",
	Gaussian: "gaussian",
	Voronoi:  "voronoi",
	Linear:   "linear",
}

func (k Kernel) String() string {
	if int(k) < len(kernelNames) {
		return kernelNames[k]
	}
	return fmt.Sprintf("Kernel(%d)", k)
}

// ParseKernel returns the kernel named s. Matching is case insensitive.
func ParseKernel(s string) (Kernel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kernelNames {
		if name == s {
			return Kernel(k), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownKernel)
}

// coincident is the distance under which a neighbor is considered to lie
// on the evaluated point.
const coincident = 1e-12

// weights fills w with normalized weights for neighbors at distances d.
// radius is the footprint radius used by the gaussian kernel.
func (k Kernel) weights(w, d []float64, radius, power, sharpness float64) {
	switch k {
	case Linear:
		for i := range w {
			w[i] = 1
		}
	case Shepard:
		dmin := math.Inf(1)
		for i, di := range d {
			if di < coincident {
				// A sample on the point dominates completely.
				for j := range w {
					w[j] = 0
				}
				w[i] = 1
				return
			}
			dmin = math.Min(dmin, di)
		}
		// Relative to the closest neighbor so large powers cannot
		// overflow. The closest weight is 1.
		for i, di := range d {
			w[i] = math.Pow(dmin/di, power)
		}
	case Gaussian:
		if radius <= 0 {
			// All neighbors coincide.
			for i := range w {
				w[i] = 1
			}
			break
		}
		f := sharpness / radius
		for i, di := range d {
			x := f * di
			w[i] = math.Exp(-x * x)
		}
	case Voronoi:
		closest := 0
		for i, di := range d {
			w[i] = 0
			if di < d[closest] {
				closest = i
			}
		}
		w[closest] = 1
		return
	default:
		panic("invalid kernel " + k.String())
	}
	normalize(w)
}

func normalize(w []float64) {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	if sum == 0 {
		// Gaussian weights may underflow far from every neighbor.
		for i := range w {
			w[i] = 1 / float64(len(w))
		}
		return
	}
	for i := range w {
		w[i] /= sum
	}
}

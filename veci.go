/*

Integer 3D vectors for voxel grid indexing.

*/

package pointvol

import "math"

// V3i is a 3D integer vector. It is used both as a voxel index
// and as grid dimensions.
type V3i [3]int

// SubScalar subtracts a scalar from each component of the vector.
func (a V3i) SubScalar(b int) V3i {
	return V3i{a[0] - b, a[1] - b, a[2] - b}
}

// CheckedProd returns the product of the components. For grid dimensions
// this is the amount of voxels. ok is false if a component is negative or
// the product overflows int.
func (a V3i) CheckedProd() (n int, ok bool) {
	n = 1
	for _, c := range a {
		if c < 0 {
			return 0, false
		}
		if c != 0 && n > math.MaxInt/c {
			return 0, false
		}
		n *= c
	}
	return n, true
}

// InBounds reports whether every component of a is in [0, dims).
func (a V3i) InBounds(dims V3i) bool {
	return a[0] >= 0 && a[1] >= 0 && a[2] >= 0 &&
		a[0] < dims[0] && a[1] < dims[1] && a[2] < dims[2]
}

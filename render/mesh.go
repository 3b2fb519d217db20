package render

import (
	"image/color"

	"github.com/soypat/pointvol"
)

// Colorizer maps a scalar value to a color with opacity.
// *colormap.TransferFunction implements it.
type Colorizer interface {
	RGBA(v float64) color.NRGBA
}

// ColoredMesh is a triangle mesh with one color per triangle.
type ColoredMesh struct {
	Triangles []Triangle3
	Colors    []color.NRGBA
}

// Len returns the amount of triangles in the mesh.
func (m *ColoredMesh) Len() int { return len(m.Triangles) }

// VoxelMesh returns the boundary faces of the voxels selected by sel,
// each colored by the value of the voxel it belongs to.
func VoxelMesh(vol *pointvol.Volume, sel Selector, cz Colorizer) *ColoredMesh {
	g := newVoxelGrid(vol, sel)
	dims := vol.Dims()
	mesh := &ColoredMesh{}
	var tmp []Triangle3
	for z := 0; z < dims[2]; z++ {
		for y := 0; y < dims[1]; y++ {
			for x := 0; x < dims[0]; x++ {
				idx := pointvol.V3i{x, y, z}
				tmp = g.faces(tmp[:0], idx)
				if len(tmp) == 0 {
					continue
				}
				c := cz.RGBA(vol.At(idx))
				mesh.Triangles = append(mesh.Triangles, tmp...)
				for range tmp {
					mesh.Colors = append(mesh.Colors, c)
				}
			}
		}
	}
	return mesh
}

package render

import (
	"errors"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// WriteGLB saves mesh as a binary glTF file with flat normals and
// per vertex colors. Translucent colors switch the material to blending.
func WriteGLB(path string, mesh *ColoredMesh) error {
	doc, err := gltfDocument(mesh)
	if err != nil {
		return err
	}
	return gltf.SaveBinary(doc, path)
}

func gltfDocument(mesh *ColoredMesh) (*gltf.Document, error) {
	if mesh.Len() == 0 {
		return nil, errors.New("empty mesh")
	}
	if len(mesh.Colors) != len(mesh.Triangles) {
		return nil, errors.New("mesh needs one color per triangle")
	}
	nv := 3 * mesh.Len()
	positions := make([][3]float32, 0, nv)
	normals := make([][3]float32, 0, nv)
	colors := make([][4]float32, 0, nv)
	indices := make([]uint32, 0, nv)
	hasAlpha := false
	for i, t := range mesh.Triangles {
		n := to3F32(t.Normal())
		c := mesh.Colors[i]
		rgba := [4]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}
		if c.A < 255 {
			hasAlpha = true
		}
		for _, v := range t.V {
			indices = append(indices, uint32(len(positions)))
			positions = append(positions, to3F32(v))
			normals = append(normals, n)
			colors = append(colors, rgba)
		}
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = "pointvol"
	posAccessor := modeler.WritePosition(doc, positions)
	normalAccessor := modeler.WriteNormal(doc, normals)
	colorAccessor := modeler.WriteColor(doc, colors)
	indicesAccessor := modeler.WriteIndices(doc, indices)

	prim := &gltf.Primitive{
		Attributes: gltf.PrimitiveAttributes{
			gltf.POSITION: posAccessor,
			gltf.NORMAL:   normalAccessor,
			gltf.COLOR_0:  colorAccessor,
		},
		Indices:  gltf.Index(indicesAccessor),
		Material: gltf.Index(0),
	}
	material := &gltf.Material{
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{1, 1, 1, 1},
			MetallicFactor:  gltf.Float(0),
			RoughnessFactor: gltf.Float(1),
		},
		AlphaMode:   gltf.AlphaOpaque,
		DoubleSided: true,
	}
	if hasAlpha {
		material.AlphaMode = gltf.AlphaBlend
	}
	doc.Materials = []*gltf.Material{material}
	doc.Meshes = []*gltf.Mesh{{Name: "volume", Primitives: []*gltf.Primitive{prim}}}
	doc.Nodes = []*gltf.Node{{Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	return doc, nil
}

package render

import (
	"image/color"
	"math"

	"github.com/fogleman/fauxgl"
)

// vertexColorShader is a two sided diffuse shader that takes the object
// color from each vertex, keeping vertex alpha for blending.
type vertexColorShader struct {
	matrix  fauxgl.Matrix
	light   fauxgl.Vector
	ambient float64
}

func (s *vertexColorShader) Vertex(v fauxgl.Vertex) fauxgl.Vertex {
	v.Output = s.matrix.MulPositionW(v.Position)
	return v
}

func (s *vertexColorShader) Fragment(v fauxgl.Vertex) fauxgl.Color {
	diffuse := math.Abs(v.Normal.Normalize().Dot(s.light))
	k := s.ambient + (1-s.ambient)*diffuse
	c := v.Color
	return fauxgl.Color{R: c.R * k, G: c.G * k, B: c.B * k, A: c.A}
}

func toFauxColor(c color.NRGBA) fauxgl.Color {
	return fauxgl.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
		A: float64(c.A) / 255,
	}
}

func toFauxTriangle(t Triangle3, c fauxgl.Color) *fauxgl.Triangle {
	n := t.Normal()
	normal := fauxgl.V(n.X, n.Y, n.Z)
	var vs [3]fauxgl.Vertex
	for i, p := range t.V {
		vs[i] = fauxgl.Vertex{
			Position: fauxgl.V(p.X, p.Y, p.Z),
			Normal:   normal,
			Color:    c,
		}
	}
	return fauxgl.NewTriangle(vs[0], vs[1], vs[2])
}

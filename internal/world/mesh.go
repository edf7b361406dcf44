package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/biome-terrain/internal/biome"
)

// Mesh — треугольная сетка с цветом на грань
type Mesh struct {
	id            string
	Vertices      []mgl64.Vec3
	Faces         [][3]int
	FaceColors    []biome.Color
	FaceSubBiomes []string
}

// NodeID реализует SceneNode
func (m *Mesh) NodeID() string {
	return m.id
}

// Equal сравнивает геометрию, цвета и суб-биомы граней двух сеток
func (m *Mesh) Equal(o *Mesh) bool {
	if m == nil || o == nil {
		return m == o
	}
	if len(m.Vertices) != len(o.Vertices) || len(m.Faces) != len(o.Faces) {
		return false
	}
	if len(m.FaceColors) != len(o.FaceColors) || len(m.FaceSubBiomes) != len(o.FaceSubBiomes) {
		return false
	}
	for i := range m.FaceSubBiomes {
		if m.FaceSubBiomes[i] != o.FaceSubBiomes[i] {
			return false
		}
	}
	for i := range m.Vertices {
		if m.Vertices[i] != o.Vertices[i] {
			return false
		}
	}
	for i := range m.Faces {
		if m.Faces[i] != o.Faces[i] || m.FaceColors[i] != o.FaceColors[i] {
			return false
		}
	}
	return true
}

// buildChunkMesh семплирует высоту в каждой вершине сетки ячеек чанка.
// Координаты вершин считаются от глобального индекса, поэтому края соседей совпадают.
func buildChunkMesh(gen *biome.Generator, dims Dimensions, c ChunkCoord) *Mesh {
	stride := dims.Cols + 1
	m := &Mesh{
		id:       "chunk:" + c.String(),
		Vertices: make([]mgl64.Vec3, 0, stride*(dims.Rows+1)),
	}

	for j := 0; j <= dims.Rows; j++ {
		z := float64(c.Row*dims.Rows+j) * dims.CellSize
		for i := 0; i <= dims.Cols; i++ {
			x := float64(c.Col*dims.Cols+i) * dims.CellSize
			m.Vertices = append(m.Vertices, mgl64.Vec3{x, gen.ComputeHeightAt(x, z), z})
		}
	}

	faces := dims.Cols * dims.Rows * 2
	m.Faces = make([][3]int, 0, faces)
	m.FaceColors = make([]biome.Color, 0, faces)
	m.FaceSubBiomes = make([]string, 0, faces)

	for j := 0; j < dims.Rows; j++ {
		for i := 0; i < dims.Cols; i++ {
			a := j*stride + i
			b := a + 1
			cc := a + stride
			d := cc + 1
			m.addFace(gen, [3]int{a, cc, b})
			m.addFace(gen, [3]int{b, cc, d})
		}
	}
	return m
}

func (m *Mesh) addFace(gen *biome.Generator, f [3]int) {
	va, vb, vc := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
	cx := (va.X() + vb.X() + vc.X()) / 3
	cz := (va.Z() + vb.Z() + vc.Z()) / 3
	sb := gen.SubBiomeAt(cx, cz)
	m.Faces = append(m.Faces, f)
	m.FaceColors = append(m.FaceColors, sb.Color)
	m.FaceSubBiomes = append(m.FaceSubBiomes, sb.Name)
}

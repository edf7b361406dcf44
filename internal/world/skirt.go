package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/biome-terrain/internal/biome"
)

var skirtColor = biome.Hex(0x5a4632)

type edge struct {
	name string
	// точка i-й вершины ребра
	at    func(i int) (float64, float64)
	count int
}

func worldEdges(dims Dimensions) []edge {
	nx := dims.ChunksX * dims.Cols
	nz := dims.ChunksZ * dims.Rows
	cs := dims.CellSize
	w, d := dims.Width(), dims.Depth()
	return []edge{
		{name: "north", count: nx + 1, at: func(i int) (float64, float64) { return float64(i) * cs, 0 }},
		{name: "south", count: nx + 1, at: func(i int) (float64, float64) { return float64(i) * cs, d }},
		{name: "west", count: nz + 1, at: func(i int) (float64, float64) { return 0, float64(i) * cs }},
		{name: "east", count: nz + 1, at: func(i int) (float64, float64) { return w, float64(i) * cs }},
	}
}

// buildSkirts строит вертикальные юбки по четырём краям мира, нижнюю крышку
// и, если у биома есть вода, водяные юбки
func buildSkirts(gen *biome.Generator, dims Dimensions) []*Mesh {
	var meshes []*Mesh
	for _, e := range worldEdges(dims) {
		meshes = append(meshes, edgeStrip("skirt:"+e.name, e, dims.MinHeight,
			gen.ComputeHeightAt,
			func(float64, float64) biome.Color { return skirtColor }))
	}
	meshes = append(meshes, bottomCap(dims))

	if gen.HasWater() {
		waterTop := func(x, z float64) float64 {
			if gen.IsUnderwater(x, z) {
				return gen.ComputeWaterHeightAt(x, z)
			}
			return gen.ComputeHeightAt(x, z)
		}
		waterColor := func(x, z float64) biome.Color {
			return gen.GetWaterColor(gen.ComputeWaterMoistureAt(x, z))
		}
		for _, e := range worldEdges(dims) {
			meshes = append(meshes, edgeStrip("water-skirt:"+e.name, e, dims.MinHeight, waterTop, waterColor))
		}
	}
	return meshes
}

func edgeStrip(id string, e edge, bottom float64, top func(x, z float64) float64, color func(x, z float64) biome.Color) *Mesh {
	m := &Mesh{id: id}
	for i := 0; i < e.count; i++ {
		x, z := e.at(i)
		m.Vertices = append(m.Vertices, mgl64.Vec3{x, top(x, z), z}, mgl64.Vec3{x, bottom, z})
	}
	for i := 0; i+1 < e.count; i++ {
		a, b := 2*i, 2*i+1
		c, d := 2*i+2, 2*i+3
		x0, z0 := e.at(i)
		x1, z1 := e.at(i + 1)
		col := color((x0+x1)/2, (z0+z1)/2)
		m.Faces = append(m.Faces, [3]int{a, b, c}, [3]int{c, b, d})
		m.FaceColors = append(m.FaceColors, col, col)
		m.FaceSubBiomes = append(m.FaceSubBiomes, "", "")
	}
	return m
}

func bottomCap(dims Dimensions) *Mesh {
	y := dims.MinHeight
	w, d := dims.Width(), dims.Depth()
	return &Mesh{
		id: "skirt:bottom",
		Vertices: []mgl64.Vec3{
			{0, y, 0}, {w, y, 0}, {0, y, d}, {w, y, d},
		},
		Faces:         [][3]int{{0, 1, 2}, {2, 1, 3}},
		FaceColors:    []biome.Color{skirtColor, skirtColor},
		FaceSubBiomes: []string{"", ""},
	}
}

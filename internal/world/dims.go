package world

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/biome-terrain/internal/physics"
	"github.com/annel0/biome-terrain/internal/vec"
)

// ChunkCoord — адрес чанка в сетке мира
type ChunkCoord struct {
	Row int `json:"row"` // ось Z
	Col int `json:"col"` // ось X
}

// String возвращает координаты в формате row:col
func (c ChunkCoord) String() string {
	return fmt.Sprintf("%d:%d", c.Row, c.Col)
}

// Vec возвращает координаты как вектор сетки (X — столбец, Y — строка)
func (c ChunkCoord) Vec() vec.Vec2 {
	return vec.Vec2{X: c.Col, Y: c.Row}
}

func coordFromVec(v vec.Vec2) ChunkCoord {
	return ChunkCoord{Row: v.Y, Col: v.X}
}

// Dimensions задаёт размеры сетки мира
type Dimensions struct {
	ChunksX   int     `json:"chunks_x"` // число столбцов чанков
	ChunksZ   int     `json:"chunks_z"` // число строк чанков
	Cols      int     `json:"cols"`     // ячеек в чанке по X
	Rows      int     `json:"rows"`     // ячеек в чанке по Z
	CellSize  float64 `json:"cell_size"`
	MinHeight float64 `json:"min_height"`
	MaxHeight float64 `json:"max_height"`
}

// DefaultDimensions возвращает размеры мира по умолчанию: 32x32 чанка по 16x16 ячеек
func DefaultDimensions() Dimensions {
	return Dimensions{
		ChunksX:   32,
		ChunksZ:   32,
		Cols:      16,
		Rows:      16,
		CellSize:  2,
		MinHeight: -4,
		MaxHeight: 24,
	}
}

// Validate проверяет корректность размеров
func (d Dimensions) Validate() error {
	if d.ChunksX <= 0 || d.ChunksZ <= 0 {
		return fmt.Errorf("число чанков должно быть положительным: %dx%d", d.ChunksX, d.ChunksZ)
	}
	if d.Cols <= 0 || d.Rows <= 0 {
		return fmt.Errorf("размер чанка должен быть положительным: %dx%d", d.Cols, d.Rows)
	}
	if d.CellSize <= 0 {
		return fmt.Errorf("размер ячейки должен быть положительным: %v", d.CellSize)
	}
	if d.MaxHeight <= d.MinHeight {
		return fmt.Errorf("некорректный диапазон высот [%v, %v]", d.MinHeight, d.MaxHeight)
	}
	return nil
}

// ChunkWidth возвращает ширину чанка по X в мировых единицах
func (d Dimensions) ChunkWidth() float64 { return float64(d.Cols) * d.CellSize }

// ChunkDepth возвращает глубину чанка по Z в мировых единицах
func (d Dimensions) ChunkDepth() float64 { return float64(d.Rows) * d.CellSize }

// Width возвращает размер мира по X
func (d Dimensions) Width() float64 { return float64(d.ChunksX) * d.ChunkWidth() }

// Depth возвращает размер мира по Z
func (d Dimensions) Depth() float64 { return float64(d.ChunksZ) * d.ChunkDepth() }

// InBounds проверяет, что координаты чанка лежат в сетке
func (d Dimensions) InBounds(c ChunkCoord) bool {
	return c.Row >= 0 && c.Row < d.ChunksZ && c.Col >= 0 && c.Col < d.ChunksX
}

// ChunkCoordAt возвращает чанк, содержащий точку мира. Дальняя граница мира
// относится к последнему чанку; точки вне мира дают ok == false.
func (d Dimensions) ChunkCoordAt(x, z float64) (ChunkCoord, bool) {
	if math.IsNaN(x) || math.IsNaN(z) {
		return ChunkCoord{}, false
	}
	if x < 0 || z < 0 || x > d.Width() || z > d.Depth() {
		return ChunkCoord{}, false
	}
	cell := vec.Vec2{X: vec.FloorDiv(x, d.ChunkWidth()), Y: vec.FloorDiv(z, d.ChunkDepth())}
	cell = cell.Clamp(vec.Vec2{}, vec.Vec2{X: d.ChunksX - 1, Y: d.ChunksZ - 1})
	return coordFromVec(cell), true
}

// ClampedCoordAt возвращает ближайший к точке чанк сетки
func (d Dimensions) ClampedCoordAt(x, z float64) ChunkCoord {
	cell := vec.Vec2{X: vec.FloorDiv(x, d.ChunkWidth()), Y: vec.FloorDiv(z, d.ChunkDepth())}
	return coordFromVec(cell.Clamp(vec.Vec2{}, vec.Vec2{X: d.ChunksX - 1, Y: d.ChunksZ - 1}))
}

// ChunkOrigin возвращает мировые координаты угла чанка с минимальными x, z
func (d Dimensions) ChunkOrigin(c ChunkCoord) (float64, float64) {
	return float64(c.Col*d.Cols) * d.CellSize, float64(c.Row*d.Rows) * d.CellSize
}

// ChunkBBox возвращает AABB чанка по его площади и фиксированному диапазону высот
func (d Dimensions) ChunkBBox(c ChunkCoord) physics.AABB {
	x0, z0 := d.ChunkOrigin(c)
	x1, z1 := float64((c.Col+1)*d.Cols)*d.CellSize, float64((c.Row+1)*d.Rows)*d.CellSize
	return physics.AABB{
		Min: mgl64.Vec3{x0, d.MinHeight, z0},
		Max: mgl64.Vec3{x1, d.MaxHeight, z1},
	}
}

// WorldBBox возвращает AABB всего мира
func (d Dimensions) WorldBBox() physics.AABB {
	return physics.AABB{
		Min: mgl64.Vec3{0, d.MinHeight, 0},
		Max: mgl64.Vec3{d.Width(), d.MaxHeight, d.Depth()},
	}
}

package physics

import (
	"github.com/annel0/biome-terrain/internal/vec"
)

// Footprint — круглое основание объекта на плоскости XZ
type Footprint struct {
	Center vec.Vec2Float
	Radius float64
}

// Overlaps проверяет, что центры ближе суммы радиусов
func (f Footprint) Overlaps(o Footprint) bool {
	return f.Center.DistanceTo(o.Center) < f.Radius+o.Radius
}

// TooClose проверяет нарушение минимальной дистанции между центрами
func TooClose(a, b vec.Vec2Float, minDist float64) bool {
	return a.DistanceTo(b) < minDist
}

// Inside проверяет, что центр основания лежит в прямоугольнике [min, max]
func (f Footprint) Inside(min, max vec.Vec2Float) bool {
	return f.Center.Within(min, max)
}

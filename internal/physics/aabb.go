// Package physics содержит геометрические примитивы для отсечения и пикинга.
package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// AABB — ограничивающий параллелепипед, выровненный по осям
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// NewAABB создаёт AABB, упорядочивая углы покомпонентно
func NewAABB(a, b mgl64.Vec3) AABB {
	var box AABB
	for i := 0; i < 3; i++ {
		if a[i] <= b[i] {
			box.Min[i], box.Max[i] = a[i], b[i]
		} else {
			box.Min[i], box.Max[i] = b[i], a[i]
		}
	}
	return box
}

// Contains проверяет попадание точки (границы включительно)
func (b AABB) Contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// ContainsXZ проверяет попадание проекции точки на плоскость XZ
func (b AABB) ContainsXZ(x, z float64) bool {
	return x >= b.Min.X() && x <= b.Max.X() && z >= b.Min.Z() && z <= b.Max.Z()
}

// Intersects проверяет пересечение двух AABB
func (b AABB) Intersects(o AABB) bool {
	for i := 0; i < 3; i++ {
		if b.Max[i] < o.Min[i] || b.Min[i] > o.Max[i] {
			return false
		}
	}
	return true
}

// Center возвращает центр параллелепипеда
func (b AABB) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size возвращает размеры по осям
func (b AABB) Size() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

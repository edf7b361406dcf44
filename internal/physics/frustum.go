package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Plane — плоскость n·p + d = 0, нормаль смотрит внутрь объёма
type Plane struct {
	Normal mgl64.Vec3
	D      float64
}

// Distance возвращает знаковое расстояние от плоскости до точки
func (p Plane) Distance(v mgl64.Vec3) float64 {
	return p.Normal.Dot(v) + p.D
}

func planeFromRow(v mgl64.Vec4) Plane {
	n := mgl64.Vec3{v[0], v[1], v[2]}
	l := n.Len()
	if l == 0 {
		return Plane{Normal: n, D: v[3]}
	}
	return Plane{Normal: n.Mul(1 / l), D: v[3] / l}
}

// Frustum — шесть плоскостей пирамиды видимости
type Frustum struct {
	Planes [6]Plane
}

// NewFrustum извлекает плоскости из матрицы view-projection (метод Gribb/Hartmann)
func NewFrustum(viewProj mgl64.Mat4) *Frustum {
	r0, r1, r2, r3 := viewProj.Row(0), viewProj.Row(1), viewProj.Row(2), viewProj.Row(3)
	return &Frustum{Planes: [6]Plane{
		planeFromRow(r3.Add(r0)), // left
		planeFromRow(r3.Sub(r0)), // right
		planeFromRow(r3.Add(r1)), // bottom
		planeFromRow(r3.Sub(r1)), // top
		planeFromRow(r3.Add(r2)), // near
		planeFromRow(r3.Sub(r2)), // far
	}}
}

// NewPerspectiveFrustum строит пирамиду камеры, смотрящей из eye в center
func NewPerspectiveFrustum(eye, center mgl64.Vec3, fovY, aspect, near, far float64) *Frustum {
	proj := mgl64.Perspective(fovY, aspect, near, far)
	view := mgl64.LookAtV(eye, center, mgl64.Vec3{0, 1, 0})
	return NewFrustum(proj.Mul4(view))
}

// ContainsPoint проверяет попадание точки внутрь пирамиды
func (f *Frustum) ContainsPoint(p mgl64.Vec3) bool {
	for _, pl := range f.Planes {
		if pl.Distance(p) < 0 {
			return false
		}
	}
	return true
}

// IntersectsAABB проверяет пересечение с AABB по «положительной» вершине.
// Консервативен: может вернуть true для невидимого бокса у угла пирамиды.
func (f *Frustum) IntersectsAABB(b AABB) bool {
	for _, pl := range f.Planes {
		var p mgl64.Vec3
		for i := 0; i < 3; i++ {
			if pl.Normal[i] >= 0 {
				p[i] = b.Max[i]
			} else {
				p[i] = b.Min[i]
			}
		}
		if pl.Distance(p) < 0 {
			return false
		}
	}
	return true
}

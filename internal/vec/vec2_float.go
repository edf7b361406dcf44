package vec

import "math"

// Vec2Float представляет точку на плоскости XZ (Y хранит мировую Z)
type Vec2Float struct {
	X, Y float64
}

// XZ собирает планарную точку из мировых координат
func XZ(x, z float64) Vec2Float {
	return Vec2Float{X: x, Y: z}
}

// Add складывает два вектора
func (v Vec2Float) Add(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2Float) Sub(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X - other.X, Y: v.Y - other.Y}
}

// Lerp интерполирует между v и other
func (v Vec2Float) Lerp(other Vec2Float, t float64) Vec2Float {
	return Vec2Float{X: v.X + (other.X-v.X)*t, Y: v.Y + (other.Y-v.Y)*t}
}

// Within проверяет попадание в прямоугольник [min, max] включительно
func (v Vec2Float) Within(min, max Vec2Float) bool {
	return v.X >= min.X && v.X <= max.X && v.Y >= min.Y && v.Y <= max.Y
}

// Length возвращает длину вектора
func (v Vec2Float) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2Float) DistanceTo(other Vec2Float) float64 {
	return math.Hypot(v.X-other.X, v.Y-other.Y)
}

package vec

import "math"

// Vec2 представляет целочисленные координаты на сетке (X — столбец, Y — строка)
type Vec2 struct {
	X, Y int
}

// FloorDiv возвращает ⌊a/b⌋ с корректной обработкой отрицательных значений
func FloorDiv(a, b float64) int {
	return int(math.Floor(a / b))
}

// CellOf возвращает ячейку сетки с шагом size, содержащую точку (x, z)
func CellOf(x, z, size float64) Vec2 {
	return Vec2{X: FloorDiv(x, size), Y: FloorDiv(z, size)}
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// ChebyshevTo возвращает расстояние Чебышёва (размер квадратного окна)
func (v Vec2) ChebyshevTo(other Vec2) int {
	dx := v.X - other.X
	if dx < 0 {
		dx = -dx
	}
	dy := v.Y - other.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// Clamp ограничивает координаты прямоугольником [min, max]
func (v Vec2) Clamp(min, max Vec2) Vec2 {
	return Vec2{X: clampInt(v.X, min.X, max.X), Y: clampInt(v.Y, min.Y, max.Y)}
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

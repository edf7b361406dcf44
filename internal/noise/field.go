// Package noise содержит детерминированные скалярные поля для генерации рельефа.
package noise

import (
	"fmt"
	"math"
)

// Backend определяет реализацию шума
type Backend string

const (
	BackendPerlin  Backend = "perlin"
	BackendSimplex Backend = "simplex"
)

// Field — детерминированное псевдослучайное скалярное поле со значениями в [-1, 1].
// Частота задаётся на каждый вызов: поле семплируется в точке (x*freq, y*freq).
type Field interface {
	Sample2D(x, y, freq float64) float64
	Sample3D(x, y, z, freq float64) float64
}

// NewField создаёт поле указанного типа с заданным сидом
func NewField(backend Backend, seed int64) (Field, error) {
	switch backend {
	case BackendPerlin, "":
		return NewPerlinField(seed), nil
	case BackendSimplex:
		return NewSimplexField(seed), nil
	default:
		return nil, fmt.Errorf("неизвестный тип шума: %q", backend)
	}
}

// ridged складывает значение шума вокруг нуля, получая острые гребни
type ridged struct {
	src Field
}

// Ridged возвращает поле 1-|s|. Диапазон [0, 1] остаётся внутри [-1, 1].
func Ridged(src Field) Field {
	return ridged{src: src}
}

func (r ridged) Sample2D(x, y, freq float64) float64 {
	return 1 - math.Abs(r.src.Sample2D(x, y, freq))
}

func (r ridged) Sample3D(x, y, z, freq float64) float64 {
	return 1 - math.Abs(r.src.Sample3D(x, y, z, freq))
}

// clamp1 ограничивает значение диапазоном [-1, 1]
func clamp1(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

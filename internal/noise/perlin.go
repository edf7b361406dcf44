package noise

import (
	"github.com/aquilax/go-perlin"
)

const (
	perlinAlpha = 2.0 // Сглаживание шума
	perlinBeta  = 2.0 // Множитель частоты между октавами
)

// PerlinField — однооктавный шум Перлина. Сложение октав делает генератор биомов.
type PerlinField struct {
	seed int64
	p    *perlin.Perlin
}

// NewPerlinField создаёт поле Перлина с указанным сидом
func NewPerlinField(seed int64) *PerlinField {
	return &PerlinField{
		seed: seed,
		p:    perlin.NewPerlin(perlinAlpha, perlinBeta, 1, seed),
	}
}

// Seed возвращает сид поля
func (f *PerlinField) Seed() int64 {
	return f.seed
}

// Sample2D возвращает значение шума в точке (x*freq, y*freq)
func (f *PerlinField) Sample2D(x, y, freq float64) float64 {
	return clamp1(f.p.Noise2D(x*freq, y*freq))
}

// Sample3D возвращает значение трёхмерного шума
func (f *PerlinField) Sample3D(x, y, z, freq float64) float64 {
	return clamp1(f.p.Noise3D(x*freq, y*freq, z*freq))
}

package noise

import (
	"github.com/ojrac/opensimplex-go"
)

// SimplexField — шум OpenSimplex, значения строго в [-1, 1]
type SimplexField struct {
	seed int64
	n    opensimplex.Noise
}

// NewSimplexField создаёт поле OpenSimplex с указанным сидом
func NewSimplexField(seed int64) *SimplexField {
	return &SimplexField{
		seed: seed,
		n:    opensimplex.New(seed),
	}
}

// Seed возвращает сид поля
func (f *SimplexField) Seed() int64 {
	return f.seed
}

func (f *SimplexField) Sample2D(x, y, freq float64) float64 {
	return clamp1(f.n.Eval2(x*freq, y*freq))
}

func (f *SimplexField) Sample3D(x, y, z, freq float64) float64 {
	return clamp1(f.n.Eval3(x*freq, y*freq, z*freq))
}

package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends() []Backend {
	return []Backend{BackendPerlin, BackendSimplex}
}

func TestFieldDeterminism(t *testing.T) {
	for _, backend := range backends() {
		t.Run(string(backend), func(t *testing.T) {
			a, err := NewField(backend, 1337)
			require.NoError(t, err)
			b, err := NewField(backend, 1337)
			require.NoError(t, err)

			for i := 0; i < 200; i++ {
				x := float64(i)*3.7 - 100
				y := float64(i)*1.3 + 42
				assert.Equal(t, a.Sample2D(x, y, 0.013), b.Sample2D(x, y, 0.013), "Одинаковый сид должен давать одинаковый шум")
				assert.Equal(t, a.Sample3D(x, y, 7, 0.02), b.Sample3D(x, y, 7, 0.02))
			}
		})
	}
}

func TestFieldRange(t *testing.T) {
	for _, backend := range backends() {
		f, err := NewField(backend, 99)
		require.NoError(t, err)
		for i := 0; i < 1000; i++ {
			v := f.Sample2D(float64(i)*0.77, float64(i%37)*1.91, 0.05)
			assert.GreaterOrEqual(t, v, -1.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestFieldSeedsDiffer(t *testing.T) {
	a := NewSimplexField(1)
	b := NewSimplexField(2)

	same := 0
	for i := 0; i < 50; i++ {
		x, y := float64(i)*5.3, float64(i)*2.1
		if a.Sample2D(x, y, 0.1) == b.Sample2D(x, y, 0.1) {
			same++
		}
	}
	assert.Less(t, same, 50, "Разные сиды должны давать разный шум")
}

func TestRidged(t *testing.T) {
	base := NewSimplexField(7)
	r := Ridged(base)

	for i := 0; i < 300; i++ {
		x, y := float64(i)*1.7, float64(i)*0.9
		raw := base.Sample2D(x, y, 0.03)
		v := r.Sample2D(x, y, 0.03)
		assert.InDelta(t, 1-abs(raw), v, 1e-12)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestUnknownBackend(t *testing.T) {
	_, err := NewField("value", 1)
	assert.Error(t, err)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

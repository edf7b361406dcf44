package biome

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/biome-terrain/internal/noise"
)

func newTestGenerator(t *testing.T, kind Kind, backend noise.Backend) *Generator {
	t.Helper()
	b, err := New(kind)
	require.NoError(t, err)
	g, err := NewGenerator(b, GeneratorConfig{Seed: 42, Backend: backend, MinHeight: -4, MaxHeight: 24})
	require.NoError(t, err)
	return g
}

func TestSubBiomePartition(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			b, err := New(kind)
			require.NoError(t, err)
			gaps := b.SubBiomes().Validate()
			assert.Empty(t, gaps, "Таблица суб-биомов не должна иметь пробелов")
		})
	}
}

func TestSubBiomeFirstMatchWins(t *testing.T) {
	a := sub("a", 0, 0.5, 0, top, 0, 0)
	b := sub("b", 0, top, 0, top, 0, 0)
	table := NewTable(b, b, a)

	sb, ok := table.Find(0.2, 0.2)
	require.True(t, ok)
	assert.Equal(t, "a", sb.Name, "Записи сортируются по возрастанию границ, первая совпавшая выигрывает")

	sb, ok = table.Find(0.9, 0.2)
	require.True(t, ok)
	assert.Equal(t, "b", sb.Name)
}

func TestGetSubBiomeFallback(t *testing.T) {
	b := &temperate{base{
		kind:     Temperate,
		seaLevel: 0.3,
		table:    NewTable(sub("fallback", 0, 0, 0, 0, 0, 0), sub("low", 0, 0.5, 0, top, 0, 0)),
	}}
	g, err := NewGenerator(b, GeneratorConfig{Seed: 1, MinHeight: 0, MaxHeight: 1})
	require.NoError(t, err)

	assert.Equal(t, "low", g.GetSubBiome(0.1, 0.1).Name)
	assert.Equal(t, "fallback", g.GetSubBiome(0.9, 0.1).Name, "Без совпадения возвращается суб-биом по умолчанию")

	g.strict = true
	assert.Panics(t, func() { g.GetSubBiome(0.9, 0.1) }, "Строгий режим должен падать на пробеле таблицы")
}

func TestElevationDeterminism(t *testing.T) {
	for _, backend := range []noise.Backend{noise.BackendPerlin, noise.BackendSimplex} {
		a := newTestGenerator(t, Temperate, backend)
		b := newTestGenerator(t, Temperate, backend)

		for i := 0; i < 100; i++ {
			x := float64(i) * 7.3
			z := float64(i) * 3.1
			e := a.ComputeElevationAt(x, z)
			assert.Equal(t, e, a.ComputeElevationAt(x, z), "Повторный вызов должен давать тот же результат")
			assert.Equal(t, e, b.ComputeElevationAt(x, z), "Новый генератор с тем же сидом должен совпадать")
			assert.Equal(t, a.ComputeMoistureAt(x, z), b.ComputeMoistureAt(x, z))
		}
	}
}

func TestElevationRoundedAndClamped(t *testing.T) {
	for _, kind := range Kinds() {
		g := newTestGenerator(t, kind, noise.BackendSimplex)
		for i := 0; i < 200; i++ {
			x, z := float64(i)*11.7, float64(i%13)*29.3
			for _, v := range []float64{g.ComputeElevationAt(x, z), g.ComputeMoistureAt(x, z)} {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
				assert.Equal(t, math.Round(v*100)/100, v, "Значение должно быть округлено до двух знаков")
			}
		}
	}
}

func TestHeightMonotonic(t *testing.T) {
	for _, kind := range Kinds() {
		g := newTestGenerator(t, kind, noise.BackendPerlin)
		prev := g.HeightFromElevation(0)
		assert.Equal(t, -4.0, prev)
		for i := 1; i <= 100; i++ {
			h := g.HeightFromElevation(float64(i) / 100)
			assert.GreaterOrEqual(t, h, prev, "Большее e не может давать меньшую высоту (%s)", kind)
			prev = h
		}
		assert.InDelta(t, 24.0, prev, 1e-9)
	}
}

func TestWaterQueries(t *testing.T) {
	g := newTestGenerator(t, Ocean, noise.BackendSimplex)
	w := g.GetBiome().Water()
	require.True(t, w.Enabled)

	sea := g.SeaLevelHeight()
	for i := 0; i < 50; i++ {
		x, z := float64(i)*3.3, float64(i)*5.1
		h := g.ComputeWaterHeightAt(x, z)
		assert.InDelta(t, sea, h, w.DistortionAmp+1e-9, "Вода отклоняется от уровня моря не больше амплитуды волн")
		m := g.ComputeWaterMoistureAt(x, z)
		assert.GreaterOrEqual(t, m, 0.0)
		assert.LessOrEqual(t, m, 1.0)
	}

	assert.Equal(t, w.Shallow, g.GetWaterColor(0))
	assert.Equal(t, w.Deep, g.GetWaterColor(1))
}

func TestTundraNeverUnderwater(t *testing.T) {
	g := newTestGenerator(t, Tundra, noise.BackendPerlin)
	for i := 0; i < 50; i++ {
		assert.False(t, g.IsUnderwater(float64(i)*9, float64(i)*4))
	}
}

func TestChooseWeighted(t *testing.T) {
	sb := sub("mix", 0, top, 0, top, 0, 1, spawn("oak", 1), spawn("pine", 3))

	o, ok := sb.Choose(0.1, nil)
	require.True(t, ok)
	assert.Equal(t, "oak", o.ID)

	o, ok = sb.Choose(0.5, nil)
	require.True(t, ok)
	assert.Equal(t, "pine", o.ID)

	o, ok = sb.Choose(0.1, func(o Organism) bool { return o.ID != "oak" })
	require.True(t, ok)
	assert.Equal(t, "pine", o.ID, "Отфильтрованные организмы не участвуют в жребии")

	_, ok = sb.Choose(0.1, func(Organism) bool { return false })
	assert.False(t, ok)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Desert")
	require.NoError(t, err)
	assert.Equal(t, Desert, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, Temperate, k)

	_, err = Lookup("swamp")
	assert.Error(t, err)
}

func TestOrganismCatalog(t *testing.T) {
	kelp, ok := LookupOrganism("kelp")
	require.True(t, ok)
	assert.True(t, kelp.Aquatic())

	oak, ok := LookupOrganism("oak")
	require.True(t, ok)
	assert.False(t, oak.Aquatic())

	for _, o := range Organisms() {
		assert.LessOrEqual(t, o.ScaleMin, o.ScaleMax, o.ID)
	}
}

func TestColorHex(t *testing.T) {
	c := Hex(0xff8000)
	assert.Equal(t, "#ff8000", c.String())
	assert.Equal(t, c, c.Lerp(Hex(0), 0))
}

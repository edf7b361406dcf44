package biome

import (
	"fmt"
	"math"
	"sync"

	"github.com/annel0/biome-terrain/internal/logging"
	"github.com/annel0/biome-terrain/internal/noise"
)

// GeneratorConfig параметры генератора рельефа
type GeneratorConfig struct {
	Seed      int64
	Backend   noise.Backend
	MinHeight float64
	MaxHeight float64
	// Strict включает панику при отсутствии суб-биома (режим отладки)
	Strict bool
}

// Generator вычисляет высоту, влажность и классификацию для активного биома
type Generator struct {
	biome     Biome
	src       Sources
	seed      int64
	minHeight float64
	maxHeight float64
	strict    bool

	gapMu  sync.Mutex
	gapLog map[Gap]struct{}
}

// NewGenerator создаёт генератор с полями шума, производными от сида
func NewGenerator(b Biome, cfg GeneratorConfig) (*Generator, error) {
	if b == nil {
		return nil, fmt.Errorf("биом не задан")
	}
	if cfg.MaxHeight <= cfg.MinHeight {
		return nil, fmt.Errorf("некорректный диапазон высот [%v, %v]", cfg.MinHeight, cfg.MaxHeight)
	}

	elevation, err := noise.NewField(cfg.Backend, cfg.Seed)
	if err != nil {
		return nil, err
	}
	moisture, err := noise.NewField(cfg.Backend, cfg.Seed+1)
	if err != nil {
		return nil, err
	}
	water, err := noise.NewField(cfg.Backend, cfg.Seed+2)
	if err != nil {
		return nil, err
	}

	return &Generator{
		biome:     b,
		src:       Sources{Elevation: elevation, Moisture: moisture, Water: water},
		seed:      cfg.Seed,
		minHeight: cfg.MinHeight,
		maxHeight: cfg.MaxHeight,
		strict:    cfg.Strict,
		gapLog:    make(map[Gap]struct{}),
	}, nil
}

// Seed возвращает сид мира
func (g *Generator) Seed() int64 {
	return g.seed
}

// GetBiome возвращает активный биом
func (g *Generator) GetBiome() Biome {
	return g.biome
}

// HeightRange возвращает фиксированный вертикальный диапазон мира
func (g *Generator) HeightRange() (float64, float64) {
	return g.minHeight, g.maxHeight
}

// ComputeElevationAt возвращает высоту e ∈ [0, 1], округлённую до 0.01
func (g *Generator) ComputeElevationAt(x, z float64) float64 {
	return Round2(clamp01(g.biome.Elevation(g.src, x, z)))
}

// ComputeMoistureAt возвращает влажность m ∈ [0, 1], округлённую до 0.01
func (g *Generator) ComputeMoistureAt(x, z float64) float64 {
	return Round2(clamp01(g.biome.Moisture(g.src, x, z)))
}

// HeightFromElevation переводит e в мировую высоту. Функция монотонна по e.
func (g *Generator) HeightFromElevation(e float64) float64 {
	curve := g.biome.HeightCurve()
	if curve <= 0 {
		curve = 1
	}
	return g.minHeight + math.Pow(clamp01(e), curve)*(g.maxHeight-g.minHeight)
}

// ComputeHeightAt возвращает мировую высоту поверхности в точке
func (g *Generator) ComputeHeightAt(x, z float64) float64 {
	return g.HeightFromElevation(g.ComputeElevationAt(x, z))
}

// SeaLevelHeight возвращает мировую высоту уровня моря
func (g *Generator) SeaLevelHeight() float64 {
	return g.HeightFromElevation(g.biome.SeaLevel())
}

// HasWater сообщает, есть ли у активного биома вода
func (g *Generator) HasWater() bool {
	return g.biome.Water().Enabled
}

// IsUnderwater сообщает, лежит ли точка ниже уровня моря
func (g *Generator) IsUnderwater(x, z float64) bool {
	if !g.HasWater() {
		return false
	}
	return g.ComputeElevationAt(x, z) < g.biome.SeaLevel()
}

// ComputeWaterHeightAt возвращает высоту водной поверхности с учётом волн
func (g *Generator) ComputeWaterHeightAt(x, z float64) float64 {
	w := g.biome.Water()
	return g.SeaLevelHeight() + w.DistortionAmp*g.src.Water.Sample2D(x, z, w.DistortionFreq)
}

// ComputeWaterMoistureAt возвращает параметр цвета воды ∈ [0, 1]
func (g *Generator) ComputeWaterMoistureAt(x, z float64) float64 {
	w := g.biome.Water()
	return Round2(clamp01((g.src.Water.Sample2D(x, z, w.ColorFreq) + 1) / 2))
}

// GetWaterColor возвращает цвет воды между мелководьем и глубиной
func (g *Generator) GetWaterColor(m float64) Color {
	w := g.biome.Water()
	return w.Shallow.Lerp(w.Deep, m)
}

// GetSubBiome классифицирует пару (e, m). Пробел в таблице — ошибка конфигурации:
// в строгом режиме паника, иначе суб-биом по умолчанию.
func (g *Generator) GetSubBiome(e, m float64) SubBiome {
	table := g.biome.SubBiomes()
	if sb, ok := table.Find(e, m); ok {
		return sb
	}

	if g.strict {
		panic(fmt.Sprintf("biome %s: нет суб-биома для e=%.2f m=%.2f", g.biome.Name(), e, m))
	}

	key := Gap{E: e, M: m}
	g.gapMu.Lock()
	_, seen := g.gapLog[key]
	if !seen {
		g.gapLog[key] = struct{}{}
	}
	g.gapMu.Unlock()
	if !seen {
		logging.Error("❌ Биом %s: нет суб-биома для e=%.2f m=%.2f, используем %s",
			g.biome.Name(), e, m, table.Default().Name)
	}
	return table.Default()
}

// SubBiomeAt классифицирует точку мира
func (g *Generator) SubBiomeAt(x, z float64) SubBiome {
	return g.GetSubBiome(g.ComputeElevationAt(x, z), g.ComputeMoistureAt(x, z))
}

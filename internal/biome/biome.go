// Package biome описывает климатические режимы мира и классификацию рельефа.
//
// Каждый биом задаёт свои формулы высоты и влажности, параметры воды и таблицу
// суб-биомов. Добавление биома сводится к новому значению Kind и одному
// конструктору; логика чанков и ландшафта от конкретного биома не зависит.
package biome

import (
	"fmt"
	"math"

	"github.com/annel0/biome-terrain/internal/noise"
)

// Sources — поля шума, из которых биом строит свои функции
type Sources struct {
	Elevation noise.Field
	Moisture  noise.Field
	Water     noise.Field
}

// Octave — одна октава фрактальной суммы
type Octave struct {
	Freq   float64
	Amp    float64
	Ridged bool
}

// Profile — набор октав с кривой и смещением
type Profile struct {
	Octaves []Octave
	Power   float64
	Offset  float64
}

// Eval суммирует октавы, нормирует на сумму амплитуд и применяет кривую.
// Результат не округлён и может выходить за [0, 1].
func (p Profile) Eval(f noise.Field, x, z float64) float64 {
	var sum, amps float64
	ridged := noise.Ridged(f)
	for _, o := range p.Octaves {
		var s float64
		if o.Ridged {
			s = 2*ridged.Sample2D(x, z, o.Freq) - 1
		} else {
			s = f.Sample2D(x, z, o.Freq)
		}
		sum += o.Amp * s
		amps += o.Amp
	}
	v := 0.5
	if amps > 0 {
		v = (sum/amps + 1) / 2
	}
	power := p.Power
	if power <= 0 {
		power = 1
	}
	return math.Pow(clamp01(v), power) + p.Offset
}

// Water — параметры водной поверхности биома
type Water struct {
	Enabled        bool
	DistortionAmp  float64 // амплитуда волн в мировых единицах
	DistortionFreq float64
	ColorFreq      float64 // частота шума влажности воды
	Shallow        Color
	Deep           Color
}

// Biome — стратегия одного климатического режима
type Biome interface {
	Kind() Kind
	Name() string
	// Elevation возвращает сырую высоту до ограничения и округления
	Elevation(src Sources, x, z float64) float64
	// Moisture возвращает сырую влажность до ограничения и округления
	Moisture(src Sources, x, z float64) float64
	Water() Water
	// SeaLevel — порог высоты e, ниже которого точка под водой
	SeaLevel() float64
	// HeightCurve — показатель степени при переводе e в мировую высоту
	HeightCurve() float64
	SubBiomes() *Table
}

// base содержит общие для всех биомов данные
type base struct {
	kind        Kind
	elevation   Profile
	moisture    Profile
	water       Water
	seaLevel    float64
	heightCurve float64
	table       *Table
}

func (b *base) Kind() Kind           { return b.kind }
func (b *base) Name() string         { return b.kind.String() }
func (b *base) Water() Water         { return b.water }
func (b *base) SeaLevel() float64    { return b.seaLevel }
func (b *base) HeightCurve() float64 { return b.heightCurve }
func (b *base) SubBiomes() *Table    { return b.table }

func (b *base) Elevation(src Sources, x, z float64) float64 {
	return b.elevation.Eval(src.Elevation, x, z)
}

func (b *base) Moisture(src Sources, x, z float64) float64 {
	return b.moisture.Eval(src.Moisture, x, z)
}

// New создаёт биом указанного типа
func New(kind Kind) (Biome, error) {
	switch kind {
	case Temperate:
		return newTemperate(), nil
	case Desert:
		return newDesert(), nil
	case Ocean:
		return newOcean(), nil
	case Highland:
		return newHighland(), nil
	case Tundra:
		return newTundra(), nil
	default:
		return nil, fmt.Errorf("биом %s не поддерживается", kind)
	}
}

// Lookup создаёт биом по имени из конфигурации
func Lookup(name string) (Biome, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return New(kind)
}

// sub — короткая запись суб-биома для таблиц
func sub(name string, minE, maxE, minM, maxM float64, color uint32, density float64, spawns ...Spawn) SubBiome {
	return SubBiome{
		Name:    name,
		MinE:    minE,
		MaxE:    maxE,
		MinM:    minM,
		MaxM:    maxM,
		Color:   Hex(color),
		Density: density,
		Spawns:  spawns,
	}
}

func spawn(id string, weight float64) Spawn {
	return Spawn{Organism: mustOrganism(id), Weight: weight}
}

// top — верхняя граница таблиц; больше 1, чтобы значение 1.0 попадало в диапазон
const top = 1.01

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Round2 округляет значение до двух знаков после запятой
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package biome

import (
	"fmt"
	"sort"
)

// Organism описывает тип размещаемого объекта и правила его размещения
type Organism struct {
	ID            string  `json:"id"`
	MinSeparation float64 `json:"min_separation"` // минимальное расстояние до соседей
	MaxSlope      float64 `json:"max_slope"`      // максимальный уклон поверхности (dy/dxz)
	Underwater    bool    `json:"underwater"`     // растёт только ниже уровня моря
	Floats        bool    `json:"floats"`         // держится на поверхности воды
	ScaleMin      float64 `json:"scale_min"`
	ScaleMax      float64 `json:"scale_max"`
	Special       bool    `json:"special"` // сюжетный объект, не участвует в рассеивании
}

// Aquatic сообщает, требует ли организм воды под собой
func (o Organism) Aquatic() bool {
	return o.Underwater || o.Floats
}

var organisms = map[string]Organism{}

func register(o Organism) {
	if o.ScaleMin == 0 {
		o.ScaleMin = 1
	}
	if o.ScaleMax < o.ScaleMin {
		o.ScaleMax = o.ScaleMin
	}
	organisms[o.ID] = o
}

func init() {
	register(Organism{ID: "pine", MinSeparation: 2.5, MaxSlope: 1.0, ScaleMin: 0.8, ScaleMax: 1.3})
	register(Organism{ID: "snow_pine", MinSeparation: 2.5, MaxSlope: 1.1, ScaleMin: 0.7, ScaleMax: 1.2})
	register(Organism{ID: "oak", MinSeparation: 3.0, MaxSlope: 0.8, ScaleMin: 0.9, ScaleMax: 1.4})
	register(Organism{ID: "birch", MinSeparation: 2.2, MaxSlope: 0.9, ScaleMin: 0.8, ScaleMax: 1.2})
	register(Organism{ID: "palm", MinSeparation: 2.5, MaxSlope: 0.6, ScaleMin: 0.9, ScaleMax: 1.3})
	register(Organism{ID: "bush", MinSeparation: 1.2, MaxSlope: 1.2, ScaleMin: 0.6, ScaleMax: 1.1})
	register(Organism{ID: "grass_tuft", MinSeparation: 0.6, MaxSlope: 1.5, ScaleMin: 0.5, ScaleMax: 1.0})
	register(Organism{ID: "flower", MinSeparation: 0.5, MaxSlope: 1.2, ScaleMin: 0.6, ScaleMax: 1.0})
	register(Organism{ID: "reed", MinSeparation: 0.6, MaxSlope: 0.8, ScaleMin: 0.8, ScaleMax: 1.2})
	register(Organism{ID: "cactus", MinSeparation: 2.0, MaxSlope: 0.8, ScaleMin: 0.7, ScaleMax: 1.3})
	register(Organism{ID: "dry_shrub", MinSeparation: 1.0, MaxSlope: 1.2, ScaleMin: 0.5, ScaleMax: 1.0})
	register(Organism{ID: "lichen", MinSeparation: 0.5, MaxSlope: 2.5, ScaleMin: 0.5, ScaleMax: 0.9})
	register(Organism{ID: "rock", MinSeparation: 1.0, MaxSlope: 2.0, ScaleMin: 0.5, ScaleMax: 1.5})
	register(Organism{ID: "boulder", MinSeparation: 2.0, MaxSlope: 1.5, ScaleMin: 1.0, ScaleMax: 2.0})
	register(Organism{ID: "kelp", MinSeparation: 1.0, MaxSlope: 2.0, Underwater: true, ScaleMin: 0.8, ScaleMax: 1.5})
	register(Organism{ID: "coral", MinSeparation: 1.2, MaxSlope: 2.0, Underwater: true, ScaleMin: 0.6, ScaleMax: 1.2})
	register(Organism{ID: "lily_pad", MinSeparation: 0.8, Floats: true, ScaleMin: 0.7, ScaleMax: 1.1})
	register(Organism{ID: "driftwood", MinSeparation: 1.5, Floats: true, ScaleMin: 0.8, ScaleMax: 1.2})

	register(Organism{ID: "monolith", MinSeparation: 6.0, MaxSlope: 0.5, Special: true})
	register(Organism{ID: "shrine", MinSeparation: 5.0, MaxSlope: 0.4, Special: true})
}

// LookupOrganism возвращает организм по идентификатору
func LookupOrganism(id string) (Organism, bool) {
	o, ok := organisms[id]
	return o, ok
}

// Organisms возвращает каталог, отсортированный по ID
func Organisms() []Organism {
	out := make([]Organism, 0, len(organisms))
	for _, o := range organisms {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func mustOrganism(id string) Organism {
	o, ok := organisms[id]
	if !ok {
		panic(fmt.Sprintf("biome: организм %q не зарегистрирован", id))
	}
	return o
}

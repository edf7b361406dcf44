package biome

import "sort"

// Spawn — строка взвешенной таблицы организмов суб-биома
type Spawn struct {
	Organism Organism
	Weight   float64
}

// SubBiome — локальная классификация пары (высота, влажность)
type SubBiome struct {
	Name    string
	MinE    float64 // включительно
	MaxE    float64 // исключительно
	MinM    float64
	MaxM    float64
	Color   Color
	Density float64 // вероятность появления объекта в точке рассеивания
	Spawns  []Spawn
}

// Contains проверяет попадание пары в диапазоны [MinE, MaxE) x [MinM, MaxM)
func (s SubBiome) Contains(e, m float64) bool {
	return e >= s.MinE && e < s.MaxE && m >= s.MinM && m < s.MaxM
}

// Choose выбирает организм взвешенным жребием r ∈ [0, 1).
// allow отсекает неподходящие организмы; nil разрешает все.
func (s SubBiome) Choose(r float64, allow func(Organism) bool) (Organism, bool) {
	total := 0.0
	for _, sp := range s.Spawns {
		if sp.Weight > 0 && (allow == nil || allow(sp.Organism)) {
			total += sp.Weight
		}
	}
	if total <= 0 {
		return Organism{}, false
	}

	target := r * total
	acc := 0.0
	var last Organism
	for _, sp := range s.Spawns {
		if sp.Weight <= 0 || (allow != nil && !allow(sp.Organism)) {
			continue
		}
		acc += sp.Weight
		last = sp.Organism
		if target < acc {
			return sp.Organism, true
		}
	}
	// r == 1 или ошибка округления
	return last, true
}

// Table — таблица суб-биомов с поиском первого совпадения
type Table struct {
	entries  []SubBiome
	fallback SubBiome
}

// NewTable упорядочивает записи по возрастанию границ (MinE, затем MinM)
func NewTable(fallback SubBiome, entries ...SubBiome) *Table {
	sorted := make([]SubBiome, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].MinE != sorted[j].MinE {
			return sorted[i].MinE < sorted[j].MinE
		}
		return sorted[i].MinM < sorted[j].MinM
	})
	return &Table{entries: sorted, fallback: fallback}
}

// Find возвращает первый суб-биом, содержащий (e, m)
func (t *Table) Find(e, m float64) (SubBiome, bool) {
	for _, sb := range t.entries {
		if sb.Contains(e, m) {
			return sb, true
		}
	}
	return SubBiome{}, false
}

// Default возвращает суб-биом по умолчанию
func (t *Table) Default() SubBiome {
	return t.fallback
}

// Entries возвращает копию записей таблицы
func (t *Table) Entries() []SubBiome {
	out := make([]SubBiome, len(t.entries))
	copy(out, t.entries)
	return out
}

// Gap — точка домена без суб-биома
type Gap struct {
	E, M float64
}

// Validate обходит [0,1]² с шагом 0.01 и возвращает все непокрытые точки
func (t *Table) Validate() []Gap {
	var gaps []Gap
	for i := 0; i <= 100; i++ {
		for j := 0; j <= 100; j++ {
			e := float64(i) / 100
			m := float64(j) / 100
			if _, ok := t.Find(e, m); !ok {
				gaps = append(gaps, Gap{E: e, M: m})
			}
		}
	}
	return gaps
}

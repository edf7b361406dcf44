package world

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/biome-terrain/internal/biome"
	"github.com/annel0/biome-terrain/internal/logging"
	"github.com/annel0/biome-terrain/internal/vec"
)

// SpecialSpec описывает группу сюжетных объектов
type SpecialSpec struct {
	Organism string `json:"organism" yaml:"organism" toml:"organism"`
	Count    int    `json:"count" yaml:"count" toml:"count"`
	// Область поиска; нулевая область — весь мир
	Min vec.Vec2Float `json:"min" yaml:"min" toml:"min"`
	Max vec.Vec2Float `json:"max" yaml:"max" toml:"max"`
	// Полосы высоты и влажности; MaxE/MaxM == 0 означает 1
	MinE            float64 `json:"min_e" yaml:"min_e" toml:"min_e"`
	MaxE            float64 `json:"max_e" yaml:"max_e" toml:"max_e"`
	MinM            float64 `json:"min_m" yaml:"min_m" toml:"min_m"`
	MaxM            float64 `json:"max_m" yaml:"max_m" toml:"max_m"`
	AllowUnderwater bool    `json:"allow_underwater" yaml:"allow_underwater" toml:"allow_underwater"`
}

// PlaceSpecialObjects расставляет сюжетные объекты выборкой с отклонением
func (t *Terrain) PlaceSpecialObjects(specs []SpecialSpec) []Placement {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.placeSpecialLocked(specs)
}

func (t *Terrain) placeSpecialLocked(specs []SpecialSpec) []Placement {
	r := rand.New(rand.NewSource(t.gen.Seed() ^ 0x5eed5eed))
	var placed []Placement

	for _, spec := range specs {
		o, ok := biome.LookupOrganism(spec.Organism)
		if !ok {
			logging.Warn("⚠️ Неизвестный особый объект %q", spec.Organism)
			continue
		}
		lo, hi := spec.Min, spec.Max
		if hi.X <= lo.X || hi.Y <= lo.Y {
			lo, hi = vec.XZ(0, 0), vec.XZ(t.dims.Width(), t.dims.Depth())
		}
		maxE, maxM := spec.MaxE, spec.MaxM
		if maxE == 0 {
			maxE = 1
		}
		if maxM == 0 {
			maxM = 1
		}

		for n := 0; n < spec.Count; n++ {
			p, iterations, ok := t.sampleSpecial(r, spec, o, lo, hi, maxE, maxM, placed)
			if !ok {
				logging.Warn("⚠️ Особый объект %s #%d не размещён за %d итераций", spec.Organism, n, iterations)
				continue
			}
			p.ID = fmt.Sprintf("special:%s:%d", spec.Organism, n)
			if !t.rememberLocked(p) {
				continue
			}
			if chunk, ok := t.grid.Get(p.Chunk); ok && chunk.State() == StatePopulated {
				chunk.PlaceObject(p, PlaceOptions{Save: true})
			}
			t.metrics.PlacementApplied(SourceSpecial)
			t.notifyLocked(p)
			placed = append(placed, p)
		}
	}
	return placed
}

func (t *Terrain) sampleSpecial(r *rand.Rand, spec SpecialSpec, o biome.Organism, lo, hi vec.Vec2Float, maxE, maxM float64, placed []Placement) (Placement, int, bool) {
	limit := t.tuning.SpecialIterationCap
	for i := 1; i <= limit; i++ {
		pt := lo.Add(vec.XZ(r.Float64()*(hi.X-lo.X), r.Float64()*(hi.Y-lo.Y)))
		e := t.gen.ComputeElevationAt(pt.X, pt.Y)
		m := t.gen.ComputeMoistureAt(pt.X, pt.Y)
		if e < spec.MinE || e > maxE || m < spec.MinM || m > maxM {
			continue
		}
		if !spec.AllowUnderwater && t.gen.IsUnderwater(pt.X, pt.Y) {
			continue
		}
		coord, ok := t.dims.ChunkCoordAt(pt.X, pt.Y)
		if !ok {
			continue
		}
		tooClose := false
		for _, other := range placed {
			if other.XZ().DistanceTo(pt) < o.MinSeparation {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}
		return Placement{
			Organism:   o.ID,
			Position:   mgl64.Vec3{pt.X, t.gen.HeightFromElevation(e), pt.Y},
			Scale:      1,
			Rotation:   r.Float64() * 2 * math.Pi,
			Source:     SourceSpecial,
			Persistent: true,
			Chunk:      coord,
		}, i, true
	}
	return Placement{}, limit, false
}

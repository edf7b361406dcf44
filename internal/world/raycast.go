package world

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/biome-terrain/internal/biome"
	"github.com/annel0/biome-terrain/internal/physics"
)

const bisectIterations = 24

// HeightfieldRaycaster пересекает лучи с рельефом и водой, маршируя по полю высот
type HeightfieldRaycaster struct {
	gen  *biome.Generator
	dims Dimensions
	step float64
}

// NewHeightfieldRaycaster создаёт рейкастер с шагом в четверть ячейки
func NewHeightfieldRaycaster(gen *biome.Generator, dims Dimensions) *HeightfieldRaycaster {
	return &HeightfieldRaycaster{gen: gen, dims: dims, step: dims.CellSize / 4}
}

// Intersect возвращает попадания по запрошенным поверхностям, ближние первыми
func (r *HeightfieldRaycaster) Intersect(ray physics.Ray, surfaces []Surface) []Hit {
	bounds := r.dims.WorldBBox()
	w := r.gen.GetBiome().Water()
	bounds.Min[1] -= w.DistortionAmp
	bounds.Max[1] += w.DistortionAmp

	t0, t1, ok := ray.IntersectAABB(bounds)
	if !ok {
		return nil
	}

	var hits []Hit
	for _, s := range surfaces {
		switch s {
		case SurfaceTerrain:
			if h, ok := r.terrain(ray, t0, t1); ok {
				hits = append(hits, h)
			}
		case SurfaceWater:
			if h, ok := r.water(ray); ok {
				hits = append(hits, h)
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}

func (r *HeightfieldRaycaster) above(p mgl64.Vec3) float64 {
	return p.Y() - r.gen.ComputeHeightAt(p.X(), p.Z())
}

func (r *HeightfieldRaycaster) terrain(ray physics.Ray, t0, t1 float64) (Hit, bool) {
	prevT := t0
	if r.above(ray.At(t0)) <= 0 {
		return Hit{Point: ray.At(t0), Distance: t0, Surface: SurfaceTerrain}, true
	}
	for t := t0 + r.step; t <= t1+r.step; t += r.step {
		tt := math.Min(t, t1)
		cur := r.above(ray.At(tt))
		if cur <= 0 {
			lo, hi := prevT, tt
			for i := 0; i < bisectIterations; i++ {
				mid := (lo + hi) / 2
				if r.above(ray.At(mid)) > 0 {
					lo = mid
				} else {
					hi = mid
				}
			}
			p := ray.At(hi)
			return Hit{Point: p, Distance: hi, Surface: SurfaceTerrain}, true
		}
		prevT = tt
		if tt >= t1 {
			break
		}
	}
	return Hit{}, false
}

func (r *HeightfieldRaycaster) water(ray physics.Ray) (Hit, bool) {
	if !r.gen.HasWater() || math.Abs(ray.Dir.Y()) < 1e-9 {
		return Hit{}, false
	}
	t := (r.gen.SeaLevelHeight() - ray.Origin.Y()) / ray.Dir.Y()
	if t < 0 {
		return Hit{}, false
	}
	p := ray.At(t)
	x, z := p.X(), p.Z()
	if x < 0 || z < 0 || x > r.dims.Width() || z > r.dims.Depth() {
		return Hit{}, false
	}
	if !r.gen.IsUnderwater(x, z) {
		return Hit{}, false
	}
	return Hit{Point: mgl64.Vec3{x, r.gen.ComputeWaterHeightAt(x, z), z}, Distance: t, Surface: SurfaceWater}, true
}

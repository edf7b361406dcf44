package world

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/biome-terrain/internal/logging"
	"github.com/annel0/biome-terrain/internal/physics"
)

// InteractionState — состояние машины предпросмотра и размещения
type InteractionState int

const (
	Idle InteractionState = iota
	Previewing
	Placing
)

// String возвращает имя состояния
func (s InteractionState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Previewing:
		return "previewing"
	case Placing:
		return "placing"
	default:
		return "unknown"
	}
}

// MarshalText позволяет отдавать состояние в JSON строкой
func (s InteractionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Preview — текущий кандидат под курсором
type Preview struct {
	// Candidate == nil означает «разместить нельзя»
	Candidate *Placement `json:"candidate,omitempty"`
	Point     mgl64.Vec3 `json:"point"`
	Surface   Surface    `json:"surface,omitempty"`
	SubBiome  string     `json:"sub_biome,omitempty"`
	Chunk     ChunkCoord `json:"chunk"`
	HasTarget bool       `json:"has_target"`
}

// Valid сообщает, можно ли зафиксировать кандидата
func (p Preview) Valid() bool {
	return p.HasTarget && p.Candidate != nil
}

func (p Preview) clone() Preview {
	if p.Candidate != nil {
		c := *p.Candidate
		p.Candidate = &c
	}
	return p
}

type interaction struct {
	state   InteractionState
	preview Preview
	ghost   *Renderable
}

const ghostNodeID = "preview:ghost"

// PointerMove обрабатывает движение указателя: луч пересекается с доступными
// поверхностями, ближайшее попадание задаёт чанк и суб-биом. Полный пересчёт
// ограничен частотой PreviewRateHz; между проверками призрак только следует за лучом.
func (t *Terrain) PointerMove(ray physics.Ray, now time.Time) Preview {
	t.mu.Lock()
	defer t.mu.Unlock()

	opts := t.options.Options()
	surfaces := []Surface{SurfaceTerrain}
	waterAllowed := t.gen.HasWater() && opts.WaterEffects
	if waterAllowed {
		surfaces = append(surfaces, SurfaceWater)
	}

	hit, ok := t.nearestHit(t.raycaster.Intersect(ray, surfaces), waterAllowed)
	in := &t.interaction
	in.state = Previewing
	if !ok {
		t.hideGhostLocked()
		in.preview = Preview{}
		return in.preview.clone()
	}

	// Смена поверхности (суша/вода) пересчитывается сразу: меняется режим плавания
	allowed := t.limiter.AllowN(now, 1)
	sameSurface := in.preview.HasTarget && in.preview.Surface == hit.Surface
	if sameSurface && !allowed {
		// Между проверками призрак следует за лучом без повторной валидации
		in.preview.Point = hit.Point
		if in.preview.Candidate != nil {
			in.preview.Candidate.Position = hit.Point
		}
		if in.ghost != nil {
			in.ghost.Placement.Position = hit.Point
			in.ghost.setScale(in.ghost.Placement.Scale)
		}
		return in.preview.clone()
	}

	t.resolvePreviewLocked(hit)
	return in.preview.clone()
}

func (t *Terrain) nearestHit(hits []Hit, waterAllowed bool) (Hit, bool) {
	var best Hit
	found := false
	for _, h := range hits {
		if h.Surface == SurfaceWater && !waterAllowed {
			continue
		}
		if h.Surface != SurfaceWater && h.Surface != SurfaceTerrain {
			continue
		}
		if !found || h.Distance < best.Distance {
			best, found = h, true
		}
	}
	return best, found
}

func (t *Terrain) resolvePreviewLocked(hit Hit) {
	in := &t.interaction
	x, z := hit.Point.X(), hit.Point.Z()
	coord, inWorld := t.dims.ChunkCoordAt(x, z)
	chunk, loaded := t.grid.Get(coord)
	if !inWorld || !loaded || chunk.State() != StatePopulated {
		t.hideGhostLocked()
		in.preview = Preview{Point: hit.Point, Surface: hit.Surface, Chunk: coord, HasTarget: inWorld}
		return
	}

	sb := t.gen.SubBiomeAt(x, z)
	prev := in.preview
	next := Preview{Point: hit.Point, Surface: hit.Surface, SubBiome: sb.Name, Chunk: coord, HasTarget: true}

	var candidate *Placement
	if prev.Candidate != nil && prev.HasTarget && prev.SubBiome == sb.Name && prev.Surface == hit.Surface && prev.Chunk == coord {
		// Тот же суб-биом и поверхность: сохраняем организм, переносим позицию
		moved := *prev.Candidate
		moved.Position = mgl64.Vec3{x, t.surfaceHeight(hit.Surface, x, z), z}
		candidate = &moved
	} else {
		t.hideGhostLocked()
		candidate = chunk.Pick(x, z, PickOptions{Force: true, Float: hit.Surface == SurfaceWater})
	}

	if candidate != nil && !chunk.CanPlaceObject(*candidate) {
		candidate = nil
	}
	next.Candidate = candidate
	in.preview = next

	if candidate == nil {
		t.hideGhostLocked()
		return
	}
	ghost := newRenderable(ghostNodeID, t.templates.Get(candidate.Organism), *candidate)
	t.hideGhostLocked()
	in.ghost = ghost
	t.scene.Add(ghost)
}

func (t *Terrain) surfaceHeight(s Surface, x, z float64) float64 {
	if s == SurfaceWater {
		return t.gen.ComputeWaterHeightAt(x, z)
	}
	return t.gen.ComputeHeightAt(x, z)
}

func (t *Terrain) hideGhostLocked() {
	if t.interaction.ghost != nil {
		t.scene.Remove(t.interaction.ghost)
		t.interaction.ghost = nil
	}
}

func (t *Terrain) resetPreviewLocked() {
	t.hideGhostLocked()
	t.interaction.preview = Preview{}
	if t.interaction.state == Previewing {
		t.interaction.state = Idle
	}
}

// Commit фиксирует текущего кандидата: размещает объект в чанке, сохраняет его,
// планирует звук, увеличивает счётчики и рассылает размещение.
// Возвращает nil, если кандидата нет или он стал недопустим.
func (t *Terrain) Commit(ctx context.Context, now time.Time) *Placement {
	ctx, span := t.tracer.Start(ctx, "terrain.commit")
	defer span.End()

	t.mu.Lock()
	defer t.mu.Unlock()

	in := &t.interaction
	if in.state != Previewing || !in.preview.Valid() {
		return nil
	}
	in.state = Placing

	chunk, ok := t.grid.Get(in.preview.Chunk)
	if !ok || chunk.State() != StatePopulated {
		t.resetPreviewLocked()
		in.state = Idle
		return nil
	}

	p := *in.preview.Candidate
	p.ID = NewPlacementID()
	p.Source = SourceUser
	p.Origin = t.nodeID
	p.Chunk = chunk.Coord()
	p.Persistent = true

	if !chunk.CanPlaceObject(p) || t.knownLocked(p) {
		in.preview.Candidate = nil
		t.hideGhostLocked()
		in.state = Previewing
		return nil
	}

	chunk.PlaceObject(p, PlaceOptions{Animate: true, Save: true, Now: now})
	t.rememberLocked(p)
	if err := t.archive.Save(ctx, p); err != nil {
		logging.Warn("⚠️ Не удалось сохранить размещение %s: %v", p.ID, err)
	}

	t.sched.Schedule(ScheduledEvent{
		Type:        EventFeedback,
		At:          now.Add(t.tuning.FeedbackDelay),
		Chunk:       chunk,
		Generation:  chunk.Generation(),
		PlacementID: p.ID,
		Sound:       "place:" + p.Organism,
		Position:    p.Position,
	})

	t.progress.Increment(CounterObjectsPlaced)
	t.progress.Increment("placed:" + p.Organism)
	t.broadcaster.BroadcastPlacement(p)
	t.metrics.PlacementApplied(SourceUser)
	t.notifyLocked(p)

	logging.Debug("🌱 Размещён %s (%s) в чанке %s", p.Organism, p.ID, p.Chunk)

	t.hideGhostLocked()
	in.preview = Preview{}
	in.state = Idle
	return &p
}

// Cancel сбрасывает предпросмотр
func (t *Terrain) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hideGhostLocked()
	t.interaction.preview = Preview{}
	t.interaction.state = Idle
}

// InteractionState возвращает состояние машины взаимодействия
func (t *Terrain) InteractionState() InteractionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interaction.state
}

// CurrentPreview возвращает копию текущего предпросмотра
func (t *Terrain) CurrentPreview() Preview {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interaction.preview.clone()
}

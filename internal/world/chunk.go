package world

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/biome-terrain/internal/biome"
	"github.com/annel0/biome-terrain/internal/logging"
	"github.com/annel0/biome-terrain/internal/physics"
	"github.com/annel0/biome-terrain/internal/vec"
)

// ChunkState — этап жизненного цикла чанка
type ChunkState int32

const (
	StateDirty      ChunkState = iota // Требует генерации
	StatePopulating                   // Идёт генерация
	StatePopulated                    // Сетка и объекты построены
	StateClean                        // Ресурсы освобождены
)

// String возвращает имя состояния
func (s ChunkState) String() string {
	switch s {
	case StateDirty:
		return "dirty"
	case StatePopulating:
		return "populating"
	case StatePopulated:
		return "populated"
	case StateClean:
		return "clean"
	default:
		return "unknown"
	}
}

// PickOptions управляет подбором кандидата
type PickOptions struct {
	Force bool // игнорировать ограничение «рядом уже есть объект»
	Float bool // размещение на поверхности воды
}

// PlaceOptions управляет фиксацией размещения
type PlaceOptions struct {
	Animate bool      // проиграть анимацию появления
	Save    bool      // сделать размещение постоянным
	Now     time.Time // точка отсчёта анимации; нулевое значение — часы планировщика
}

// ChunkConfig — зависимости чанка
type ChunkConfig struct {
	Dims      Dimensions
	Generator *biome.Generator
	Tuning    Tuning
	Scene     Scene
	Templates *TemplatePool
	Scheduler *Scheduler
}

type placedObject struct {
	placement  Placement
	organism   biome.Organism
	renderable *Renderable
}

// Chunk владеет сеткой одного тайла и размещёнными на нём объектами
type Chunk struct {
	coord     ChunkCoord
	dims      Dimensions
	gen       *biome.Generator
	tuning    Tuning
	scene     Scene
	templates *TemplatePool
	sched     *Scheduler

	state      atomic.Int32
	generation atomic.Uint64

	mu      sync.RWMutex
	visible bool
	mesh    *Mesh
	objects map[string]*placedObject
	index   *SpatialIndex
}

// NewChunk создаёт грязный чанк
func NewChunk(coord ChunkCoord, cfg ChunkConfig) *Chunk {
	if cfg.Scene == nil {
		cfg.Scene = nopScene{}
	}
	if cfg.Templates == nil {
		cfg.Templates = NewTemplatePool()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewScheduler(nil)
	}
	c := &Chunk{
		coord:     coord,
		dims:      cfg.Dims,
		gen:       cfg.Generator,
		tuning:    cfg.Tuning.normalized(),
		scene:     cfg.Scene,
		templates: cfg.Templates,
		sched:     cfg.Scheduler,
		objects:   make(map[string]*placedObject),
		index:     NewSpatialIndex(4 * cfg.Dims.CellSize),
	}
	c.state.Store(int32(StateDirty))
	return c
}

// Coord возвращает координаты чанка
func (c *Chunk) Coord() ChunkCoord { return c.coord }

// State возвращает текущее состояние
func (c *Chunk) State() ChunkState { return ChunkState(c.state.Load()) }

// Generation возвращает номер поколения; увеличивается при каждой очистке
func (c *Chunk) Generation() uint64 { return c.generation.Load() }

// IsDirty сообщает, нужна ли генерация
func (c *Chunk) IsDirty() bool {
	s := c.State()
	return s == StateDirty || s == StateClean
}

// IsVisible возвращает флаг видимости
func (c *Chunk) IsVisible() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.visible
}

// BBox возвращает AABB по площади чанка и фиксированному диапазону высот
func (c *Chunk) BBox() physics.AABB {
	return c.dims.ChunkBBox(c.coord)
}

// Contains проверяет, что точка лежит в площади чанка
func (c *Chunk) Contains(x, z float64) bool {
	return c.BBox().ContainsXZ(x, z)
}

// Populate строит сетку и рассеивает объекты. pinned — постоянные размещения
// чанка, восстанавливаемые до рассеивания. Возвращает false, если чанк не
// был грязным или его уже заполняет другой вызов.
func (c *Chunk) Populate(pinned []Placement) bool {
	if !c.state.CompareAndSwap(int32(StateDirty), int32(StatePopulating)) &&
		!c.state.CompareAndSwap(int32(StateClean), int32(StatePopulating)) {
		return false
	}

	start := time.Now()
	c.mu.Lock()
	c.mesh = buildChunkMesh(c.gen, c.dims, c.coord)
	c.objects = make(map[string]*placedObject)
	c.index.Reset()

	for _, p := range pinned {
		o, ok := biome.LookupOrganism(p.Organism)
		if !ok {
			logging.Warn("Chunk %s: неизвестный организм %q в сохранённом размещении %s", c.coord, p.Organism, p.ID)
			continue
		}
		p.Chunk = c.coord
		p.Persistent = true
		c.placeLocked(p, o, PlaceOptions{})
	}

	ambient := c.scatterLocked()

	if c.visible {
		c.attachLocked()
	}
	objects := len(c.objects)
	c.mu.Unlock()

	c.state.Store(int32(StatePopulated))
	logging.LogChunkPopulated(c.coord.Row, c.coord.Col, objects, time.Since(start))
	logging.Trace("Chunk %s: %d pinned, %d ambient; %s", c.coord, len(pinned), ambient, c.index.GetStats())
	return true
}

// scatterLocked — фоновое рассеивание по решётке кандидатов с дрожанием
func (c *Chunk) scatterLocked() int {
	r := rand.New(rand.NewSource(chunkSeed(c.gen.Seed(), c.coord)))
	x0, z0 := c.dims.ChunkOrigin(c.coord)
	stride := c.tuning.ScatterStride
	span := float64(stride) * c.dims.CellSize
	maxX := x0 + c.dims.ChunkWidth()
	maxZ := z0 + c.dims.ChunkDepth()

	placed := 0
	n := 0
	for j := 0; j < c.dims.Rows; j += stride {
		for i := 0; i < c.dims.Cols; i += stride {
			cx := x0 + float64(i)*c.dims.CellSize
			cz := z0 + float64(j)*c.dims.CellSize
			sb := c.gen.SubBiomeAt(cx+span/2, cz+span/2)
			if r.Float64() >= sb.Density {
				continue
			}

			for attempt := 0; attempt < c.tuning.ScatterAttempts; attempt++ {
				x := math.Min(cx+r.Float64()*span, math.Nextafter(maxX, x0))
				z := math.Min(cz+r.Float64()*span, math.Nextafter(maxZ, z0))
				p := c.pickLocked(x, z, PickOptions{}, r, true)
				if p == nil {
					continue
				}
				o, _ := biome.LookupOrganism(p.Organism)
				if !c.canPlaceLocked(*p, o) {
					continue
				}
				p.ID = ambientID(c.coord, n)
				n++
				c.placeLocked(*p, o, PlaceOptions{})
				placed++
				break
			}
		}
	}
	return placed
}

// Clean освобождает сетку и объекты. Безопасен для незаполненного чанка.
// Отложенные события чанка становятся устаревшими.
func (c *Chunk) Clean() {
	if !c.state.CompareAndSwap(int32(StatePopulated), int32(StateClean)) {
		return
	}
	c.generation.Add(1)

	c.mu.Lock()
	if c.visible {
		c.detachLocked()
		c.visible = false
	}
	c.mesh = nil
	c.objects = make(map[string]*placedObject)
	c.index.Reset()
	c.mu.Unlock()

	logging.LogChunkCleaned(c.coord.Row, c.coord.Col)
}

// SetVisible включает или выключает участие чанка в отрисовке
func (c *Chunk) SetVisible(visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.visible == visible {
		return
	}
	c.visible = visible
	if c.State() != StatePopulated {
		return
	}
	if visible {
		c.attachLocked()
	} else {
		c.detachLocked()
	}
}

func (c *Chunk) attachLocked() {
	if c.mesh != nil {
		c.scene.Add(c.mesh)
	}
	for _, obj := range c.objects {
		c.scene.Add(obj.renderable)
	}
}

func (c *Chunk) detachLocked() {
	if c.mesh != nil {
		c.scene.Remove(c.mesh)
	}
	for _, obj := range c.objects {
		c.scene.Remove(obj.renderable)
	}
}

// Pick подбирает кандидата в точке, не фиксируя его. nil — размещение невозможно.
func (c *Chunk) Pick(x, z float64, opts PickOptions) *Placement {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r := rand.New(rand.NewSource(pointSeed(c.gen.Seed(), x, z)))
	return c.pickLocked(x, z, opts, r, false)
}

func (c *Chunk) pickLocked(x, z float64, opts PickOptions, r *rand.Rand, scatter bool) *Placement {
	if !c.Contains(x, z) {
		return nil
	}
	if !opts.Force && c.index.AnyWithin(vec.XZ(x, z), c.tuning.ThrottleRadius) {
		return nil
	}

	underwater := c.gen.IsUnderwater(x, z)
	if opts.Float && !underwater {
		return nil
	}
	allow := func(o biome.Organism) bool {
		if o.Special {
			return false
		}
		switch {
		case opts.Float:
			return o.Floats
		case !underwater:
			return !o.Aquatic()
		case scatter:
			return o.Aquatic()
		default:
			return o.Underwater
		}
	}

	sb := c.gen.SubBiomeAt(x, z)
	o, ok := sb.Choose(r.Float64(), allow)
	if !ok {
		return nil
	}

	floating := o.Floats
	y := c.gen.ComputeHeightAt(x, z)
	if floating {
		y = c.gen.ComputeWaterHeightAt(x, z)
	}
	return &Placement{
		Organism: o.ID,
		Position: mgl64.Vec3{x, y, z},
		Scale:    o.ScaleMin + r.Float64()*(o.ScaleMax-o.ScaleMin),
		Rotation: r.Float64() * 2 * math.Pi,
		Float:    floating,
		Source:   SourceAmbient,
		Chunk:    c.coord,
	}
}

// CanPlaceObject проверяет кандидата: площадь чанка, правила воды, уклон и
// минимальную дистанцию до размещённых объектов. Не меняет состояние чанка.
func (c *Chunk) CanPlaceObject(p Placement) bool {
	o, ok := biome.LookupOrganism(p.Organism)
	if !ok {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.canPlaceLocked(p, o)
}

func (c *Chunk) canPlaceLocked(p Placement, o biome.Organism) bool {
	x, z := p.Position.X(), p.Position.Z()
	if !c.Contains(x, z) {
		return false
	}
	if _, exists := c.objects[p.ID]; exists && p.ID != "" {
		return false
	}

	if !surfaceAllows(o, p.Float, c.gen.IsUnderwater(x, z)) {
		return false
	}

	if !p.Float && o.MaxSlope > 0 && c.slopeAt(x, z) > o.MaxSlope {
		return false
	}

	center := vec.XZ(x, z)
	radius := math.Max(o.MinSeparation, c.index.MaxSeparation())
	ok := true
	c.index.QueryRange(center, radius, func(_ string, pos vec.Vec2Float, separation float64) bool {
		if physics.TooClose(center, pos, math.Max(o.MinSeparation, separation)) {
			ok = false
			return false
		}
		return true
	})
	return ok
}

// surfaceAllows применяет правило воды: плавучие только на воде,
// подводные только под водой, наземные только на суше
func surfaceAllows(o biome.Organism, float, underwater bool) bool {
	switch {
	case o.Floats:
		return float && underwater
	case o.Underwater:
		return !float && underwater
	default:
		return !float && !underwater
	}
}

// slopeAt оценивает уклон поверхности центральными разностями
func (c *Chunk) slopeAt(x, z float64) float64 {
	d := c.dims.CellSize / 2
	dx := (c.gen.ComputeHeightAt(x+d, z) - c.gen.ComputeHeightAt(x-d, z)) / (2 * d)
	dz := (c.gen.ComputeHeightAt(x, z+d) - c.gen.ComputeHeightAt(x, z-d)) / (2 * d)
	return math.Hypot(dx, dz)
}

// PlaceObject фиксирует размещение. Возвращает false, если чанк не заполнен
// или объект с таким ID уже есть.
func (c *Chunk) PlaceObject(p Placement, opts PlaceOptions) bool {
	o, ok := biome.LookupOrganism(p.Organism)
	if !ok {
		return false
	}
	if c.State() != StatePopulated {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p.ID == "" {
		p.ID = NewPlacementID()
	}
	if _, exists := c.objects[p.ID]; exists {
		return false
	}
	p.Chunk = c.coord
	if opts.Save {
		p.Persistent = true
	}
	obj := c.placeLocked(p, o, opts)
	if c.visible {
		c.scene.Add(obj.renderable)
	}
	return true
}

func (c *Chunk) placeLocked(p Placement, o biome.Organism, opts PlaceOptions) *placedObject {
	obj := &placedObject{
		placement:  p,
		organism:   o,
		renderable: c.GetObject(p),
	}
	c.objects[p.ID] = obj
	c.index.Insert(p.ID, p.XZ(), o.MinSeparation)

	if opts.Animate {
		c.scheduleScaleIn(obj, opts.Now)
	}
	return obj
}

func (c *Chunk) scheduleScaleIn(obj *placedObject, now time.Time) {
	if now.IsZero() {
		now = c.sched.Now()
	}
	steps := c.tuning.AnimationSteps
	obj.renderable.setScale(0)
	gen := c.Generation()
	for k := 1; k <= steps; k++ {
		c.sched.Schedule(ScheduledEvent{
			Type:        EventScaleStep,
			At:          now.Add(c.tuning.AnimationDuration * time.Duration(k) / time.Duration(steps)),
			Chunk:       c,
			Generation:  gen,
			PlacementID: obj.placement.ID,
			Step:        k,
			Steps:       steps,
		})
	}
}

func (c *Chunk) applyScaleStep(ev ScheduledEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Generation() != ev.Generation {
		return
	}
	obj, ok := c.objects[ev.PlacementID]
	if !ok || ev.Steps <= 0 {
		return
	}
	obj.renderable.setScale(obj.placement.Scale * float64(ev.Step) / float64(ev.Steps))
}

// GetObject создаёт визуальное представление размещения из пула шаблонов
func (c *Chunk) GetObject(p Placement) *Renderable {
	return newRenderable("obj:"+p.ID, c.templates.Get(p.Organism), p)
}

// Renderable возвращает экземпляр размещённого объекта
func (c *Chunk) Renderable(id string) (*Renderable, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	obj, ok := c.objects[id]
	if !ok {
		return nil, false
	}
	return obj.renderable, true
}

// HasObject проверяет наличие размещения с указанным ID
func (c *Chunk) HasObject(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.objects[id]
	return ok
}

// Objects возвращает все размещения чанка, упорядоченные по ID
func (c *Chunk) Objects() []Placement {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Placement, 0, len(c.objects))
	for _, obj := range c.objects {
		out = append(out, obj.placement)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PersistentPlacements возвращает только постоянные размещения
func (c *Chunk) PersistentPlacements() []Placement {
	all := c.Objects()
	out := all[:0]
	for _, p := range all {
		if p.Persistent {
			out = append(out, p)
		}
	}
	return out
}

// ObjectCount возвращает число размещённых объектов
func (c *Chunk) ObjectCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}

// Mesh возвращает сетку чанка (nil до заполнения и после очистки)
func (c *Chunk) Mesh() *Mesh {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mesh
}

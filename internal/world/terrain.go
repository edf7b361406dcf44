package world

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/annel0/biome-terrain/internal/biome"
	"github.com/annel0/biome-terrain/internal/logging"
	"github.com/annel0/biome-terrain/internal/physics"
)

// TerrainConfig — зависимости и параметры Terrain
type TerrainConfig struct {
	Generator   *biome.Generator
	Dims        Dimensions
	Tuning      Tuning
	Options     OptionsProvider
	Scene       Scene
	Raycaster   Raycaster
	Archive     PlacementArchive
	Progress    Progress
	Broadcaster PlacementBroadcaster
	Feedback    Feedback
	Metrics     StreamMetrics
	// NodeID помечает исходящие размещения для подавления собственного эха
	NodeID string
	// Special — сюжетные объекты, расставляемые при загрузке мира
	Special []SpecialSpec
}

// Observer — положение и пирамида видимости наблюдателя на текущем шаге
type Observer struct {
	Position mgl64.Vec3
	// Frustum == nil отключает отсечение: видимо всё окно
	Frustum *physics.Frustum
}

// StepResult — итог шага стриминга
type StepResult struct {
	Center    ChunkCoord
	Visible   int
	Populated int
	Hidden    int
	Cleaned   int
	Events    int
}

// Terrain владеет сеткой чанков, окном видимости, юбками и состоянием взаимодействия.
// Публичные методы сериализуются мьютексом.
type Terrain struct {
	mu sync.Mutex

	gen         *biome.Generator
	dims        Dimensions
	tuning      Tuning
	options     OptionsProvider
	scene       Scene
	raycaster   Raycaster
	archive     PlacementArchive
	progress    Progress
	broadcaster PlacementBroadcaster
	metrics     StreamMetrics
	nodeID      string
	special     []SpecialSpec

	grid      *ChunkGrid
	templates *TemplatePool
	sched     *Scheduler
	tracer    trace.Tracer

	visible    map[ChunkCoord]struct{}
	center     ChunkCoord
	underwater bool
	loaded     bool
	skirts     []*Mesh

	// постоянные размещения по чанкам: пользовательские, удалённые, особые
	pinned     map[ChunkCoord]map[string]Placement
	hydrated   map[ChunkCoord]bool
	ids        map[string]struct{}
	identities map[uint64]string

	interaction interaction
	limiter     *rate.Limiter

	listeners []func(Placement)
}

// NewTerrain создаёт Terrain. Отсутствующие коллабораторы заменяются пустыми реализациями.
func NewTerrain(cfg TerrainConfig) (*Terrain, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("генератор рельефа не задан")
	}
	if err := cfg.Dims.Validate(); err != nil {
		return nil, err
	}
	if cfg.Options == nil {
		cfg.Options = StaticOptions(DefaultRuntimeOptions())
	}
	if cfg.Scene == nil {
		cfg.Scene = nopScene{}
	}
	if cfg.Raycaster == nil {
		cfg.Raycaster = NewHeightfieldRaycaster(cfg.Generator, cfg.Dims)
	}
	if cfg.Archive == nil {
		cfg.Archive = nopArchive{}
	}
	if cfg.Progress == nil {
		cfg.Progress = nopProgress{}
	}
	if cfg.Broadcaster == nil {
		cfg.Broadcaster = nopBroadcaster{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	tuning := cfg.Tuning.normalized()

	t := &Terrain{
		gen:         cfg.Generator,
		dims:        cfg.Dims,
		tuning:      tuning,
		options:     cfg.Options,
		scene:       cfg.Scene,
		raycaster:   cfg.Raycaster,
		archive:     cfg.Archive,
		progress:    cfg.Progress,
		broadcaster: cfg.Broadcaster,
		metrics:     cfg.Metrics,
		nodeID:      cfg.NodeID,
		special:     cfg.Special,
		grid:        NewChunkGrid(cfg.Dims),
		templates:   NewTemplatePool(),
		sched:       NewScheduler(cfg.Feedback),
		tracer:      otel.Tracer("github.com/annel0/biome-terrain/internal/world"),
		visible:     make(map[ChunkCoord]struct{}),
		pinned:      make(map[ChunkCoord]map[string]Placement),
		hydrated:    make(map[ChunkCoord]bool),
		ids:         make(map[string]struct{}),
		identities:  make(map[uint64]string),
		limiter:     rate.NewLimiter(rate.Limit(tuning.PreviewRateHz), 1),
	}
	return t, nil
}

// OnPlacement регистрирует наблюдателя за всеми постоянными размещениями.
// Вызывается под мьютексом Terrain: наблюдатель не должен обращаться к Terrain.
func (t *Terrain) OnPlacement(fn func(Placement)) {
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

func (t *Terrain) newChunk(c ChunkCoord) *Chunk {
	return NewChunk(c, ChunkConfig{
		Dims:      t.dims,
		Generator: t.gen,
		Tuning:    t.tuning,
		Scene:     t.scene,
		Templates: t.templates,
		Scheduler: t.sched,
	})
}

// Load строит юбки, расставляет особые объекты и заполняет начальное окно вокруг spawn
func (t *Terrain) Load(ctx context.Context, spawn mgl64.Vec3) error {
	ctx, span := t.tracer.Start(ctx, "terrain.load")
	defer span.End()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.loaded {
		return fmt.Errorf("мир уже загружен")
	}

	start := time.Now()
	t.skirts = buildSkirts(t.gen, t.dims)
	for _, m := range t.skirts {
		t.scene.Add(m)
	}

	t.placeSpecialLocked(t.special)

	opts := t.options.Options()
	t.center = t.dims.ClampedCoordAt(spawn.X(), spawn.Z())
	var chunks []*Chunk
	for _, c := range t.grid.Window(t.center, opts.VisibleChunks) {
		chunk, _ := t.grid.GetOrCreate(c, t.newChunk)
		chunks = append(chunks, chunk)
	}
	populated, err := t.populateAll(ctx, chunks)
	if err != nil {
		return err
	}

	t.loaded = true
	span.SetAttributes(attribute.Int("chunks", populated))
	logging.Info("🌍 Мир загружен: биом %s, %d чанков за %s", t.gen.GetBiome().Name(), populated, time.Since(start))
	return nil
}

// Update выполняет шаг стриминга: окно видимости, отсечение, ленивое заполнение,
// выгрузка за пределами удержания, отложенные события и счётчик подводного режима.
func (t *Terrain) Update(ctx context.Context, obs Observer, now time.Time) (StepResult, error) {
	ctx, span := t.tracer.Start(ctx, "terrain.update")
	defer span.End()

	t.mu.Lock()
	defer t.mu.Unlock()

	opts := t.options.Options()
	radius := opts.VisibleChunks
	if radius < 0 {
		radius = 0
	}
	center := t.dims.ClampedCoordAt(obs.Position.X(), obs.Position.Z())
	t.center = center
	res := StepResult{Center: center}

	window := t.grid.Window(center, radius)
	nextVisible := make(map[ChunkCoord]struct{}, len(window))
	var dirty []*Chunk
	var show []*Chunk
	for _, c := range window {
		chunk, _ := t.grid.GetOrCreate(c, t.newChunk)
		if obs.Frustum != nil && !obs.Frustum.IntersectsAABB(chunk.BBox()) {
			continue
		}
		if chunk.IsDirty() {
			dirty = append(dirty, chunk)
		}
		show = append(show, chunk)
		nextVisible[c] = struct{}{}
	}

	populated, err := t.populateAll(ctx, dirty)
	if err != nil {
		return res, err
	}
	res.Populated = populated
	for _, chunk := range show {
		chunk.SetVisible(true)
	}

	for c := range t.visible {
		if _, still := nextVisible[c]; still {
			continue
		}
		if chunk, ok := t.grid.Get(c); ok {
			chunk.SetVisible(false)
			res.Hidden++
		}
	}
	t.visible = nextVisible
	res.Visible = len(nextVisible)

	keep := radius + t.tuning.RetentionMargin
	for _, c := range t.grid.Coords() {
		if c.Vec().ChebyshevTo(center.Vec()) <= keep {
			continue
		}
		chunk, _ := t.grid.Get(c)
		t.evictLocked(chunk)
		res.Cleaned++
	}

	res.Events = t.sched.Advance(now)
	t.updateUnderwaterLocked(obs.Position, opts)
	if !opts.WaterEffects && t.interaction.preview.Surface == SurfaceWater {
		t.resetPreviewLocked()
	}

	t.metrics.VisibleChunks(res.Visible)
	span.SetAttributes(
		attribute.Int("visible", res.Visible),
		attribute.Int("populated", res.Populated),
		attribute.Int("cleaned", res.Cleaned),
	)
	return res, nil
}

func (t *Terrain) evictLocked(chunk *Chunk) {
	chunk.SetVisible(false)
	chunk.Clean()
	t.grid.Delete(chunk.Coord())
	delete(t.visible, chunk.Coord())
	t.metrics.ChunkCleaned(chunk.Coord())
}

func (t *Terrain) updateUnderwaterLocked(pos mgl64.Vec3, opts RuntimeOptions) {
	x, z := pos.X(), pos.Z()
	under := false
	if opts.WaterEffects && t.gen.HasWater() {
		if _, ok := t.dims.ChunkCoordAt(x, z); ok && t.gen.IsUnderwater(x, z) {
			under = pos.Y() < t.gen.ComputeWaterHeightAt(x, z)
		}
	}
	if under && !t.underwater {
		t.progress.Increment(CounterObserverUnderwater)
	}
	t.underwater = under
}

// pinnedLocked возвращает постоянные размещения чанка, один раз подгружая архив
func (t *Terrain) pinnedLocked(ctx context.Context, c ChunkCoord) []Placement {
	if !t.hydrated[c] {
		t.hydrated[c] = true
		stored, err := t.archive.LoadChunk(ctx, c)
		if err != nil {
			logging.Warn("⚠️ Не удалось загрузить размещения чанка %s: %v", c, err)
			t.hydrated[c] = false
		}
		for _, p := range stored {
			t.rememberLocked(p)
		}
	}
	set := t.pinned[c]
	out := make([]Placement, 0, len(set))
	for _, p := range set {
		out = append(out, p)
	}
	sortPlacements(out)
	return out
}

// rememberLocked регистрирует постоянное размещение; false — дубликат
func (t *Terrain) rememberLocked(p Placement) bool {
	if t.knownLocked(p) {
		return false
	}
	set, ok := t.pinned[p.Chunk]
	if !ok {
		set = make(map[string]Placement)
		t.pinned[p.Chunk] = set
	}
	set[p.ID] = p
	t.ids[p.ID] = struct{}{}
	t.identities[p.IdentityKey()] = p.ID
	return true
}

// knownLocked проверяет размещение по ID и по ключу тип+позиция
func (t *Terrain) knownLocked(p Placement) bool {
	if _, dup := t.ids[p.ID]; dup {
		return true
	}
	_, dup := t.identities[p.IdentityKey()]
	return dup
}

func (t *Terrain) notifyLocked(p Placement) {
	for _, fn := range t.listeners {
		fn(p)
	}
}

// ChunkAt возвращает загруженный чанк
func (t *Terrain) ChunkAt(c ChunkCoord) (*Chunk, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.grid.Get(c)
}

// ChunkCoordAt возвращает координаты чанка для точки мира
func (t *Terrain) ChunkCoordAt(x, z float64) (ChunkCoord, bool) {
	return t.dims.ChunkCoordAt(x, z)
}

// VisibleChunks возвращает видимые чанки в порядке строк
func (t *Terrain) VisibleChunks() []ChunkCoord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ChunkCoord, 0, len(t.visible))
	for c := range t.visible {
		out = append(out, c)
	}
	sortCoords(out)
	return out
}

// PinnedPlacements возвращает известные постоянные размещения чанка
func (t *Terrain) PinnedPlacements(c ChunkCoord) []Placement {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Placement, 0, len(t.pinned[c]))
	for _, p := range t.pinned[c] {
		out = append(out, p)
	}
	sortPlacements(out)
	return out
}

// Skirts возвращает сетки юбок
func (t *Terrain) Skirts() []*Mesh {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Mesh(nil), t.skirts...)
}

// Dimensions возвращает размеры мира
func (t *Terrain) Dimensions() Dimensions { return t.dims }

// Generator возвращает генератор рельефа
func (t *Terrain) Generator() *biome.Generator { return t.gen }

// Stats — сводка состояния для инспекции
type Stats struct {
	Biome           string           `json:"biome"`
	Center          ChunkCoord       `json:"center"`
	LoadedChunks    int              `json:"loaded_chunks"`
	VisibleChunks   int              `json:"visible_chunks"`
	PopulatedChunks int              `json:"populated_chunks"`
	Objects         int              `json:"objects"`
	Pinned          int              `json:"pinned"`
	PendingEvents   int              `json:"pending_events"`
	Underwater      bool             `json:"underwater"`
	Interaction     InteractionState `json:"interaction"`
	Options         RuntimeOptions   `json:"options"`
}

// Stats возвращает сводку состояния
func (t *Terrain) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Stats{
		Biome:         t.gen.GetBiome().Name(),
		Center:        t.center,
		LoadedChunks:  t.grid.Len(),
		VisibleChunks: len(t.visible),
		PendingEvents: t.sched.Pending(),
		Underwater:    t.underwater,
		Interaction:   t.interaction.state,
		Options:       t.options.Options(),
	}
	for _, c := range t.grid.Coords() {
		chunk, _ := t.grid.Get(c)
		if chunk.State() == StatePopulated {
			s.PopulatedChunks++
			s.Objects += chunk.ObjectCount()
		}
	}
	for _, set := range t.pinned {
		s.Pinned += len(set)
	}
	return s
}

// Sample — значения полей в точке мира
type Sample struct {
	X           float64 `json:"x"`
	Z           float64 `json:"z"`
	Elevation   float64 `json:"elevation"`
	Moisture    float64 `json:"moisture"`
	Height      float64 `json:"height"`
	SubBiome    string  `json:"sub_biome"`
	Color       string  `json:"color"`
	Underwater  bool    `json:"underwater"`
	WaterHeight float64 `json:"water_height,omitempty"`
}

// Sample вычисляет значения полей в точке. Генератор потокобезопасен, мьютекс не нужен.
func (t *Terrain) Sample(x, z float64) Sample {
	e := t.gen.ComputeElevationAt(x, z)
	m := t.gen.ComputeMoistureAt(x, z)
	sb := t.gen.GetSubBiome(e, m)
	s := Sample{
		X:          x,
		Z:          z,
		Elevation:  e,
		Moisture:   m,
		Height:     t.gen.HeightFromElevation(e),
		SubBiome:   sb.Name,
		Color:      sb.Color.String(),
		Underwater: t.gen.IsUnderwater(x, z),
	}
	if s.Underwater {
		s.WaterHeight = t.gen.ComputeWaterHeightAt(x, z)
	}
	return s
}

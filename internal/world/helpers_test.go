package world

import (
	"context"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	"github.com/annel0/biome-terrain/internal/biome"
	"github.com/annel0/biome-terrain/internal/physics"
)

func testDims() Dimensions {
	return Dimensions{
		ChunksX:   8,
		ChunksZ:   8,
		Cols:      8,
		Rows:      8,
		CellSize:  2,
		MinHeight: -4,
		MaxHeight: 24,
	}
}

func testGenerator(t *testing.T, kind biome.Kind) *biome.Generator {
	t.Helper()
	b, err := biome.New(kind)
	require.NoError(t, err)
	d := testDims()
	gen, err := biome.NewGenerator(b, biome.GeneratorConfig{Seed: 42, MinHeight: d.MinHeight, MaxHeight: d.MaxHeight})
	require.NoError(t, err)
	return gen
}

func testChunk(t *testing.T, gen *biome.Generator, c ChunkCoord, sched *Scheduler) *Chunk {
	t.Helper()
	return NewChunk(c, ChunkConfig{
		Dims:      testDims(),
		Generator: gen,
		Tuning:    DefaultTuning(),
		Scene:     NewMemoryScene(),
		Scheduler: sched,
	})
}

// chunkCenter возвращает мировую позицию центра чанка
func chunkCenter(d Dimensions, c ChunkCoord) mgl64.Vec3 {
	x0, z0 := d.ChunkOrigin(c)
	return mgl64.Vec3{x0 + d.ChunkWidth()/2, d.MaxHeight, z0 + d.ChunkDepth()/2}
}

// mutableOptions — провайдер настроек, меняемый из теста
type mutableOptions struct {
	mu   sync.Mutex
	opts RuntimeOptions
}

func (m *mutableOptions) Options() RuntimeOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opts
}

func (m *mutableOptions) set(fn func(*RuntimeOptions)) {
	m.mu.Lock()
	fn(&m.opts)
	m.mu.Unlock()
}

type memArchive struct {
	mu    sync.Mutex
	saved map[ChunkCoord][]Placement
}

func newMemArchive() *memArchive {
	return &memArchive{saved: make(map[ChunkCoord][]Placement)}
}

func (a *memArchive) LoadChunk(_ context.Context, c ChunkCoord) ([]Placement, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Placement(nil), a.saved[c]...), nil
}

func (a *memArchive) Save(_ context.Context, p Placement) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved[p.Chunk] = append(a.saved[p.Chunk], p)
	return nil
}

func (a *memArchive) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, ps := range a.saved {
		n += len(ps)
	}
	return n
}

type countingProgress struct {
	mu     sync.Mutex
	counts map[string]int
}

func (p *countingProgress) Increment(counter string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts == nil {
		p.counts = make(map[string]int)
	}
	p.counts[counter]++
}

func (p *countingProgress) get(counter string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[counter]
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []Placement
}

func (b *recordingBroadcaster) BroadcastPlacement(p Placement) {
	b.mu.Lock()
	b.sent = append(b.sent, p)
	b.mu.Unlock()
}

type recordingFeedback struct {
	mu     sync.Mutex
	played []string
}

func (f *recordingFeedback) PlaySound(name string, _ mgl64.Vec3) {
	f.mu.Lock()
	f.played = append(f.played, name)
	f.mu.Unlock()
}

// scriptedRaycaster возвращает заранее заданные попадания и запоминает запрошенные поверхности
type scriptedRaycaster struct {
	hits      []Hit
	requested []Surface
}

func (r *scriptedRaycaster) Intersect(_ physics.Ray, surfaces []Surface) []Hit {
	r.requested = append([]Surface(nil), surfaces...)
	return r.hits
}

type terrainFixture struct {
	terrain     *Terrain
	scene       *MemoryScene
	archive     *memArchive
	progress    *countingProgress
	broadcaster *recordingBroadcaster
	feedback    *recordingFeedback
	options     *mutableOptions
	raycaster   *scriptedRaycaster
}

func newTerrainFixture(t *testing.T, kind biome.Kind, radius int) *terrainFixture {
	t.Helper()
	f := &terrainFixture{
		scene:       NewMemoryScene(),
		archive:     newMemArchive(),
		progress:    &countingProgress{},
		broadcaster: &recordingBroadcaster{},
		feedback:    &recordingFeedback{},
		options:     &mutableOptions{opts: RuntimeOptions{VisibleChunks: radius, WaterEffects: true}},
		raycaster:   &scriptedRaycaster{},
	}
	terrain, err := NewTerrain(TerrainConfig{
		Generator:   testGenerator(t, kind),
		Dims:        testDims(),
		Tuning:      DefaultTuning(),
		Options:     f.options,
		Scene:       f.scene,
		Raycaster:   f.raycaster,
		Archive:     f.archive,
		Progress:    f.progress,
		Broadcaster: f.broadcaster,
		Feedback:    f.feedback,
		NodeID:      "node-a",
	})
	require.NoError(t, err)
	f.terrain = terrain
	return f
}

// findPlaceable ищет в чанке точку, где Pick даёт допустимого кандидата
func findPlaceable(t *testing.T, c *Chunk, opts PickOptions) *Placement {
	t.Helper()
	d := c.dims
	x0, z0 := d.ChunkOrigin(c.Coord())
	for j := 0; j < d.Rows*4; j++ {
		for i := 0; i < d.Cols*4; i++ {
			x := x0 + (float64(i)+0.37)*d.CellSize/4
			z := z0 + (float64(j)+0.61)*d.CellSize/4
			p := c.Pick(x, z, opts)
			if p != nil && c.CanPlaceObject(*p) {
				return p
			}
		}
	}
	t.Fatalf("В чанке %s не найдено допустимой точки размещения", c.Coord())
	return nil
}

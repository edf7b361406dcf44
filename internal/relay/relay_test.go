package relay

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/biome-terrain/internal/biome"
	"github.com/annel0/biome-terrain/internal/eventbus"
	"github.com/annel0/biome-terrain/internal/logging"
	"github.com/annel0/biome-terrain/internal/world"
)

func TestMain(m *testing.M) {
	logging.GetLoggerManager().Register("relay", logging.NewConsoleLogger("relay", logging.WARN))
	os.Exit(m.Run())
}

type fakeApplier struct {
	mu  sync.Mutex
	got []world.Placement
}

func (f *fakeApplier) ApplyRemotePlacement(_ context.Context, p world.Placement, _ bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.got {
		if q.ID == p.ID {
			return false
		}
	}
	f.got = append(f.got, p)
	return true
}

func (f *fakeApplier) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func placement(id string) world.Placement {
	return world.Placement{
		ID:         id,
		Organism:   "oak",
		Position:   mgl64.Vec3{5, 1, 5},
		Scale:      1,
		Persistent: true,
		Source:     world.SourceUser,
		Origin:     "node-a",
	}
}

func TestRelayDeliversToOtherNodes(t *testing.T) {
	bus := eventbus.NewMemoryBus(64)
	defer bus.Close()
	ctx := context.Background()

	a, b := New(bus, "node-a", false), New(bus, "node-b", false)
	appA, appB := &fakeApplier{}, &fakeApplier{}
	require.NoError(t, a.Start(ctx, appA))
	require.NoError(t, b.Start(ctx, appB))
	defer a.Stop()
	defer b.Stop()

	a.BroadcastPlacement(placement("p1"))

	require.Eventually(t, func() bool { return appB.len() == 1 }, time.Second, 10*time.Millisecond,
		"узел B должен получить размещение")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, appA.len(), "собственное эхо не должно применяться")

	appB.mu.Lock()
	got := appB.got[0]
	appB.mu.Unlock()
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, "oak", got.Organism)
	assert.Equal(t, "node-a", got.Origin)

	require.Eventually(t, func() bool { return a.Stats().Sent == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(1), b.Stats().Applied)
}

func TestRelayIgnoresDuplicates(t *testing.T) {
	bus := eventbus.NewMemoryBus(64)
	defer bus.Close()
	ctx := context.Background()

	a, b := New(bus, "node-a", false), New(bus, "node-b", false)
	appB := &fakeApplier{}
	require.NoError(t, a.Start(ctx, &fakeApplier{}))
	require.NoError(t, b.Start(ctx, appB))
	defer a.Stop()
	defer b.Stop()

	a.BroadcastPlacement(placement("p1"))
	a.BroadcastPlacement(placement("p1"))

	require.Eventually(t, func() bool { return b.Stats().Received == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, appB.len())
	assert.Equal(t, uint64(1), b.Stats().Ignored, "повтор должен учитываться как проигнорированный")
}

func TestRelayStopFlushesQueue(t *testing.T) {
	bus := eventbus.NewMemoryBus(64)
	defer bus.Close()
	ctx := context.Background()

	a := New(bus, "node-a", false)
	require.NoError(t, a.Start(ctx, &fakeApplier{}))
	for i := 0; i < 5; i++ {
		a.BroadcastPlacement(placement(world.NewPlacementID()))
	}
	a.Stop()
	a.Stop()

	assert.Equal(t, uint64(5), a.Stats().Sent)
}

func TestRelayStopsOnContextCancel(t *testing.T) {
	bus := eventbus.NewMemoryBus(64)
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())

	a := New(bus, "node-a", false)
	require.NoError(t, a.Start(ctx, &fakeApplier{}))
	for i := 0; i < 5; i++ {
		a.BroadcastPlacement(placement(world.NewPlacementID()))
	}
	cancel()

	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("цикл отправки должен завершиться после отмены контекста")
	}
	assert.Equal(t, uint64(5), a.Stats().Sent, "очередь отправляется и после отмены")
	assert.Equal(t, uint64(0), a.Stats().Dropped)
	a.Stop()
}

func TestRelayAppliesIntoTerrain(t *testing.T) {
	bus := eventbus.NewMemoryBus(64)
	defer bus.Close()
	ctx := context.Background()

	b, err := biome.New(biome.Temperate)
	require.NoError(t, err)
	dims := world.Dimensions{ChunksX: 4, ChunksZ: 4, Cols: 8, Rows: 8, CellSize: 2, MinHeight: -4, MaxHeight: 24}
	gen, err := biome.NewGenerator(b, biome.GeneratorConfig{Seed: 7, MinHeight: dims.MinHeight, MaxHeight: dims.MaxHeight})
	require.NoError(t, err)
	terrain, err := world.NewTerrain(world.TerrainConfig{Generator: gen, Dims: dims, NodeID: "node-b"})
	require.NoError(t, err)

	sender := New(bus, "node-a", false)
	receiver := New(bus, "node-b", false)
	require.NoError(t, sender.Start(ctx, &fakeApplier{}))
	require.NoError(t, receiver.Start(ctx, terrain))
	defer sender.Stop()
	defer receiver.Stop()

	p := placement("remote-1")
	p.Position = dryPosition(t, gen, dims)
	sender.BroadcastPlacement(p)

	coord, ok := dims.ChunkCoordAt(p.Position.X(), p.Position.Z())
	require.True(t, ok)
	require.Eventually(t, func() bool { return len(terrain.PinnedPlacements(coord)) == 1 }, time.Second, 10*time.Millisecond,
		"размещение должно закрепиться за чанком")

	pinned := terrain.PinnedPlacements(coord)[0]
	assert.Equal(t, world.SourceRemote, pinned.Source)
	assert.Equal(t, "remote-1", pinned.ID)
}

// dryPosition ищет точку суши, куда можно поставить наземный организм
func dryPosition(t *testing.T, gen *biome.Generator, dims world.Dimensions) mgl64.Vec3 {
	t.Helper()
	for z := 1.0; z < dims.Depth(); z += dims.CellSize {
		for x := 1.0; x < dims.Width(); x += dims.CellSize {
			if !gen.IsUnderwater(x, z) {
				return mgl64.Vec3{x, gen.ComputeHeightAt(x, z), z}
			}
		}
	}
	t.Fatal("в мире нет суши")
	return mgl64.Vec3{}
}

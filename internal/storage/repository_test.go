package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/biome-terrain/internal/config"
	"github.com/annel0/biome-terrain/internal/world"
)

func samplePlacement(id string, c world.ChunkCoord, x, z float64) world.Placement {
	return world.Placement{
		ID:         id,
		Organism:   "oak",
		Position:   mgl64.Vec3{x, 3.25, z},
		Scale:      1.2,
		Rotation:   0.5,
		Persistent: true,
		Source:     world.SourceUser,
		Chunk:      c,
		Origin:     "node-a",
	}
}

// testRepositoryContract проверяет общее поведение всех реализаций
func testRepositoryContract(t *testing.T, repo PlacementRepository) {
	ctx := context.Background()
	a := world.ChunkCoord{Row: 1, Col: 2}
	b := world.ChunkCoord{Row: 3, Col: 4}

	t.Run("Save and LoadChunk", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, samplePlacement("p2", a, 5, 6)))
		require.NoError(t, repo.Save(ctx, samplePlacement("p1", a, 1, 2)))
		require.NoError(t, repo.Save(ctx, samplePlacement("p3", b, 9, 9)))

		got, err := repo.LoadChunk(ctx, a)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "p1", got[0].ID, "Размещения должны быть упорядочены по ID")
		assert.Equal(t, samplePlacement("p1", a, 1, 2), got[0])
	})

	t.Run("Empty chunk", func(t *testing.T) {
		got, err := repo.LoadChunk(ctx, world.ChunkCoord{Row: 30, Col: 30})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Get", func(t *testing.T) {
		p, err := repo.Get(ctx, "p3")
		require.NoError(t, err)
		assert.Equal(t, b, p.Chunk)

		_, err = repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Overwrite moves between chunks", func(t *testing.T) {
		moved := samplePlacement("p2", b, 7, 7)
		require.NoError(t, repo.Save(ctx, moved))

		inA, err := repo.LoadChunk(ctx, a)
		require.NoError(t, err)
		assert.Len(t, inA, 1)
		inB, err := repo.LoadChunk(ctx, b)
		require.NoError(t, err)
		assert.Len(t, inB, 2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "p1"))
		require.NoError(t, repo.Delete(ctx, "p1"), "Повторное удаление не должно быть ошибкой")
		_, err := repo.Get(ctx, "p1")
		assert.ErrorIs(t, err, ErrNotFound)
		inA, err := repo.LoadChunk(ctx, a)
		require.NoError(t, err)
		assert.Empty(t, inA)
	})

	t.Run("Invalid", func(t *testing.T) {
		assert.Error(t, repo.Save(ctx, world.Placement{Organism: "oak"}), "Размещение без ID отклоняется")
		assert.Error(t, repo.Save(ctx, world.Placement{ID: "x"}), "Размещение без типа отклоняется")
	})
}

func TestMemoryPlacementRepo(t *testing.T) {
	repo := NewMemoryPlacementRepo()
	testRepositoryContract(t, repo)
	assert.Equal(t, 2, repo.Count())
	assert.NoError(t, repo.Close())
}

func TestMemoryPlacementRepoCancelledContext(t *testing.T) {
	repo := NewMemoryPlacementRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, repo.Save(ctx, samplePlacement("p", world.ChunkCoord{}, 1, 1)))
	_, err := repo.LoadChunk(ctx, world.ChunkCoord{})
	assert.Error(t, err)
}

func TestBadgerPlacementRepo(t *testing.T) {
	repo, err := NewInMemoryBadgerRepo()
	require.NoError(t, err)
	defer repo.Close()
	testRepositoryContract(t, repo)
}

func TestBadgerPlacementRepoPersists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "placements")
	ctx := context.Background()
	c := world.ChunkCoord{Row: 2, Col: 2}

	repo, err := NewBadgerPlacementRepo(dir)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, samplePlacement("kept", c, 4, 4)))
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close(), "Повторное закрытие безопасно")

	_, err = repo.LoadChunk(ctx, c)
	assert.Error(t, err, "Закрытое хранилище возвращает ошибку")

	reopened, err := NewBadgerPlacementRepo(dir)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.LoadChunk(ctx, c)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].ID)
}

func TestRedisPlacementRepo(t *testing.T) {
	addr := os.Getenv("TERRAIN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TERRAIN_TEST_REDIS_ADDR не задан")
	}
	repo, err := NewRedisPlacementRepo(RedisOptions{Addr: addr, Prefix: "terrain-test-" + t.Name()})
	require.NoError(t, err)
	defer repo.Close()
	testRepositoryContract(t, repo)
}

func TestMariaPlacementRepo(t *testing.T) {
	dsn := os.Getenv("TERRAIN_TEST_MARIA_DSN")
	if dsn == "" {
		t.Skip("TERRAIN_TEST_MARIA_DSN не задан")
	}
	repo, err := NewMariaPlacementRepo(dsn)
	require.NoError(t, err)
	defer repo.Close()
	for _, id := range []string{"p1", "p2", "p3"} {
		_ = repo.Delete(context.Background(), id)
	}
	testRepositoryContract(t, repo)
}

func TestMongoPlacementRepo(t *testing.T) {
	uri := os.Getenv("TERRAIN_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TERRAIN_TEST_MONGO_URI не задан")
	}
	repo, err := NewMongoPlacementRepo(MongoOptions{URI: uri, Database: "terrain_test", Collection: "placements_" + t.Name()})
	require.NoError(t, err)
	defer repo.Close()
	testRepositoryContract(t, repo)
}

func TestMongoDocRoundTrip(t *testing.T) {
	p := samplePlacement("doc", world.ChunkCoord{Row: 5, Col: 6}, 10.5, 11.25)
	p.Float = true
	assert.Equal(t, p, toDoc(p).placement())
}

func TestOpen(t *testing.T) {
	repo, err := Open(config.StorageConfig{Backend: config.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryPlacementRepo{}, repo)

	repo, err = Open(config.StorageConfig{Backend: config.BackendBadger, Badger: config.BadgerConfig{Path: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &BadgerPlacementRepo{}, repo)
	require.NoError(t, repo.Close())

	_, err = Open(config.StorageConfig{Backend: "floppy"})
	assert.Error(t, err)

	fallback := OpenWithFallback(config.StorageConfig{Backend: "floppy"})
	assert.IsType(t, &MemoryPlacementRepo{}, fallback, "При ошибке используется память")
}

func TestRepositoryAsTerrainArchive(t *testing.T) {
	var archive world.PlacementArchive = NewMemoryPlacementRepo()
	ctx := context.Background()
	c := world.ChunkCoord{Row: 0, Col: 1}
	require.NoError(t, archive.Save(ctx, samplePlacement("a", c, 20, 3)))
	got, err := archive.LoadChunk(ctx, c)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

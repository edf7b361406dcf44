package world

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/biome-terrain/internal/biome"
	"github.com/annel0/biome-terrain/internal/physics"
)

var downRay = physics.NewRay(mgl64.Vec3{0, 100, 0}, mgl64.Vec3{0, -1, 0})

func observerAt(d Dimensions, c ChunkCoord) Observer {
	return Observer{Position: chunkCenter(d, c)}
}

func TestChunkCoordAtTotality(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 1)
	d := f.terrain.Dimensions()

	for x := 0.0; x <= d.Width(); x += d.CellSize / 3 {
		for z := 0.0; z <= d.Depth(); z += d.CellSize * 1.7 {
			c, ok := f.terrain.ChunkCoordAt(x, z)
			require.True(t, ok, "Точка (%.2f, %.2f) внутри мира должна иметь чанк", x, z)
			assert.True(t, d.InBounds(c))
		}
	}

	for _, p := range [][2]float64{{-0.01, 5}, {5, -0.01}, {d.Width() + 0.01, 5}, {5, d.Depth() + 1}, {math.NaN(), 1}} {
		_, ok := f.terrain.ChunkCoordAt(p[0], p[1])
		assert.False(t, ok, "Точка %v вне мира не должна иметь чанк", p)
	}
}

func TestTerrainLoad(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 1)
	d := testDims()
	ctx := context.Background()

	require.NoError(t, f.terrain.Load(ctx, chunkCenter(d, ChunkCoord{Row: 4, Col: 4})))
	assert.Error(t, f.terrain.Load(ctx, mgl64.Vec3{}), "Повторная загрузка должна вернуть ошибку")

	for row := 3; row <= 5; row++ {
		for col := 3; col <= 5; col++ {
			chunk, ok := f.terrain.ChunkAt(ChunkCoord{Row: row, Col: col})
			require.True(t, ok)
			assert.Equal(t, StatePopulated, chunk.State())
		}
	}
	_, ok := f.terrain.ChunkAt(ChunkCoord{Row: 0, Col: 0})
	assert.False(t, ok, "Чанки вне окна не создаются при загрузке")

	skirts := f.terrain.Skirts()
	assert.NotEmpty(t, skirts)
	for _, id := range []string{"skirt:north", "skirt:south", "skirt:west", "skirt:east", "skirt:bottom"} {
		assert.True(t, f.scene.Has(id), "Юбка %s должна быть в сцене", id)
	}
	assert.True(t, f.scene.Has("water-skirt:north"), "У биома с водой должна быть водная юбка")
}

func TestTerrainSkirtsWithoutWater(t *testing.T) {
	f := newTerrainFixture(t, biome.Tundra, 0)
	require.NoError(t, f.terrain.Load(context.Background(), mgl64.Vec3{}))
	assert.True(t, f.scene.Has("skirt:north"))
	assert.False(t, f.scene.Has("water-skirt:north"), "У биома без воды нет водных юбок")
}

func TestTerrainVisibilityAndEviction(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 1)
	d := testDims()
	ctx := context.Background()
	now := time.Unix(0, 0)

	res, err := f.terrain.Update(ctx, observerAt(d, ChunkCoord{Row: 1, Col: 1}), now)
	require.NoError(t, err)
	assert.Equal(t, 9, res.Visible)
	assert.Equal(t, 9, res.Populated)
	assert.Len(t, f.terrain.VisibleChunks(), 9)

	// Угол мира: окно обрезается границами
	res, err = f.terrain.Update(ctx, observerAt(d, ChunkCoord{Row: 0, Col: 0}), now)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Visible)
	assert.Equal(t, 0, res.Populated, "Уже заполненные чанки не заполняются повторно")
	assert.Equal(t, 5, res.Hidden)

	res, err = f.terrain.Update(ctx, observerAt(d, ChunkCoord{Row: 6, Col: 6}), now)
	require.NoError(t, err)
	assert.Equal(t, 9, res.Visible)
	assert.Equal(t, 9, res.Cleaned, "Чанки дальше радиуса удержания выгружаются")
	_, ok := f.terrain.ChunkAt(ChunkCoord{Row: 1, Col: 1})
	assert.False(t, ok)

	for _, c := range f.terrain.VisibleChunks() {
		chunk, ok := f.terrain.ChunkAt(c)
		require.True(t, ok)
		assert.True(t, chunk.IsVisible())
		assert.True(t, f.scene.Has(chunk.Mesh().NodeID()))
	}
	assert.False(t, f.scene.Has("chunk:1:1"), "Выгруженный чанк не должен оставаться в сцене")
}

func TestTerrainRetentionMargin(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 1)
	d := testDims()
	ctx := context.Background()

	_, err := f.terrain.Update(ctx, observerAt(d, ChunkCoord{Row: 3, Col: 3}), time.Time{})
	require.NoError(t, err)
	res, err := f.terrain.Update(ctx, observerAt(d, ChunkCoord{Row: 3, Col: 4}), time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Cleaned, "Сдвиг на один чанк не выходит за запас удержания")
	chunk, ok := f.terrain.ChunkAt(ChunkCoord{Row: 3, Col: 2})
	require.True(t, ok)
	assert.False(t, chunk.IsVisible())
	assert.Equal(t, StatePopulated, chunk.State())
}

func TestTerrainRuntimeRadiusChange(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 1)
	d := testDims()
	obs := observerAt(d, ChunkCoord{Row: 4, Col: 4})

	res, err := f.terrain.Update(context.Background(), obs, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 9, res.Visible)

	f.options.set(func(o *RuntimeOptions) { o.VisibleChunks = 2 })
	res, err = f.terrain.Update(context.Background(), obs, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 25, res.Visible, "Новый радиус применяется на следующем шаге")
	assert.Equal(t, 16, res.Populated)
}

func TestTerrainFrustumCulling(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 1)
	d := testDims()
	obs := observerAt(d, ChunkCoord{Row: 4, Col: 4})
	obs.Frustum = physics.NewPerspectiveFrustum(
		mgl64.Vec3{-500, 10, -500}, mgl64.Vec3{-1000, 10, -1000},
		mgl64.DegToRad(60), 1, 0.1, 100,
	)

	res, err := f.terrain.Update(context.Background(), obs, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Visible, "Чанки вне пирамиды видимости не показываются")
	assert.Equal(t, 0, res.Populated, "Чанки вне пирамиды видимости не заполняются")

	eye := obs.Position.Add(mgl64.Vec3{0, 40, -30})
	obs.Frustum = physics.NewPerspectiveFrustum(eye, obs.Position, mgl64.DegToRad(90), 1, 0.1, 500)
	res, err = f.terrain.Update(context.Background(), obs, time.Time{})
	require.NoError(t, err)
	assert.Greater(t, res.Visible, 0)
}

func TestTerrainRemotePlacementRoundTrip(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 1)
	d := testDims()
	ctx := context.Background()
	home := ChunkCoord{Row: 1, Col: 1}

	_, err := f.terrain.Update(ctx, observerAt(d, home), time.Time{})
	require.NoError(t, err)
	chunk, ok := f.terrain.ChunkAt(home)
	require.True(t, ok)

	p := findPlaceable(t, chunk, PickOptions{Force: true})
	p.ID = "remote-1"
	p.Origin = "node-b"
	require.True(t, f.terrain.ApplyRemotePlacement(ctx, *p, false))
	assert.True(t, chunk.HasObject("remote-1"))
	assert.Equal(t, 1, f.archive.count())
	assert.Equal(t, 1, f.progress.get(CounterRemotePlacements))
	visibleBefore := f.terrain.VisibleChunks()

	// Уходим далеко и возвращаемся: чанк пересоздаётся с тем же размещением
	_, err = f.terrain.Update(ctx, observerAt(d, ChunkCoord{Row: 6, Col: 6}), time.Time{})
	require.NoError(t, err)
	_, ok = f.terrain.ChunkAt(home)
	require.False(t, ok)

	_, err = f.terrain.Update(ctx, observerAt(d, home), time.Time{})
	require.NoError(t, err)
	chunk, ok = f.terrain.ChunkAt(home)
	require.True(t, ok)
	assert.True(t, chunk.HasObject("remote-1"), "Постоянное размещение восстанавливается после выгрузки")
	assert.Equal(t, SourceRemote, chunk.PersistentPlacements()[0].Source)
	assert.Equal(t, visibleBefore, f.terrain.VisibleChunks(), "Возврат восстанавливает видимый набор")
}

func TestTerrainRoundTripRestoresAmbient(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 1)
	d := testDims()
	ctx := context.Background()
	home := ChunkCoord{Row: 2, Col: 2}

	_, err := f.terrain.Update(ctx, observerAt(d, home), time.Time{})
	require.NoError(t, err)
	visible := f.terrain.VisibleChunks()
	chunk, ok := f.terrain.ChunkAt(home)
	require.True(t, ok)
	ambient := chunk.Objects()
	mesh := chunk.Mesh()

	_, err = f.terrain.Update(ctx, observerAt(d, ChunkCoord{Row: 7, Col: 7}), time.Time{})
	require.NoError(t, err)
	_, ok = f.terrain.ChunkAt(home)
	require.False(t, ok, "Дальний чанк выгружается")

	_, err = f.terrain.Update(ctx, observerAt(d, home), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, visible, f.terrain.VisibleChunks())

	again, ok := f.terrain.ChunkAt(home)
	require.True(t, ok)
	assert.ElementsMatch(t, ambient, again.Objects(), "Пересозданный чанк получает те же фоновые объекты")
	assert.True(t, mesh.Equal(again.Mesh()))
}

func TestTerrainRestoresFromArchive(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 1)
	d := testDims()
	ctx := context.Background()
	home := ChunkCoord{Row: 2, Col: 2}

	_, err := f.terrain.Update(ctx, observerAt(d, home), time.Time{})
	require.NoError(t, err)
	chunk, _ := f.terrain.ChunkAt(home)
	p := findPlaceable(t, chunk, PickOptions{Force: true})
	p.ID = "archived"
	require.True(t, f.terrain.ApplyRemotePlacement(ctx, *p, false))

	// Новый экземпляр с тем же архивом видит размещение
	restored, err := NewTerrain(TerrainConfig{
		Generator: testGenerator(t, biome.Temperate),
		Dims:      d,
		Options:   f.options,
		Archive:   f.archive,
	})
	require.NoError(t, err)
	_, err = restored.Update(ctx, observerAt(d, home), time.Time{})
	require.NoError(t, err)
	again, ok := restored.ChunkAt(home)
	require.True(t, ok)
	assert.True(t, again.HasObject("archived"))
	assert.Len(t, restored.PinnedPlacements(home), 1)
}

func TestTerrainRemotePlacementIdempotent(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 1)
	d := testDims()
	ctx := context.Background()
	home := ChunkCoord{Row: 3, Col: 3}

	_, err := f.terrain.Update(ctx, observerAt(d, home), time.Time{})
	require.NoError(t, err)
	chunk, _ := f.terrain.ChunkAt(home)
	base := chunk.ObjectCount()

	p := findPlaceable(t, chunk, PickOptions{Force: true})
	p.ID = "dup"
	p.Origin = "node-b"
	assert.True(t, f.terrain.ApplyRemotePlacement(ctx, *p, false))
	assert.False(t, f.terrain.ApplyRemotePlacement(ctx, *p, false), "Повтор того же ID игнорируется")

	same := *p
	same.ID = "other-id"
	assert.False(t, f.terrain.ApplyRemotePlacement(ctx, same, false), "Тот же тип в той же точке считается дубликатом")

	echo := *p
	echo.ID = "echo"
	echo.Origin = "node-a"
	echo.Position = echo.Position.Add(mgl64.Vec3{0.3, 0, 0})
	assert.False(t, f.terrain.ApplyRemotePlacement(ctx, echo, false), "Собственное эхо игнорируется")

	outside := *p
	outside.ID = "outside"
	outside.Position = mgl64.Vec3{-10, 0, -10}
	assert.False(t, f.terrain.ApplyRemotePlacement(ctx, outside, false))

	assert.Equal(t, base+1, chunk.ObjectCount())
	assert.Equal(t, 1, f.progress.get(CounterRemotePlacements))
	assert.Equal(t, 1, f.archive.count())
}

func TestTerrainRemotePlacementIntoUnloadedChunk(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 0)
	d := testDims()
	ctx := context.Background()
	far := ChunkCoord{Row: 7, Col: 7}

	// Находим точку размещения на отдельном экземпляре чанка
	probe := testChunk(t, testGenerator(t, biome.Temperate), far, nil)
	require.True(t, probe.Populate(nil))
	p := findPlaceable(t, probe, PickOptions{Force: true})
	p.ID = "late"
	p.Origin = "node-b"

	require.True(t, f.terrain.ApplyRemotePlacement(ctx, *p, true))
	_, ok := f.terrain.ChunkAt(far)
	assert.False(t, ok, "Размещение не создаёт чанк")
	require.Len(t, f.terrain.PinnedPlacements(far), 1)

	_, err := f.terrain.Update(ctx, observerAt(d, far), time.Time{})
	require.NoError(t, err)
	chunk, ok := f.terrain.ChunkAt(far)
	require.True(t, ok)
	assert.True(t, chunk.HasObject("late"), "Размещение применяется при заполнении чанка")
}

func TestTerrainAutoRemoteID(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 0)
	x, z := dryPoint(t, f.terrain.Generator(), testDims())
	p := Placement{Organism: "rock", Position: mgl64.Vec3{x, 0, z}, Scale: 1}
	require.True(t, f.terrain.ApplyRemotePlacement(context.Background(), p, false))

	coord, _ := f.terrain.ChunkCoordAt(x, z)
	pinned := f.terrain.PinnedPlacements(coord)
	require.Len(t, pinned, 1)
	assert.Regexp(t, `^remote:[0-9a-f]{16}$`, pinned[0].ID)
	assert.True(t, pinned[0].Persistent)
}

func TestPointerMoveWaterGating(t *testing.T) {
	f := newTerrainFixture(t, biome.Ocean, 1)
	now := time.Unix(10, 0)

	f.terrain.PointerMove(downRay, now)
	assert.Equal(t, []Surface{SurfaceTerrain, SurfaceWater}, f.raycaster.requested)

	f.options.set(func(o *RuntimeOptions) { o.WaterEffects = false })
	f.terrain.PointerMove(downRay, now.Add(time.Second))
	assert.Equal(t, []Surface{SurfaceTerrain}, f.raycaster.requested, "Без водных эффектов вода не запрашивается")

	// Попадание в воду, возвращённое вопреки запросу, отбрасывается
	f.raycaster.hits = []Hit{{Point: mgl64.Vec3{5, 0, 5}, Distance: 1, Surface: SurfaceWater}}
	preview := f.terrain.PointerMove(downRay, now.Add(2*time.Second))
	assert.False(t, preview.HasTarget)

	dry := newTerrainFixture(t, biome.Tundra, 1)
	dry.terrain.PointerMove(downRay, now)
	assert.Equal(t, []Surface{SurfaceTerrain}, dry.raycaster.requested, "Биом без воды не запрашивает воду")
}

func TestPreviewSurfaceChangeBypassesThrottle(t *testing.T) {
	f := newTerrainFixture(t, biome.Ocean, 1)
	now := time.Unix(10, 0)

	f.raycaster.hits = []Hit{{Point: mgl64.Vec3{5, 0, 5}, Distance: 2, Surface: SurfaceTerrain}}
	first := f.terrain.PointerMove(downRay, now)
	require.True(t, first.HasTarget)
	assert.Equal(t, SurfaceTerrain, first.Surface)

	f.raycaster.hits = []Hit{{Point: mgl64.Vec3{5, 1, 5}, Distance: 1, Surface: SurfaceWater}}
	swim := f.terrain.PointerMove(downRay, now.Add(time.Millisecond))
	assert.Equal(t, SurfaceWater, swim.Surface, "Смена поверхности пересчитывается без ожидания")
}

// commitFixture загружает мир и наводит указатель на допустимую точку
func commitFixture(t *testing.T) (*terrainFixture, *Placement, time.Time) {
	t.Helper()
	f := newTerrainFixture(t, biome.Temperate, 1)
	d := testDims()
	home := ChunkCoord{Row: 4, Col: 4}
	require.NoError(t, f.terrain.Load(context.Background(), chunkCenter(d, home)))
	_, err := f.terrain.Update(context.Background(), observerAt(d, home), time.Time{})
	require.NoError(t, err)

	chunk, ok := f.terrain.ChunkAt(home)
	require.True(t, ok)
	target := findPlaceable(t, chunk, PickOptions{Force: true})
	f.raycaster.hits = []Hit{
		{Point: target.Position, Distance: 3, Surface: SurfaceTerrain},
		{Point: mgl64.Vec3{0, 0, 0}, Distance: 50, Surface: SurfaceTerrain},
	}
	return f, target, time.Unix(100, 0)
}

func TestPreviewAndCommit(t *testing.T) {
	f, target, now := commitFixture(t)
	ctx := context.Background()

	assert.Nil(t, f.terrain.Commit(ctx, now), "Без предпросмотра фиксация невозможна")

	preview := f.terrain.PointerMove(downRay, now)
	require.True(t, preview.Valid())
	assert.Equal(t, target.Organism, preview.Candidate.Organism)
	assert.Equal(t, Previewing, f.terrain.InteractionState())
	assert.True(t, f.scene.Has(ghostNodeID), "Призрак кандидата показывается в сцене")

	placed := f.terrain.Commit(ctx, now)
	require.NotNil(t, placed)
	assert.Equal(t, Idle, f.terrain.InteractionState())
	assert.False(t, f.scene.Has(ghostNodeID))
	assert.Equal(t, SourceUser, placed.Source)
	assert.Equal(t, "node-a", placed.Origin)
	assert.NotEmpty(t, placed.ID)

	chunk, _ := f.terrain.ChunkAt(placed.Chunk)
	assert.True(t, chunk.HasObject(placed.ID))
	assert.True(t, f.scene.Has("obj:"+placed.ID))

	assert.Equal(t, 1, f.progress.get(CounterObjectsPlaced))
	assert.Equal(t, 1, f.progress.get("placed:"+placed.Organism))
	require.Len(t, f.broadcaster.sent, 1)
	assert.Equal(t, placed.ID, f.broadcaster.sent[0].ID)
	assert.Equal(t, 1, f.archive.count())

	// Звук проигрывается после задержки
	assert.Empty(t, f.feedback.played)
	obs := Observer{Position: placed.Position.Add(mgl64.Vec3{0, 30, 0})}
	_, err := f.terrain.Update(ctx, obs, now.Add(DefaultTuning().FeedbackDelay))
	require.NoError(t, err)
	assert.Equal(t, []string{"place:" + placed.Organism}, f.feedback.played)

	// Повторная фиксация в той же точке отклоняется
	f.terrain.PointerMove(downRay, now.Add(time.Second))
	assert.Nil(t, f.terrain.Commit(ctx, now.Add(time.Second)))
	assert.Equal(t, 1, f.archive.count())
}

func TestPreviewCancel(t *testing.T) {
	f, _, now := commitFixture(t)
	preview := f.terrain.PointerMove(downRay, now)
	require.True(t, preview.Valid())

	f.terrain.Cancel()
	assert.Equal(t, Idle, f.terrain.InteractionState())
	assert.False(t, f.scene.Has(ghostNodeID))
	assert.False(t, f.terrain.CurrentPreview().HasTarget)
	assert.Nil(t, f.terrain.Commit(context.Background(), now))
}

func TestPreviewThrottle(t *testing.T) {
	f, target, now := commitFixture(t)

	first := f.terrain.PointerMove(downRay, now)
	require.True(t, first.Valid())

	moved := target.Position.Add(mgl64.Vec3{0.05, 0, 0.05})
	f.raycaster.hits = []Hit{{Point: moved, Distance: 3, Surface: SurfaceTerrain}}

	// Между проверками призрак только следует за указателем
	tracked := f.terrain.PointerMove(downRay, now.Add(time.Millisecond))
	require.NotNil(t, tracked.Candidate)
	assert.Equal(t, moved, tracked.Point)
	assert.Equal(t, moved, tracked.Candidate.Position)
	assert.Equal(t, first.Candidate.Organism, tracked.Candidate.Organism)

	// Возвращённый предпросмотр — копия
	tracked.Candidate.Organism = "mutated"
	assert.Equal(t, first.Candidate.Organism, f.terrain.CurrentPreview().Candidate.Organism)

	// После паузы предпросмотр пересчитывается в той же под-области без смены организма
	again := f.terrain.PointerMove(downRay, now.Add(time.Second))
	if again.Candidate != nil && again.SubBiome == first.SubBiome {
		assert.Equal(t, first.Candidate.Organism, again.Candidate.Organism)
	}
}

func TestPointerMissClearsPreview(t *testing.T) {
	f, _, now := commitFixture(t)
	require.True(t, f.terrain.PointerMove(downRay, now).Valid())

	f.raycaster.hits = nil
	preview := f.terrain.PointerMove(downRay, now.Add(time.Millisecond))
	assert.False(t, preview.HasTarget)
	assert.False(t, f.scene.Has(ghostNodeID))
}

// underwaterPoint ищет точку под водой
func underwaterPoint(t *testing.T, gen *biome.Generator, d Dimensions) (float64, float64) {
	t.Helper()
	for z := 0.5; z < d.Depth(); z += d.CellSize {
		for x := 0.5; x < d.Width(); x += d.CellSize {
			if gen.IsUnderwater(x, z) {
				return x, z
			}
		}
	}
	t.Fatalf("Не найдено подводной точки")
	return 0, 0
}

// dryPoint ищет точку на суше
func dryPoint(t *testing.T, gen *biome.Generator, d Dimensions) (float64, float64) {
	t.Helper()
	for z := 0.5; z < d.Depth(); z += d.CellSize {
		for x := 0.5; x < d.Width(); x += d.CellSize {
			if !gen.IsUnderwater(x, z) {
				return x, z
			}
		}
	}
	t.Fatalf("Не найдено точки на суше")
	return 0, 0
}

func TestRemotePlacementRejectsUnknownOrganism(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 0)
	x, z := dryPoint(t, f.terrain.Generator(), testDims())
	p := Placement{ID: "ghost", Organism: "no_such_thing", Position: mgl64.Vec3{x, 0, z}, Origin: "node-b"}

	assert.False(t, f.terrain.ApplyRemotePlacement(context.Background(), p, false))
	coord, _ := f.terrain.ChunkCoordAt(x, z)
	assert.Empty(t, f.terrain.PinnedPlacements(coord))
	assert.Equal(t, 0, f.archive.count(), "Отклонённое размещение не архивируется")
	assert.Equal(t, 0, f.progress.get(CounterRemotePlacements))
}

func TestRemotePlacementWaterRule(t *testing.T) {
	f := newTerrainFixture(t, biome.Ocean, 0)
	x, z := underwaterPoint(t, f.terrain.Generator(), testDims())
	ctx := context.Background()

	land := Placement{ID: "drowned", Organism: "rock", Position: mgl64.Vec3{x, 0, z}, Origin: "node-b"}
	assert.False(t, f.terrain.ApplyRemotePlacement(ctx, land, false), "Наземный организм под водой отклоняется")

	kelp := Placement{ID: "kelp-1", Organism: "kelp", Position: mgl64.Vec3{x, 0, z}, Origin: "node-b"}
	assert.True(t, f.terrain.ApplyRemotePlacement(ctx, kelp, false))
	assert.Equal(t, 1, f.archive.count())
}

func TestRemotePlacementChecksPopulatedChunk(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 1)
	d := testDims()
	ctx := context.Background()
	home := ChunkCoord{Row: 2, Col: 5}

	_, err := f.terrain.Update(ctx, observerAt(d, home), time.Time{})
	require.NoError(t, err)
	chunk, ok := f.terrain.ChunkAt(home)
	require.True(t, ok)

	p := findPlaceable(t, chunk, PickOptions{Force: true})
	p.ID = "first"
	p.Origin = "node-b"
	require.True(t, f.terrain.ApplyRemotePlacement(ctx, *p, false))

	// Другой организм вплотную к первому нарушает минимальную дистанцию
	crowd := *p
	crowd.ID = "crowd"
	crowd.Organism = "boulder"
	crowd.Float = false
	crowd.Position = p.Position.Add(mgl64.Vec3{0.1, 0, 0.1})
	count := chunk.ObjectCount()
	assert.False(t, f.terrain.ApplyRemotePlacement(ctx, crowd, false))
	assert.False(t, chunk.HasObject("crowd"))
	assert.Equal(t, count, chunk.ObjectCount())
	assert.Equal(t, 1, f.archive.count())
}

func TestObserverUnderwaterCounter(t *testing.T) {
	f := newTerrainFixture(t, biome.Ocean, 0)
	gen := f.terrain.Generator()
	ctx := context.Background()
	x, z := underwaterPoint(t, gen, testDims())
	water := gen.ComputeWaterHeightAt(x, z)

	below := Observer{Position: mgl64.Vec3{x, water - 0.5, z}}
	above := Observer{Position: mgl64.Vec3{x, water + 5, z}}

	_, err := f.terrain.Update(ctx, below, time.Time{})
	require.NoError(t, err)
	_, err = f.terrain.Update(ctx, below, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.progress.get(CounterObserverUnderwater), "Счётчик растёт только при входе в воду")
	assert.True(t, f.terrain.Stats().Underwater)

	_, err = f.terrain.Update(ctx, above, time.Time{})
	require.NoError(t, err)
	_, err = f.terrain.Update(ctx, below, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, f.progress.get(CounterObserverUnderwater))

	f.options.set(func(o *RuntimeOptions) { o.WaterEffects = false })
	_, err = f.terrain.Update(ctx, above, time.Time{})
	require.NoError(t, err)
	_, err = f.terrain.Update(ctx, below, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, f.progress.get(CounterObserverUnderwater), "Без водных эффектов подводный режим выключен")
}

func TestSpecialObjects(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 0)
	gen := f.terrain.Generator()

	placed := f.terrain.PlaceSpecialObjects([]SpecialSpec{{Organism: "monolith", Count: 3, MinE: 0.35}})
	require.Len(t, placed, 3)
	for i, p := range placed {
		assert.Equal(t, SourceSpecial, p.Source)
		assert.GreaterOrEqual(t, gen.ComputeElevationAt(p.Position.X(), p.Position.Z()), 0.35)
		assert.False(t, gen.IsUnderwater(p.Position.X(), p.Position.Z()))
		for _, q := range placed[i+1:] {
			assert.GreaterOrEqual(t, p.XZ().DistanceTo(q.XZ()), 6.0, "Особые объекты соблюдают дистанцию")
		}
		assert.Len(t, f.terrain.PinnedPlacements(p.Chunk), countIn(placed, p.Chunk))
	}

	// Недостижимая полоса высот исчерпывает лимит итераций
	none := f.terrain.PlaceSpecialObjects([]SpecialSpec{{Organism: "shrine", Count: 1, MinE: 2, MaxE: 3}})
	assert.Empty(t, none)

	unknown := f.terrain.PlaceSpecialObjects([]SpecialSpec{{Organism: "dragon", Count: 1}})
	assert.Empty(t, unknown)
}

func countIn(ps []Placement, c ChunkCoord) int {
	n := 0
	for _, p := range ps {
		if p.Chunk == c {
			n++
		}
	}
	return n
}

func TestSpecialObjectsDeterministic(t *testing.T) {
	specs := []SpecialSpec{{Organism: "shrine", Count: 2}}
	a := newTerrainFixture(t, biome.Highland, 0).terrain.PlaceSpecialObjects(specs)
	b := newTerrainFixture(t, biome.Highland, 0).terrain.PlaceSpecialObjects(specs)
	assert.Equal(t, a, b)
}

func TestSpecialObjectsRestoredOnLoad(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 0)
	placed := f.terrain.PlaceSpecialObjects([]SpecialSpec{{Organism: "monolith", Count: 1, MinE: 0.35}})
	require.Len(t, placed, 1)

	_, err := f.terrain.Update(context.Background(), Observer{Position: placed[0].Position}, time.Time{})
	require.NoError(t, err)
	chunk, ok := f.terrain.ChunkAt(placed[0].Chunk)
	require.True(t, ok)
	assert.True(t, chunk.HasObject(placed[0].ID))
	assert.Equal(t, 0, f.archive.count(), "Особые объекты не архивируются")
}

func TestTerrainStatsAndSample(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 1)
	d := testDims()
	require.NoError(t, f.terrain.Load(context.Background(), chunkCenter(d, ChunkCoord{Row: 2, Col: 2})))

	stats := f.terrain.Stats()
	assert.Equal(t, "temperate", stats.Biome)
	assert.Equal(t, 9, stats.LoadedChunks)
	assert.Equal(t, 9, stats.PopulatedChunks)
	assert.Equal(t, Idle, stats.Interaction)

	s := f.terrain.Sample(7.5, 9.25)
	gen := f.terrain.Generator()
	assert.Equal(t, gen.ComputeElevationAt(7.5, 9.25), s.Elevation)
	assert.Equal(t, gen.SubBiomeAt(7.5, 9.25).Name, s.SubBiome)
	assert.Equal(t, gen.ComputeHeightAt(7.5, 9.25), s.Height)
}

func TestOnPlacementListener(t *testing.T) {
	f := newTerrainFixture(t, biome.Temperate, 0)
	var seen []string
	f.terrain.OnPlacement(func(p Placement) { seen = append(seen, p.ID) })

	x, z := dryPoint(t, f.terrain.Generator(), testDims())
	p := Placement{ID: "listened", Organism: "rock", Position: mgl64.Vec3{x, 0, z}, Origin: "node-b"}
	require.True(t, f.terrain.ApplyRemotePlacement(context.Background(), p, false))
	assert.Equal(t, []string{"listened"}, seen)
}

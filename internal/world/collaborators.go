package world

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/biome-terrain/internal/physics"
)

// SceneNode — узел графа сцены (меш чанка, объект, юбка)
type SceneNode interface {
	NodeID() string
}

// Scene — логическое членство узлов в отрисовке
type Scene interface {
	Add(node SceneNode)
	Remove(node SceneNode)
}

// Surface — тип поверхности для пересечения луча
type Surface string

const (
	SurfaceTerrain Surface = "terrain"
	SurfaceWater   Surface = "water"
)

// Hit — пересечение луча с поверхностью
type Hit struct {
	Point    mgl64.Vec3
	Distance float64
	Surface  Surface
}

// Raycaster пересекает луч со списком поверхностей и возвращает упорядоченные попадания
type Raycaster interface {
	Intersect(ray physics.Ray, surfaces []Surface) []Hit
}

// Progress принимает именованные счётчики прогресса (fire-and-forget)
type Progress interface {
	Increment(counter string)
}

// PlacementBroadcaster рассылает локальные размещения другим участникам
type PlacementBroadcaster interface {
	BroadcastPlacement(p Placement)
}

// Feedback проигрывает косметические эффекты
type Feedback interface {
	PlaySound(name string, at mgl64.Vec3)
}

// PlacementArchive хранит постоянные размещения вне памяти
type PlacementArchive interface {
	LoadChunk(ctx context.Context, coord ChunkCoord) ([]Placement, error)
	Save(ctx context.Context, p Placement) error
}

// StreamMetrics получает телеметрию стриминга
type StreamMetrics interface {
	ChunkPopulated(coord ChunkCoord, objects int, took time.Duration)
	ChunkCleaned(coord ChunkCoord)
	VisibleChunks(n int)
	PlacementApplied(source Source)
}

// Счётчики прогресса
const (
	CounterObjectsPlaced      = "objects_placed"
	CounterObserverUnderwater = "observer_underwater"
	CounterRemotePlacements   = "remote_placements"
)

type nopScene struct{}

func (nopScene) Add(SceneNode)    {}
func (nopScene) Remove(SceneNode) {}

type nopProgress struct{}

func (nopProgress) Increment(string) {}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastPlacement(Placement) {}

type nopFeedback struct{}

func (nopFeedback) PlaySound(string, mgl64.Vec3) {}

type nopArchive struct{}

func (nopArchive) LoadChunk(context.Context, ChunkCoord) ([]Placement, error) { return nil, nil }
func (nopArchive) Save(context.Context, Placement) error                     { return nil }

type nopMetrics struct{}

func (nopMetrics) ChunkPopulated(ChunkCoord, int, time.Duration) {}
func (nopMetrics) ChunkCleaned(ChunkCoord)                       {}
func (nopMetrics) VisibleChunks(int)                             {}
func (nopMetrics) PlacementApplied(Source)                       {}

// Broadcasters объединяет нескольких получателей размещений
type Broadcasters []PlacementBroadcaster

// BroadcastPlacement рассылает размещение всем получателям
func (b Broadcasters) BroadcastPlacement(p Placement) {
	for _, r := range b {
		if r != nil {
			r.BroadcastPlacement(p)
		}
	}
}

package world

import (
	"fmt"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/annel0/biome-terrain/internal/vec"
)

// Source — происхождение размещения
type Source string

const (
	SourceAmbient Source = "ambient" // фоновое рассеивание, восстанавливается из сида
	SourceUser    Source = "user"    // размещено локальным наблюдателем
	SourceRemote  Source = "remote"  // получено от другого участника
	SourceSpecial Source = "special" // сюжетный объект, расставленный при генерации
)

// Placement — конкретный экземпляр объекта («пик») до или после фиксации
type Placement struct {
	ID         string     `json:"id"`
	Organism   string     `json:"organism"`
	Position   mgl64.Vec3 `json:"position"`
	Scale      float64    `json:"scale"`
	Rotation   float64    `json:"rotation"` // радианы вокруг оси Y
	Float      bool       `json:"float"`    // лежит на поверхности воды
	Persistent bool       `json:"persistent"`
	Source     Source     `json:"source"`
	Chunk      ChunkCoord `json:"chunk"`
	Origin     string     `json:"origin,omitempty"` // узел, создавший размещение
}

// XZ возвращает проекцию позиции на плоскость XZ
func (p Placement) XZ() vec.Vec2Float {
	return vec.XZ(p.Position.X(), p.Position.Z())
}

// IdentityKey — ключ идентичности по типу и позиции (с точностью 0.01)
func (p Placement) IdentityKey() uint64 {
	x := math.Round(p.Position.X() * 100)
	z := math.Round(p.Position.Z() * 100)
	return xxhash.Sum64String(fmt.Sprintf("%s|%.0f|%.0f", p.Organism, x, z))
}

// NewPlacementID генерирует идентификатор пользовательского размещения
func NewPlacementID() string {
	return uuid.NewString()
}

func ambientID(c ChunkCoord, n int) string {
	return fmt.Sprintf("ambient:%d:%d:%d", c.Row, c.Col, n)
}

// chunkSeed выводит сид рассеивания чанка из сида мира
func chunkSeed(seed int64, c ChunkCoord) int64 {
	var buf [24]byte
	putUint64(buf[0:], uint64(seed))
	putUint64(buf[8:], uint64(int64(c.Row)))
	putUint64(buf[16:], uint64(int64(c.Col)))
	return int64(xxhash.Sum64(buf[:]) & math.MaxInt64)
}

// pointSeed выводит сид для интерактивного пика в точке
func pointSeed(seed int64, x, z float64) int64 {
	var buf [24]byte
	putUint64(buf[0:], uint64(seed))
	putUint64(buf[8:], uint64(int64(math.Round(x*100))))
	putUint64(buf[16:], uint64(int64(math.Round(z*100))))
	return int64(xxhash.Sum64(buf[:]) & math.MaxInt64)
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func sortPlacements(ps []Placement) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
}

package world

import (
	"fmt"
	"sync"

	"github.com/annel0/biome-terrain/internal/vec"
)

// SpatialIndex — равномерная сетка для быстрого поиска соседних размещений
type SpatialIndex struct {
	cellSize float64
	mu       sync.RWMutex
	cells    map[vec.Vec2]map[string]*indexedPlacement
	entries  map[string]*indexedPlacement
	maxSep   float64
}

// indexedPlacement представляет индексированное размещение
type indexedPlacement struct {
	id         string
	pos        vec.Vec2Float
	separation float64
	cell       vec.Vec2
}

// NewSpatialIndex создаёт новый пространственный индекс
func NewSpatialIndex(cellSize float64) *SpatialIndex {
	if cellSize <= 0 {
		cellSize = 4.0
	}

	return &SpatialIndex{
		cellSize: cellSize,
		cells:    make(map[vec.Vec2]map[string]*indexedPlacement),
		entries:  make(map[string]*indexedPlacement),
	}
}

// Insert добавляет точку с радиусом отталкивания. Повторная вставка обновляет позицию.
func (si *SpatialIndex) Insert(id string, pos vec.Vec2Float, separation float64) {
	si.mu.Lock()
	defer si.mu.Unlock()

	if old, exists := si.entries[id]; exists {
		si.removeLocked(old)
	}

	indexed := &indexedPlacement{
		id:         id,
		pos:        pos,
		separation: separation,
		cell:       vec.CellOf(pos.X, pos.Y, si.cellSize),
	}

	cell, ok := si.cells[indexed.cell]
	if !ok {
		cell = make(map[string]*indexedPlacement)
		si.cells[indexed.cell] = cell
	}
	cell[id] = indexed
	si.entries[id] = indexed

	if separation > si.maxSep {
		si.maxSep = separation
	}
}

func (si *SpatialIndex) removeLocked(indexed *indexedPlacement) {
	delete(si.entries, indexed.id)
	if cell, ok := si.cells[indexed.cell]; ok {
		delete(cell, indexed.id)
		if len(cell) == 0 {
			delete(si.cells, indexed.cell)
		}
	}
}

// Reset очищает индекс
func (si *SpatialIndex) Reset() {
	si.mu.Lock()
	si.cells = make(map[vec.Vec2]map[string]*indexedPlacement)
	si.entries = make(map[string]*indexedPlacement)
	si.maxSep = 0
	si.mu.Unlock()
}

// QueryRange вызывает fn для каждой точки в радиусе от center; fn == false прерывает обход
func (si *SpatialIndex) QueryRange(center vec.Vec2Float, radius float64, fn func(id string, pos vec.Vec2Float, separation float64) bool) {
	si.mu.RLock()
	defer si.mu.RUnlock()

	minCell := vec.CellOf(center.X-radius, center.Y-radius, si.cellSize)
	maxCell := vec.CellOf(center.X+radius, center.Y+radius, si.cellSize)

	for x := minCell.X; x <= maxCell.X; x++ {
		for z := minCell.Y; z <= maxCell.Y; z++ {
			cell, ok := si.cells[vec.Vec2{X: x, Y: z}]
			if !ok {
				continue
			}
			for _, indexed := range cell {
				if indexed.pos.DistanceTo(center) > radius {
					continue
				}
				if !fn(indexed.id, indexed.pos, indexed.separation) {
					return
				}
			}
		}
	}
}

// AnyWithin проверяет, есть ли точка ближе radius
func (si *SpatialIndex) AnyWithin(center vec.Vec2Float, radius float64) bool {
	found := false
	si.QueryRange(center, radius, func(string, vec.Vec2Float, float64) bool {
		found = true
		return false
	})
	return found
}

// MaxSeparation возвращает наибольший радиус отталкивания среди вставленных точек
func (si *SpatialIndex) MaxSeparation() float64 {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return si.maxSep
}

// Len возвращает количество индексированных точек
func (si *SpatialIndex) Len() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.entries)
}

// GetStats возвращает статистику индекса
func (si *SpatialIndex) GetStats() string {
	si.mu.RLock()
	defer si.mu.RUnlock()

	maxPerCell := 0
	for _, cell := range si.cells {
		if len(cell) > maxPerCell {
			maxPerCell = len(cell)
		}
	}
	avg := 0.0
	if len(si.cells) > 0 {
		avg = float64(len(si.entries)) / float64(len(si.cells))
	}
	return fmt.Sprintf("SpatialIndex Stats: %d placements, %d cells, avg %.2f/cell, max %d/cell",
		len(si.entries), len(si.cells), avg, maxPerCell)
}

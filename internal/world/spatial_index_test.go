package world

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/biome-terrain/internal/vec"
)

func TestSpatialIndexQueryRange(t *testing.T) {
	si := NewSpatialIndex(4)
	si.Insert("a", vec.XZ(1, 1), 2)
	si.Insert("b", vec.XZ(5, 1), 1)
	si.Insert("c", vec.XZ(-20, -20), 3)

	var found []string
	si.QueryRange(vec.XZ(0, 0), 6, func(id string, _ vec.Vec2Float, _ float64) bool {
		found = append(found, id)
		return true
	})
	assert.ElementsMatch(t, []string{"a", "b"}, found, "Запрос должен найти точки в радиусе, в том числе из соседней ячейки")

	assert.True(t, si.AnyWithin(vec.XZ(-19, -19), 2))
	assert.False(t, si.AnyWithin(vec.XZ(10, 10), 2))
	assert.Equal(t, 3.0, si.MaxSeparation())
	assert.Equal(t, 3, si.Len())
}

func TestSpatialIndexUpdateAndReset(t *testing.T) {
	si := NewSpatialIndex(0)
	si.Insert("a", vec.XZ(1, 1), 1)
	si.Insert("a", vec.XZ(30, 30), 1)
	assert.Equal(t, 1, si.Len(), "Повторная вставка обновляет позицию")
	assert.False(t, si.AnyWithin(vec.XZ(1, 1), 1))
	assert.True(t, si.AnyWithin(vec.XZ(30, 30), 0.1))

	assert.Contains(t, si.GetStats(), "1 placements")

	si.Insert("b", vec.XZ(2, 2), 5)
	si.Reset()
	assert.Equal(t, 0, si.Len())
	assert.Equal(t, 0.0, si.MaxSeparation())
	assert.Contains(t, si.GetStats(), "0 placements")
}

func TestSpatialIndexEarlyStop(t *testing.T) {
	si := NewSpatialIndex(2)
	for i := 0; i < 10; i++ {
		si.Insert(string(rune('a'+i)), vec.XZ(float64(i)*0.1, 0), 0.5)
	}
	calls := 0
	si.QueryRange(vec.XZ(0, 0), 5, func(string, vec.Vec2Float, float64) bool {
		calls++
		return false
	})
	assert.Equal(t, 1, calls, "Обход прерывается, когда fn возвращает false")
}

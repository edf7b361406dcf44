package storage

import (
	"context"
	"sync"

	"github.com/annel0/biome-terrain/internal/world"
)

// MemoryPlacementRepo хранит размещения в памяти.
// Используется как fallback, когда внешнее хранилище недоступно, и в тестах.
// ВНИМАНИЕ: данные теряются при перезапуске!
type MemoryPlacementRepo struct {
	mu      sync.RWMutex
	byID    map[string]world.Placement
	byChunk map[world.ChunkCoord]map[string]struct{}
}

// NewMemoryPlacementRepo создаёт пустой репозиторий
func NewMemoryPlacementRepo() *MemoryPlacementRepo {
	return &MemoryPlacementRepo{
		byID:    make(map[string]world.Placement),
		byChunk: make(map[world.ChunkCoord]map[string]struct{}),
	}
}

// Save сохраняет размещение
func (r *MemoryPlacementRepo) Save(ctx context.Context, p world.Placement) error {
	if err := validate(p); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byID[p.ID]; ok && old.Chunk != p.Chunk {
		delete(r.byChunk[old.Chunk], p.ID)
	}
	r.byID[p.ID] = p
	set, ok := r.byChunk[p.Chunk]
	if !ok {
		set = make(map[string]struct{})
		r.byChunk[p.Chunk] = set
	}
	set[p.ID] = struct{}{}
	return nil
}

// LoadChunk возвращает размещения чанка
func (r *MemoryPlacementRepo) LoadChunk(ctx context.Context, c world.ChunkCoord) ([]world.Placement, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]world.Placement, 0, len(r.byChunk[c]))
	for id := range r.byChunk[c] {
		out = append(out, r.byID[id])
	}
	sortByID(out)
	return out, nil
}

// Get возвращает размещение по ID
func (r *MemoryPlacementRepo) Get(_ context.Context, id string) (world.Placement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return world.Placement{}, ErrNotFound
	}
	return p, nil
}

// Delete удаляет размещение
func (r *MemoryPlacementRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byID[id]; ok {
		delete(r.byChunk[p.Chunk], id)
		delete(r.byID, id)
	}
	return nil
}

// Count возвращает общее число размещений
func (r *MemoryPlacementRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Close ничего не делает
func (r *MemoryPlacementRepo) Close() error { return nil }

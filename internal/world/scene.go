package world

import (
	"sort"
	"sync"
)

// MemoryScene — сцена в памяти: хранит членство узлов без отрисовки
type MemoryScene struct {
	mu    sync.RWMutex
	nodes map[string]SceneNode
}

// NewMemoryScene создаёт пустую сцену
func NewMemoryScene() *MemoryScene {
	return &MemoryScene{nodes: make(map[string]SceneNode)}
}

// Add добавляет узел (повторное добавление заменяет узел)
func (s *MemoryScene) Add(node SceneNode) {
	s.mu.Lock()
	s.nodes[node.NodeID()] = node
	s.mu.Unlock()
}

// Remove удаляет узел
func (s *MemoryScene) Remove(node SceneNode) {
	s.mu.Lock()
	delete(s.nodes, node.NodeID())
	s.mu.Unlock()
}

// Has проверяет наличие узла
func (s *MemoryScene) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok
}

// Get возвращает узел по идентификатору
func (s *MemoryScene) Get(id string) (SceneNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// Len возвращает число узлов в сцене
func (s *MemoryScene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// IDs возвращает отсортированные идентификаторы узлов
func (s *MemoryScene) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

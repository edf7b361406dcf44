package config

import (
	"sync"

	"github.com/annel0/biome-terrain/internal/logging"
	"github.com/annel0/biome-terrain/internal/world"
)

// Store хранит изменяемые во время работы настройки и оповещает подписчиков.
// Реализует world.OptionsProvider.
type Store struct {
	mu          sync.RWMutex
	opts        world.RuntimeOptions
	subscribers []func(prev, next world.RuntimeOptions)
}

// NewStore создаёт хранилище с начальными настройками
func NewStore(initial world.RuntimeOptions) *Store {
	return &Store{opts: sanitize(initial)}
}

// Options возвращает текущие настройки
func (s *Store) Options() world.RuntimeOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// Update применяет изменение и оповещает подписчиков. Подписчики вызываются вне блокировки.
func (s *Store) Update(fn func(*world.RuntimeOptions)) world.RuntimeOptions {
	s.mu.Lock()
	prev := s.opts
	next := prev
	fn(&next)
	next = sanitize(next)
	s.opts = next
	subs := append([]func(prev, next world.RuntimeOptions){}, s.subscribers...)
	s.mu.Unlock()

	if prev != next {
		logging.Info("⚙️ Настройки изменены: радиус %d, вода %v, погода %v, отладка %v",
			next.VisibleChunks, next.WaterEffects, next.WeatherEffects, next.DebugOverlay)
		for _, sub := range subs {
			sub(prev, next)
		}
	}
	return next
}

// Subscribe регистрирует наблюдателя за изменениями
func (s *Store) Subscribe(fn func(prev, next world.RuntimeOptions)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

func sanitize(o world.RuntimeOptions) world.RuntimeOptions {
	if o.VisibleChunks < 0 {
		o.VisibleChunks = 0
	}
	return o
}

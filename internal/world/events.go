package world

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// EventType определяет тип отложенного события
type EventType uint8

const (
	EventScaleStep EventType = iota // Шаг анимации появления объекта
	EventFeedback                   // Звук подтверждения размещения
)

// String возвращает имя типа события
func (t EventType) String() string {
	switch t {
	case EventScaleStep:
		return "scale_step"
	case EventFeedback:
		return "feedback"
	default:
		return "unknown"
	}
}

// ScheduledEvent — косметическое событие с токеном поколения чанка.
// Если чанк был очищен после планирования, событие игнорируется.
type ScheduledEvent struct {
	Type        EventType
	At          time.Time
	Chunk       *Chunk
	Generation  uint64
	PlacementID string
	Step        int
	Steps       int
	Sound       string
	Position    mgl64.Vec3

	seq uint64
}

// stale сообщает, что чанк события был очищен после планирования
func (e ScheduledEvent) stale() bool {
	return e.Chunk != nil && e.Chunk.Generation() != e.Generation
}

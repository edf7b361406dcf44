package world

import (
	"container/heap"
	"sync"
	"time"
)

type eventQueue []ScheduledEvent

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].At.Equal(q[j].At) {
		return q[i].seq < q[j].seq
	}
	return q[i].At.Before(q[j].At)
}
func (q eventQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x interface{}) { *q = append(*q, x.(ScheduledEvent)) }
func (q *eventQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Scheduler выполняет отложенные косметические события на тике симуляции.
// Время задаёт вызывающий через Advance, поэтому поведение детерминировано.
type Scheduler struct {
	mu       sync.Mutex
	queue    eventQueue
	seq      uint64
	now      time.Time
	feedback Feedback
	dropped  uint64
}

// NewScheduler создаёт планировщик
func NewScheduler(feedback Feedback) *Scheduler {
	if feedback == nil {
		feedback = nopFeedback{}
	}
	return &Scheduler{feedback: feedback}
}

// Now возвращает время последнего Advance
func (s *Scheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now.IsZero() {
		return time.Now()
	}
	return s.now
}

// Schedule ставит событие в очередь
func (s *Scheduler) Schedule(ev ScheduledEvent) {
	s.mu.Lock()
	s.seq++
	ev.seq = s.seq
	heap.Push(&s.queue, ev)
	s.mu.Unlock()
}

// Advance выполняет все события со временем не позже now и возвращает их число
func (s *Scheduler) Advance(now time.Time) int {
	s.mu.Lock()
	if now.After(s.now) {
		s.now = now
	}
	var due []ScheduledEvent
	for s.queue.Len() > 0 && !s.queue[0].At.After(now) {
		due = append(due, heap.Pop(&s.queue).(ScheduledEvent))
	}
	s.mu.Unlock()

	fired := 0
	for _, ev := range due {
		if ev.stale() {
			s.mu.Lock()
			s.dropped++
			s.mu.Unlock()
			continue
		}
		switch ev.Type {
		case EventScaleStep:
			if ev.Chunk != nil {
				ev.Chunk.applyScaleStep(ev)
			}
		case EventFeedback:
			s.feedback.PlaySound(ev.Sound, ev.Position)
		}
		fired++
	}
	return fired
}

// Pending возвращает число ожидающих событий
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Dropped возвращает число событий, отброшенных из-за очистки чанка
func (s *Scheduler) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

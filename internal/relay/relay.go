// Package relay связывает Terrain с шиной событий: рассылает постоянные
// размещения другим участникам и применяет полученные от них.
package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/biome-terrain/internal/eventbus"
	"github.com/annel0/biome-terrain/internal/logging"
	"github.com/annel0/biome-terrain/internal/world"
)

// ObjectPlaced — полезная нагрузка события EventObjectPlaced
type ObjectPlaced struct {
	Placement world.Placement `json:"placement"`
}

// Applier применяет размещение, полученное от другого участника
type Applier interface {
	ApplyRemotePlacement(ctx context.Context, p world.Placement, animate bool) bool
}

// Stats — счётчики ретранслятора
type Stats struct {
	Sent     uint64 `json:"sent"`
	Dropped  uint64 `json:"dropped"`
	Received uint64 `json:"received"`
	Applied  uint64 `json:"applied"`
	Ignored  uint64 `json:"ignored"`
}

// Relay реализует world.PlacementBroadcaster.
// Исходящие размещения уходят в шину из отдельной горутины, чтобы не держать
// мьютекс Terrain на время сетевого вызова.
type Relay struct {
	bus     eventbus.EventBus
	nodeID  string
	animate bool
	log     *logging.Logger

	out  chan world.Placement
	quit chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once

	mu  sync.Mutex
	sub eventbus.Subscription

	sent, dropped, received, applied, ignored uint64
}

// New создаёт ретранслятор. animate — проигрывать ли анимацию для чужих размещений.
func New(bus eventbus.EventBus, nodeID string, animate bool) *Relay {
	return &Relay{
		bus:     bus,
		nodeID:  nodeID,
		animate: animate,
		log:     logging.GetRelayLogger(),
		out:     make(chan world.Placement, 256),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// NodeID возвращает идентификатор узла
func (r *Relay) NodeID() string { return r.nodeID }

// BroadcastPlacement ставит размещение в очередь отправки. Не блокирует.
func (r *Relay) BroadcastPlacement(p world.Placement) {
	select {
	case r.out <- p:
	default:
		atomic.AddUint64(&r.dropped, 1)
		r.log.Warn("⚠️ Relay: очередь отправки переполнена, размещение %s отброшено", p.ID)
	}
}

// Start подписывается на входящие размещения и запускает отправку
func (r *Relay) Start(ctx context.Context, applier Applier) error {
	filter := eventbus.Filter{
		Types:          []string{eventbus.EventObjectPlaced},
		ExcludeSources: []string{r.nodeID},
	}
	sub, err := r.bus.Subscribe(ctx, filter, func(ctx context.Context, ev *eventbus.Envelope) {
		r.handle(ctx, applier, ev)
	})
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.sub = sub
	r.mu.Unlock()

	r.wg.Add(1)
	go r.sendLoop(ctx)
	r.log.Info("🔁 Relay %s запущен", r.nodeID)
	return nil
}

// Stop отписывается и дожидается отправки очереди
func (r *Relay) Stop() {
	r.once.Do(func() {
		r.mu.Lock()
		if r.sub != nil {
			r.sub.Unsubscribe()
		}
		r.mu.Unlock()
		close(r.quit)
		r.wg.Wait()
	})
}

// Done закрывается, когда цикл отправки завершён (Stop или отмена контекста Start)
func (r *Relay) Done() <-chan struct{} { return r.done }

func (r *Relay) sendLoop(ctx context.Context) {
	defer r.wg.Done()
	defer close(r.done)
	for {
		select {
		case p := <-r.out:
			r.publish(ctx, p)
		case <-ctx.Done():
			r.log.Info("🔁 Relay %s: контекст отменён, отправляем остаток очереди", r.nodeID)
			r.drain(ctx)
			return
		case <-r.quit:
			r.drain(ctx)
			return
		}
	}
}

// drain отправляет то, что осталось в очереди
func (r *Relay) drain(ctx context.Context) {
	for {
		select {
		case p := <-r.out:
			r.publish(ctx, p)
		default:
			return
		}
	}
}

func (r *Relay) publish(ctx context.Context, p world.Placement) {
	ev, err := eventbus.NewEnvelope(r.nodeID, eventbus.EventObjectPlaced, 5, ObjectPlaced{Placement: p})
	if err != nil {
		r.log.Error("❌ Relay: %v", err)
		return
	}
	ev.CorrelationID = p.ID

	// Отмена ctx не прерывает принятую отправку, действует только таймаут
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.bus.Publish(pctx, ev); err != nil {
		atomic.AddUint64(&r.dropped, 1)
		r.log.Warn("⚠️ Relay: не удалось отправить размещение %s: %v", p.ID, err)
		return
	}
	atomic.AddUint64(&r.sent, 1)
}

func (r *Relay) handle(ctx context.Context, applier Applier, ev *eventbus.Envelope) {
	atomic.AddUint64(&r.received, 1)
	if ev.Source == r.nodeID {
		atomic.AddUint64(&r.ignored, 1)
		return
	}

	var msg ObjectPlaced
	if err := ev.Decode(&msg); err != nil {
		atomic.AddUint64(&r.ignored, 1)
		r.log.Warn("⚠️ Relay: %v", err)
		return
	}
	if msg.Placement.Origin == "" {
		msg.Placement.Origin = ev.Source
	}

	if applier.ApplyRemotePlacement(ctx, msg.Placement, r.animate) {
		atomic.AddUint64(&r.applied, 1)
		r.log.Debug("Relay: применено размещение %s от %s", msg.Placement.ID, ev.Source)
		return
	}
	atomic.AddUint64(&r.ignored, 1)
}

// Stats возвращает счётчики
func (r *Relay) Stats() Stats {
	return Stats{
		Sent:     atomic.LoadUint64(&r.sent),
		Dropped:  atomic.LoadUint64(&r.dropped),
		Received: atomic.LoadUint64(&r.received),
		Applied:  atomic.LoadUint64(&r.applied),
		Ignored:  atomic.LoadUint64(&r.ignored),
	}
}

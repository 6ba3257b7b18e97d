package notify

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/gridpool/market-engine/internal/domain"
)

// Bus fans engine events out to subscribed participants over buffered
// channels. Publish never blocks: an event for a saturated subscriber is
// dropped and counted, so a slow consumer can never stall a clearing round.
type Bus struct {
	logger *zap.Logger
	buffer int

	mu      sync.RWMutex
	subs    map[string]chan domain.Event
	dropped atomic.Int64
}

func NewBus(buffer int, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		logger: logger,
		buffer: buffer,
		subs:   make(map[string]chan domain.Event),
	}
}

// Subscribe registers a participant and returns its event channel. An
// existing subscription under the same id is replaced.
func (b *Bus) Subscribe(actorID string) <-chan domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if old, ok := b.subs[actorID]; ok {
		close(old)
	}
	ch := make(chan domain.Event, b.buffer)
	b.subs[actorID] = ch
	return ch
}

// Unsubscribe drops a participant and closes its channel.
func (b *Bus) Unsubscribe(actorID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[actorID]; ok {
		close(ch)
		delete(b.subs, actorID)
	}
}

// Publish routes an event. Trade events addressed to one counterparty go
// only to that subscriber; everything else goes to all subscribers.
func (b *Bus) Publish(ev domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if te, ok := ev.(domain.TradeExecuted); ok && te.Recipient != domain.BroadcastRecipient {
		if ch, ok := b.subs[te.Recipient]; ok {
			b.deliver(te.Recipient, ch, ev)
		}
		return
	}
	for id, ch := range b.subs {
		b.deliver(id, ch, ev)
	}
}

func (b *Bus) deliver(actorID string, ch chan domain.Event, ev domain.Event) {
	select {
	case ch <- ev:
	default:
		b.dropped.Add(1)
		b.logger.Warn("notification dropped",
			zap.String("actor_id", actorID),
			zap.String("event_type", string(ev.Type())))
	}
}

// Dropped returns how many deliveries were discarded to full buffers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close tears down all subscriptions.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}

package notify

import (
	"context"
	"sync"

	"github.com/fentz26/taskdesk/internal/models"
)

// Bus fans lifecycle events out to in-process subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan models.Event]struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan models.Event]struct{})}
}

// Publish hands ev to every subscriber. It never blocks.
func (b *Bus) Publish(ctx context.Context, ev models.Event) error {
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// subscriber is behind; drop to avoid blocking the writer
		}
	}
	b.mu.RUnlock()
	return nil
}

// Subscribe returns a buffered channel that receives all new events.
func (b *Bus) Subscribe() chan models.Event {
	ch := make(chan models.Event, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan models.Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

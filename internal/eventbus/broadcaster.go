package eventbus

import (
	"context"
	"sync"

	"github.com/matthewbaird/retention/internal/event"
)

// Broadcaster fans events out to live listeners such as WebSocket clients.
// Slow listeners miss events rather than stall the bus.
type Broadcaster struct {
	mu        sync.Mutex
	next      int
	listeners map[int]chan event.DomainEvent
	bufSize   int
}

// NewBroadcaster creates a broadcaster whose listener channels hold bufSize events.
func NewBroadcaster(bufSize int) *Broadcaster {
	if bufSize < 1 {
		bufSize = 16
	}
	return &Broadcaster{listeners: make(map[int]chan event.DomainEvent), bufSize: bufSize}
}

// Listen registers a listener. The returned cancel func must be called to
// release it; the channel is closed afterwards.
func (b *Broadcaster) Listen() (<-chan event.DomainEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan event.DomainEvent, b.bufSize)
	b.listeners[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
			close(ch)
		})
	}
}

// Listeners returns the number of registered listeners.
func (b *Broadcaster) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

func (b *Broadcaster) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.listeners {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

// Package eventbus carries domain events between the dispatch components.
// The schedule manager and the ledgers publish, the notification fan-out and
// metric consumers subscribe. Delivery is in-process and best-effort.
package eventbus

import "sync"

// Event is any domain event carried on the bus. Consumers type-switch on the
// concrete types defined in core/events.
type Event interface{}

// EventBus decouples event producers from their consumers.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// subscriberBuffer bounds how far a consumer may lag behind before events
// are dropped for it.
const subscriberBuffer = 8

// Bus fans published events out to every subscriber channel. A slow consumer
// never blocks a publisher: once its buffer is full, further events are
// dropped for that subscriber only. Dispatch state itself never depends on
// bus delivery; events feed notifications and metrics.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan Event
	closed      bool
}

// New creates an empty Bus.
func New() *Bus { return &Bus{} }

// Subscribe registers a consumer and returns its receive channel. After
// Close, the returned channel is already closed.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Unsubscribe detaches the consumer and closes its channel.
func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subscribers {
		if ch != sub {
			continue
		}
		b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
		if !b.closed {
			close(ch)
		}
		return
	}
}

// Publish hands the event to every subscriber without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}

// Close terminates the bus: every subscriber channel is closed and further
// publishes are ignored. Close is idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}

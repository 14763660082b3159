// Package service holds shared runtime plumbing for the analyzer.
package service

import "sync"

// Event resources and actions published by the session.
const (
	ResourceAnalysis = "analysis"
	ResourceMap      = "map"

	ActionCompleted = "completed"
	ActionFailed    = "failed"
	ActionSelected  = "selected"
	ActionUpdated   = "updated"
)

// Event represents a state change.
type Event struct {
	Resource string // e.g. "analysis"
	Action   string // "completed", "failed", "updated"
	ID       string // analysis or layer ID
}

// EventBus is a simple fan-out pub/sub for state change events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish sends an event to all subscribers (non-blocking).
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

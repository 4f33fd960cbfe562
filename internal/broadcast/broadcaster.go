package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Event types published by the task coordinator
const (
	EventTaskQueued   = "task_queued"
	EventTaskStarted  = "task_started"
	EventTaskFinished = "task_finished"
)

// Event is the envelope delivered to every observer
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Observer receives published events.
// Deliver returning an error unsubscribes the observer.
type Observer interface {
	ID() string
	Deliver(ctx context.Context, event Event) error
}

// Broadcaster fans events out to the current set of observers
type Broadcaster struct {
	mu        sync.RWMutex
	observers map[string]Observer
	order     []string
	now       func() time.Time
}

// NewBroadcaster creates a broadcaster with no observers
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		observers: make(map[string]Observer),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe registers an observer, replacing any observer with the same ID
func (b *Broadcaster) Subscribe(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.observers[o.ID()]; !exists {
		b.order = append(b.order, o.ID())
	}
	b.observers[o.ID()] = o

	slog.Debug("Observer subscribed", "observer_id", o.ID(), "observers", len(b.observers))
}

// Unsubscribe removes an observer; unknown IDs are ignored
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(id)
}

func (b *Broadcaster) removeLocked(id string) {
	if _, exists := b.observers[id]; !exists {
		return
	}
	delete(b.observers, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Count returns the number of subscribed observers
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Publish delivers an event to every observer subscribed at the time of the call.
// Observers whose delivery fails are removed and not retried.
// Returns the number of successful deliveries.
func (b *Broadcaster) Publish(ctx context.Context, eventType string, payload interface{}) int {
	b.mu.RLock()
	targets := make([]Observer, 0, len(b.order))
	for _, id := range b.order {
		targets = append(targets, b.observers[id])
	}
	b.mu.RUnlock()

	if len(targets) == 0 {
		return 0
	}

	event := Event{
		Type:      eventType,
		Data:      payload,
		Timestamp: b.now(),
	}

	delivered := 0
	for _, o := range targets {
		if err := deliver(ctx, o, event); err != nil {
			slog.Warn("Dropping observer after failed delivery",
				"observer_id", o.ID(),
				"event_type", eventType,
				"error", err,
			)
			b.Unsubscribe(o.ID())
			continue
		}
		delivered++
	}

	return delivered
}

func deliver(ctx context.Context, o Observer, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panicked: %v", r)
		}
	}()
	return o.Deliver(ctx, event)
}

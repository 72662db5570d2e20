// Package event is the in-process publish/subscribe channel between change
// watchers and notification producers.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
)

// Listener handles one published event. A returned error is logged by the
// bus and does not affect other listeners.
type Listener func(ctx context.Context, ev domain.Event) error

// Bus dispatches events by name to the listeners registered for it.
// Delivery is synchronous and follows registration order.
type Bus struct {
	mu        sync.RWMutex
	listeners map[domain.NotificationType][]Listener
	log       *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		listeners: make(map[domain.NotificationType][]Listener),
		log:       logger.With("component", "event_bus"),
	}
}

// Subscribe appends a listener for the given event name.
func (b *Bus) Subscribe(name domain.NotificationType, l Listener) {
	if l == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[name] = append(b.listeners[name], l)
}

// Listeners returns how many listeners are registered for name.
func (b *Bus) Listeners(name domain.NotificationType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[name])
}

// Publish runs every listener registered for ev.Name and returns once all of
// them have finished. Events without listeners are dropped.
func (b *Bus) Publish(ctx context.Context, ev domain.Event) {
	b.mu.RLock()
	ls := make([]Listener, len(b.listeners[ev.Name]))
	copy(ls, b.listeners[ev.Name])
	b.mu.RUnlock()

	if len(ls) == 0 {
		b.log.DebugContext(ctx, "event dropped, no listeners", slog.String("event", ev.Name.String()))
		return
	}

	for i, l := range ls {
		if err := b.invoke(ctx, l, ev); err != nil {
			b.log.ErrorContext(ctx, "listener failed",
				slog.String("event", ev.Name.String()),
				slog.Int("listener", i),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (b *Bus) invoke(ctx context.Context, l Listener, ev domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return l(ctx, ev)
}

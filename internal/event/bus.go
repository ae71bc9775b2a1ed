// Package event provides the in-process publish/subscribe bus shared by
// printdeck modules. Handlers run synchronously on Publish and on a
// fresh goroutine on PublishAsync; a panicking handler never takes the
// bus down.
package event

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/printdeck/printdeck/internal/plugin"
)

// Compile-time interface guard.
var _ plugin.EventBus = (*Bus)(nil)

// Bus is a thread-safe in-memory event bus.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]plugin.EventHandler // topic -> id -> handler
	all      map[int]plugin.EventHandler            // wildcard subscribers
	logger   *zap.Logger
}

// NewBus creates a new event bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string]map[int]plugin.EventHandler),
		all:      make(map[int]plugin.EventHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for a single topic. The returned
// function removes the subscription.
func (b *Bus) Subscribe(topic string, handler plugin.EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if b.handlers[topic] == nil {
		b.handlers[topic] = make(map[int]plugin.EventHandler)
	}
	b.handlers[topic][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[topic], id)
	}
}

// SubscribeAll registers a handler for every topic.
func (b *Bus) SubscribeAll(handler plugin.EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.all[id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.all, id)
	}
}

// Publish delivers an event synchronously to all matching handlers.
func (b *Bus) Publish(ctx context.Context, event plugin.Event) error {
	for _, h := range b.snapshot(event.Topic) {
		b.invoke(ctx, h, event)
	}
	return nil
}

// PublishAsync delivers an event on a new goroutine and returns
// immediately.
func (b *Bus) PublishAsync(ctx context.Context, event plugin.Event) {
	handlers := b.snapshot(event.Topic)
	go func() {
		for _, h := range handlers {
			b.invoke(ctx, h, event)
		}
	}()
}

// snapshot copies the handlers matching a topic so delivery happens
// outside the lock.
func (b *Bus) snapshot(topic string) []plugin.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	handlers := make([]plugin.EventHandler, 0, len(b.handlers[topic])+len(b.all))
	for _, h := range b.handlers[topic] {
		handlers = append(handlers, h)
	}
	for _, h := range b.all {
		handlers = append(handlers, h)
	}
	return handlers
}

// invoke runs one handler, recovering from panics.
func (b *Bus) invoke(ctx context.Context, h plugin.EventHandler, event plugin.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", event.Topic),
				zap.Any("panic", r),
			)
		}
	}()
	h(ctx, event)
}

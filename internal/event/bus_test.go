package event

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/printdeck/printdeck/internal/plugin"
)

func testLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus(testLogger())
	var received plugin.Event

	bus.Subscribe("print.completed", func(ctx context.Context, e plugin.Event) {
		received = e
	})

	event := plugin.Event{
		Topic:     "print.completed",
		Source:    "dispatch",
		Timestamp: time.Now(),
		Payload:   42,
	}

	if err := bus.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if received.Topic != "print.completed" {
		t.Errorf("received.Topic = %q, want %q", received.Topic, "print.completed")
	}
	if received.Payload != 42 {
		t.Errorf("received.Payload = %v, want 42", received.Payload)
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := NewBus(testLogger())
	var count int32

	bus.SubscribeAll(func(ctx context.Context, e plugin.Event) {
		atomic.AddInt32(&count, 1)
	})

	bus.Publish(context.Background(), plugin.Event{Topic: "a"})
	bus.Publish(context.Background(), plugin.Event{Topic: "b"})

	if got := atomic.LoadInt32(&count); got != 2 {
		t.Errorf("SubscribeAll handler called %d times, want 2", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(testLogger())
	var count int32

	unsub := bus.Subscribe("test", func(ctx context.Context, e plugin.Event) {
		atomic.AddInt32(&count, 1)
	})

	bus.Publish(context.Background(), plugin.Event{Topic: "test"})
	unsub()
	bus.Publish(context.Background(), plugin.Event{Topic: "test"})

	if got := atomic.LoadInt32(&count); got != 1 {
		t.Errorf("handler called %d times after unsubscribe, want 1", got)
	}
}

func TestPublishAsync(t *testing.T) {
	bus := NewBus(testLogger())
	var wg sync.WaitGroup
	var count int32

	wg.Add(2)
	bus.Subscribe("async.test", func(ctx context.Context, e plugin.Event) {
		atomic.AddInt32(&count, 1)
		wg.Done()
	})
	bus.SubscribeAll(func(ctx context.Context, e plugin.Event) {
		atomic.AddInt32(&count, 1)
		wg.Done()
	})

	bus.PublishAsync(context.Background(), plugin.Event{Topic: "async.test"})

	wg.Wait()
	if got := atomic.LoadInt32(&count); got != 2 {
		t.Errorf("async handlers called %d times, want 2", got)
	}
}

func TestHandlerPanicRecovery(t *testing.T) {
	bus := NewBus(testLogger())
	var delivered int32

	bus.Subscribe("boom", func(ctx context.Context, e plugin.Event) {
		panic("handler exploded")
	})
	bus.Subscribe("boom", func(ctx context.Context, e plugin.Event) {
		atomic.AddInt32(&delivered, 1)
	})

	if err := bus.Publish(context.Background(), plugin.Event{Topic: "boom"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if got := atomic.LoadInt32(&delivered); got != 1 {
		t.Errorf("surviving handler called %d times, want 1", got)
	}
}

func TestNoSubscribers(t *testing.T) {
	bus := NewBus(testLogger())
	if err := bus.Publish(context.Background(), plugin.Event{Topic: "unheard"}); err != nil {
		t.Errorf("Publish() with no subscribers error = %v, want nil", err)
	}
}

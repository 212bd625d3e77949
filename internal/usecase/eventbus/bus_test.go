package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"docnexus/internal/domain"
)

func newTestBus() *Bus {
	return New(slog.Default())
}

func newEvent(t domain.EventType) domain.Event {
	return domain.Event{Type: t, Timestamp: time.Now()}
}

func TestPublishSubscribe(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventThreadCreated, func(_ context.Context, e domain.Event) {
		if e.Type == domain.EventThreadCreated {
			got.Add(1)
		}
	})
	bus.Subscribe(domain.EventTaskUpdated, func(_ context.Context, _ domain.Event) {
		t.Error("unexpected delivery to other event type")
	})

	bus.Publish(context.Background(), newEvent(domain.EventThreadCreated))
	bus.Close() // drain
	if got.Load() != 1 {
		t.Fatalf("expected 1, got %d", got.Load())
	}
}

func TestSubscribeAll(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.SubscribeAll(func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventThreadCreated))
	bus.Publish(context.Background(), newEvent(domain.EventStreamCompleted))
	bus.Close()

	if got.Load() != 2 {
		t.Fatalf("expected 2, got %d", got.Load())
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	sub := bus.Subscribe(domain.EventThreadCreated, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})
	all := bus.SubscribeAll(func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent
	all.Unsubscribe()

	bus.Publish(context.Background(), newEvent(domain.EventThreadCreated))
	bus.Close()

	if got.Load() != 0 {
		t.Fatalf("expected no delivery after unsubscribe, got %d", got.Load())
	}
}

func TestPerSubscriberOrdering(t *testing.T) {
	bus := newTestBus()

	var mu sync.Mutex
	var seen []string
	bus.Subscribe(domain.EventTaskUpdated, func(_ context.Context, e domain.Event) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		seen = append(seen, e.ThreadID)
		mu.Unlock()
	})

	want := []string{"a", "b", "c", "d", "e"}
	for _, id := range want {
		ev := newEvent(domain.EventTaskUpdated)
		ev.ThreadID = id
		bus.Publish(context.Background(), ev)
	}
	bus.Close()

	if len(seen) != len(want) {
		t.Fatalf("expected %d deliveries, got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("delivery %d: expected %q, got %q (order %v)", i, want[i], seen[i], seen)
		}
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := newTestBus()

	release := make(chan struct{})
	bus.Subscribe(domain.EventUploadProgress, func(_ context.Context, _ domain.Event) {
		<-release
	})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(context.Background(), newEvent(domain.EventUploadProgress))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow handler")
	}
	close(release)
	bus.Close()
}

func TestConcurrentPublish(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventThreadCreated, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), newEvent(domain.EventThreadCreated))
		}()
	}
	wg.Wait()
	bus.Close()

	if got.Load() != 100 {
		t.Fatalf("expected 100, got %d", got.Load())
	}
}

func TestPanicRecovery(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventThreadCreated, func(_ context.Context, _ domain.Event) {
		panic("boom")
	})
	bus.Subscribe(domain.EventThreadCreated, func(_ context.Context, _ domain.Event) {
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventThreadCreated))
	bus.Publish(context.Background(), newEvent(domain.EventThreadCreated))
	bus.Close()

	if got.Load() != 2 {
		t.Fatalf("expected 2 (second handler), got %d", got.Load())
	}
}

func TestCloseDrainsAndRejectsNew(t *testing.T) {
	bus := newTestBus()

	var got atomic.Int32
	bus.Subscribe(domain.EventThreadCreated, func(_ context.Context, _ domain.Event) {
		time.Sleep(50 * time.Millisecond)
		got.Add(1)
	})

	bus.Publish(context.Background(), newEvent(domain.EventThreadCreated))
	bus.Close() // should block until the handler finishes

	if got.Load() != 1 {
		t.Fatalf("expected handler to have run, got %d", got.Load())
	}

	bus.Publish(context.Background(), newEvent(domain.EventThreadCreated))
	time.Sleep(20 * time.Millisecond)
	if got.Load() != 1 {
		t.Fatalf("expected no delivery after close, got %d", got.Load())
	}
}

func TestCloseWaitsForRacingPublishers(t *testing.T) {
	for round := 0; round < 50; round++ {
		bus := newTestBus()

		var got atomic.Int32
		bus.Subscribe(domain.EventThreadCreated, func(_ context.Context, _ domain.Event) {
			got.Add(1)
		})

		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < 20; j++ {
					bus.Publish(context.Background(), newEvent(domain.EventThreadCreated))
				}
			}()
		}
		close(start)
		bus.Close()
		atClose := got.Load()
		wg.Wait()

		// Nothing is delivered once Close has returned.
		time.Sleep(5 * time.Millisecond)
		if n := got.Load(); n != atClose {
			t.Fatalf("round %d: %d deliveries after Close returned", round, n-atClose)
		}
	}
}

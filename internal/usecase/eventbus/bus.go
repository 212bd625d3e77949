package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"docnexus/internal/domain"
)

type delivery struct {
	ctx   context.Context
	event domain.Event
}

// subscriber owns a mailbox. Events for one subscriber are delivered in
// publish order by at most one goroutine at a time.
type subscriber struct {
	id        uint64
	eventType domain.EventType // empty for SubscribeAll
	handler   domain.EventHandler
	bus       *Bus

	mu      sync.Mutex
	queue   []delivery
	running bool

	removed atomic.Bool
	once    sync.Once
}

// Unsubscribe detaches the handler. Events already queued but not yet
// delivered are discarded.
func (s *subscriber) Unsubscribe() {
	s.once.Do(func() {
		s.removed.Store(true)
		s.bus.remove(s)
	})
}

func (s *subscriber) enqueue(ctx context.Context, event domain.Event) {
	s.mu.Lock()
	s.queue = append(s.queue, delivery{ctx: ctx, event: event})
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.bus.wg.Add(1)
	s.mu.Unlock()
	go s.drain()
}

func (s *subscriber) drain() {
	defer s.bus.wg.Done()
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		d := s.queue[0]
		s.queue[0] = delivery{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if s.removed.Load() {
			continue
		}
		s.invoke(d)
	}
}

func (s *subscriber) invoke(d delivery) {
	defer func() {
		if r := recover(); r != nil {
			s.bus.logger.Error("event handler panicked",
				"event", string(d.event.Type),
				"panic", r,
			)
		}
	}()
	s.handler(d.ctx, d.event)
}

// Bus is an in-process, goroutine-safe event bus. Publish never blocks on
// handlers; each subscriber sees events in the order they were published.
type Bus struct {
	mu      sync.RWMutex
	typed   map[domain.EventType][]*subscriber
	allSubs []*subscriber
	nextID  atomic.Uint64
	logger  *slog.Logger
	wg      sync.WaitGroup
	closed  bool // guarded by mu
}

var _ domain.EventBus = (*Bus)(nil)

// New creates an event bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		typed:  make(map[domain.EventType][]*subscriber),
		logger: logger,
	}
}

// Publish fans out an event to matching typed subscribers and all-event subscribers.
// Panicking handlers are recovered and logged.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	// The read lock is held through enqueue so Close cannot start waiting
	// between the closed check and a drain goroutine being counted.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.typed[event.Type] {
		sub.enqueue(ctx, event)
	}
	for _, sub := range b.allSubs {
		sub.enqueue(ctx, event)
	}
}

// Subscribe registers a handler for a specific event type.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.Subscription {
	sub := &subscriber{id: b.nextID.Add(1), eventType: eventType, handler: handler, bus: b}

	b.mu.Lock()
	b.typed[eventType] = append(b.typed[eventType], sub)
	b.mu.Unlock()
	return sub
}

// SubscribeAll registers a handler that receives every event.
func (b *Bus) SubscribeAll(handler domain.EventHandler) domain.Subscription {
	sub := &subscriber{id: b.nextID.Add(1), handler: handler, bus: b}

	b.mu.Lock()
	b.allSubs = append(b.allSubs, sub)
	b.mu.Unlock()
	return sub
}

func (b *Bus) remove(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.eventType == "" {
		b.allSubs = without(b.allSubs, sub.id)
		return
	}
	subs := without(b.typed[sub.eventType], sub.id)
	if len(subs) == 0 {
		delete(b.typed, sub.eventType)
		return
	}
	b.typed[sub.eventType] = subs
}

// without returns a copy of subs minus the given id. Publish may still hold
// the old slice, so it is never modified in place.
func without(subs []*subscriber, id uint64) []*subscriber {
	out := make([]*subscriber, 0, len(subs))
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// Close prevents new publishes and waits for all in-flight handlers to finish.
// Close is idempotent and safe to call multiple times.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}

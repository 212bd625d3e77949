package chat

import (
	"context"
	"log/slog"
	"sync"

	"docnexus/internal/domain"
)

// ThreadList is the sidebar list of conversations. New threads announced on
// the bus are prepended; a thread already present is left where it is.
type ThreadList struct {
	api    domain.ChatAPI
	cache  domain.ThreadCache
	logger *slog.Logger

	mu    sync.RWMutex
	items []domain.ThreadSummary
	sub   domain.Subscription

	onChange func([]domain.ThreadSummary)
}

// NewThreadList creates a list. cache may be nil.
func NewThreadList(api domain.ChatAPI, cache domain.ThreadCache, logger *slog.Logger) *ThreadList {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThreadList{api: api, cache: cache, logger: logger.With("component", "threads")}
}

// OnChange registers a callback invoked with a copy of the list after every
// change. Set it before any event can reach the list.
func (l *ThreadList) OnChange(fn func([]domain.ThreadSummary)) {
	l.onChange = fn
}

// Load replaces the list with the server's history. If the request fails
// and a cache is configured, the cached list is used and the error is still
// returned.
func (l *ThreadList) Load(ctx context.Context) error {
	threads, err := l.api.History(ctx)
	if err != nil {
		if l.cache != nil {
			if cached, cerr := l.cache.Threads(ctx); cerr == nil && len(cached) > 0 {
				l.replace(cached)
			}
		}
		return domain.WrapOp("chat.history", err)
	}
	l.replace(threads)
	l.persist(ctx)
	return nil
}

// Attach subscribes the list to thread.created on bus. Calling Attach again
// replaces the earlier subscription.
func (l *ThreadList) Attach(bus domain.EventBus) domain.Subscription {
	sub := bus.Subscribe(domain.EventThreadCreated, func(ctx context.Context, ev domain.Event) {
		var p domain.ThreadCreatedPayload
		if err := ev.DecodePayload(&p); err != nil {
			l.logger.Warn("bad thread.created payload", "error", err)
			return
		}
		if p.ID == "" {
			p.ID = ev.ThreadID
		}
		if l.Add(domain.ThreadSummary{ID: p.ID, Title: p.Title, Date: p.Date}) {
			l.persist(ctx)
		}
	})

	l.mu.Lock()
	prev := l.sub
	l.sub = sub
	l.mu.Unlock()
	if prev != nil {
		prev.Unsubscribe()
	}
	return sub
}

// Detach closes the bus subscription, if any.
func (l *ThreadList) Detach() {
	l.mu.Lock()
	sub := l.sub
	l.sub = nil
	l.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// Add prepends t unless a thread with the same id is already listed. It
// reports whether the list changed.
func (l *ThreadList) Add(t domain.ThreadSummary) bool {
	l.mu.Lock()
	for _, existing := range l.items {
		if existing.ID == t.ID {
			l.mu.Unlock()
			return false
		}
	}
	items := make([]domain.ThreadSummary, 0, len(l.items)+1)
	items = append(items, t)
	items = append(items, l.items...)
	l.items = items
	l.mu.Unlock()

	l.notify()
	return true
}

// Items returns a copy of the list.
func (l *ThreadList) Items() []domain.ThreadSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.ThreadSummary, len(l.items))
	copy(out, l.items)
	return out
}

func (l *ThreadList) replace(items []domain.ThreadSummary) {
	l.mu.Lock()
	l.items = append([]domain.ThreadSummary(nil), items...)
	l.mu.Unlock()
	l.notify()
}

func (l *ThreadList) notify() {
	if l.onChange != nil {
		l.onChange(l.Items())
	}
}

func (l *ThreadList) persist(ctx context.Context) {
	if l.cache == nil {
		return
	}
	if err := l.cache.SaveThreads(ctx, l.Items()); err != nil {
		l.logger.Warn("cache thread list", "error", err)
	}
}

package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnexus/internal/domain"
	"docnexus/internal/usecase/eventbus"
)

type memCache struct {
	mu      sync.Mutex
	threads []domain.ThreadSummary
	last    string
	saves   int
}

func (c *memCache) SaveThreads(_ context.Context, threads []domain.ThreadSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threads = append([]domain.ThreadSummary(nil), threads...)
	c.saves++
	return nil
}

func (c *memCache) Threads(context.Context) ([]domain.ThreadSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ThreadSummary(nil), c.threads...), nil
}

func (c *memCache) SaveLastThread(_ context.Context, id string) error {
	c.last = id
	return nil
}

func (c *memCache) LastThread(context.Context) (string, error) { return c.last, nil }

func announce(bus *eventbus.Bus, id, title string) {
	bus.Publish(context.Background(), domain.NewEvent(domain.EventThreadCreated, id,
		domain.ThreadCreatedPayload{ID: id, Title: title, Date: "2025-11-01T00:00:00Z"}))
}

func TestThreadListPrependsAndDedupes(t *testing.T) {
	api := &fakeChatAPI{history: []domain.ThreadSummary{{ID: "old", Title: "Old..."}}}
	cache := &memCache{}
	list := NewThreadList(api, cache, quietLogger())
	require.NoError(t, list.Load(context.Background()))

	bus := eventbus.New(quietLogger())
	list.Attach(bus)

	announce(bus, "a", "A...")
	announce(bus, "b", "B...")
	announce(bus, "a", "A again...")
	bus.Close()

	items := list.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []string{"b", "a", "old"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, "A...", items[1].Title)

	cached, _ := cache.Threads(context.Background())
	assert.Equal(t, items, cached)
}

func TestThreadListDetach(t *testing.T) {
	list := NewThreadList(&fakeChatAPI{}, nil, quietLogger())
	bus := eventbus.New(quietLogger())
	list.Attach(bus)
	list.Detach()
	list.Detach()

	announce(bus, "x", "X...")
	bus.Close()
	assert.Empty(t, list.Items())
}

func TestThreadListReattachReplacesSubscription(t *testing.T) {
	list := NewThreadList(&fakeChatAPI{}, nil, quietLogger())
	bus := eventbus.New(quietLogger())
	list.Attach(bus)
	list.Attach(bus)

	var changes int
	var mu sync.Mutex
	list.OnChange(func([]domain.ThreadSummary) {
		mu.Lock()
		changes++
		mu.Unlock()
	})

	announce(bus, "x", "X...")
	bus.Close()
	assert.Len(t, list.Items(), 1)
	assert.Equal(t, 1, changes)
}

func TestThreadListLoadFallsBackToCache(t *testing.T) {
	cache := &memCache{threads: []domain.ThreadSummary{{ID: "cached"}}}
	list := NewThreadList(&fakeChatAPI{histErr: domain.ErrUnavailable}, cache, quietLogger())

	err := list.Load(context.Background())
	assert.True(t, errors.Is(err, domain.ErrUnavailable))
	require.Len(t, list.Items(), 1)
	assert.Equal(t, "cached", list.Items()[0].ID)
}

func TestThreadListItemsIsCopy(t *testing.T) {
	list := NewThreadList(&fakeChatAPI{}, nil, quietLogger())
	list.Add(domain.ThreadSummary{ID: "1", Title: "one"})

	items := list.Items()
	items[0].Title = "changed"
	assert.Equal(t, "one", list.Items()[0].Title)
}

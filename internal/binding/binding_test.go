package binding

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/ordercast-server/internal/proto"
)

// fakeSubscriber records joins and lets tests deliver events to live handlers.
type fakeSubscriber struct {
	mu       sync.Mutex
	handlers map[int]func(proto.EventNewOrder)
	next     int
	joins    []string
	leaves   []string
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: make(map[int]func(proto.EventNewOrder))}
}

func (f *fakeSubscriber) OnNewOrder(h func(proto.EventNewOrder)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.handlers[id] = h
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}
}

func (f *fakeSubscriber) JoinStore(_ context.Context, storeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins = append(f.joins, storeID)
	return nil
}

func (f *fakeSubscriber) LeaveStore(_ context.Context, storeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves = append(f.leaves, storeID)
	return nil
}

func (f *fakeSubscriber) deliver(ev proto.EventNewOrder) {
	f.mu.Lock()
	handlers := make([]func(proto.EventNewOrder), 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (f *fakeSubscriber) handlerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

type shown struct {
	title, description string
	kind               Kind
}

type recordingNotifier struct {
	mu    sync.Mutex
	shown []shown
}

func (r *recordingNotifier) Show(title, description string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, shown{title, description, kind})
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shown)
}

type countingCache struct {
	mu    sync.Mutex
	calls []string
}

func (c *countingCache) Invalidate(keys ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, keys...)
	return len(keys)
}

func (c *countingCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func newTestBinding() (*Binding, *fakeSubscriber, *recordingNotifier, *countingCache) {
	sub := newFakeSubscriber()
	notifier := &recordingNotifier{}
	cache := &countingCache{}
	return New(sub, cache, notifier, nil), sub, notifier, cache
}

func TestBindNewOrderNotifiesAndInvalidates(t *testing.T) {
	b, sub, notifier, _ := newTestBinding()
	cache, err := NewQueryCache(8)
	require.NoError(t, err)
	b.cache = cache
	cache.Set(OrdersQueryKey, []string{"old"})

	require.NoError(t, b.Bind(context.Background(), "store-42"))
	assert.Equal(t, []string{"store-42"}, sub.joins)

	sub.deliver(proto.EventNewOrder{Type: "new-order", OrderNumber: "7", CustomerName: "Jane", StoreID: "store-42"})

	_, stale, ok := cache.Get(OrdersQueryKey)
	require.True(t, ok)
	assert.True(t, stale)

	require.Len(t, notifier.shown, 1)
	assert.Contains(t, notifier.shown[0].description, "Jane")
	assert.Contains(t, notifier.shown[0].description, "7")
	assert.Equal(t, KindSuccess, notifier.shown[0].kind)
}

func TestBindEmptyStoreIsNoop(t *testing.T) {
	b, sub, _, _ := newTestBinding()

	require.NoError(t, b.Bind(context.Background(), ""))
	assert.Empty(t, sub.joins)
	assert.Zero(t, sub.handlerCount())
	assert.Empty(t, b.StoreID())
}

func TestRebindReleasesPreviousHandler(t *testing.T) {
	b, sub, notifier, cache := newTestBinding()
	ctx := context.Background()

	require.NoError(t, b.Bind(ctx, "S1"))
	require.NoError(t, b.Bind(ctx, "S2"))

	assert.Equal(t, 1, sub.handlerCount())
	assert.Equal(t, []string{"S1", "S2"}, sub.joins)
	assert.Equal(t, []string{"S1"}, sub.leaves)

	sub.deliver(proto.EventNewOrder{OrderNumber: "1", CustomerName: "Old", StoreID: "S1"})
	assert.Zero(t, notifier.count())
	assert.Zero(t, cache.count())

	sub.deliver(proto.EventNewOrder{OrderNumber: "2", CustomerName: "New", StoreID: "S2"})
	assert.Equal(t, 1, notifier.count())
	assert.Equal(t, 1, cache.count())
}

func TestRebindSameStoreKeepsSingleHandler(t *testing.T) {
	b, sub, notifier, _ := newTestBinding()
	ctx := context.Background()

	require.NoError(t, b.Bind(ctx, "S1"))
	require.NoError(t, b.Bind(ctx, "S1"))

	assert.Equal(t, 1, sub.handlerCount())
	assert.Equal(t, []string{"S1"}, sub.joins)

	sub.deliver(proto.EventNewOrder{OrderNumber: "3", CustomerName: "Jane", StoreID: "S1"})
	assert.Equal(t, 1, notifier.count())
}

func TestUnbindStopsEvents(t *testing.T) {
	b, sub, notifier, cache := newTestBinding()
	ctx := context.Background()

	require.NoError(t, b.Bind(ctx, "S1"))
	require.NoError(t, b.Unbind(ctx))
	require.NoError(t, b.Unbind(ctx))

	assert.Zero(t, sub.handlerCount())
	assert.Equal(t, []string{"S1"}, sub.leaves)

	sub.deliver(proto.EventNewOrder{OrderNumber: "4", CustomerName: "Jane", StoreID: "S1"})
	assert.Zero(t, notifier.count())
	assert.Zero(t, cache.count())
}

func TestStaleHandlerIgnoresEvents(t *testing.T) {
	b, sub, notifier, _ := newTestBinding()
	ctx := context.Background()

	require.NoError(t, b.Bind(ctx, "S1"))
	// Grab the handler before rebinding, as a read loop already dispatching would.
	var stale func(proto.EventNewOrder)
	sub.mu.Lock()
	for _, h := range sub.handlers {
		stale = h
	}
	sub.mu.Unlock()

	require.NoError(t, b.Bind(ctx, "S2"))
	stale(proto.EventNewOrder{OrderNumber: "5", CustomerName: "Late", StoreID: "S2"})
	assert.Zero(t, notifier.count())
}

func TestCloseUnbinds(t *testing.T) {
	b, sub, _, _ := newTestBinding()

	require.NoError(t, b.Bind(context.Background(), "S1"))
	require.NoError(t, b.Close())
	assert.Empty(t, b.StoreID())
	assert.Zero(t, sub.handlerCount())
}

// Package binding ties an admin's active store to the order channel: it joins
// the store room, shows a notification for each new order and marks the cached
// order list stale.
package binding

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/ordercast-server/internal/proto"
)

// Subscriber is the part of the channel client a Binding needs.
type Subscriber interface {
	OnNewOrder(h func(proto.EventNewOrder)) (release func())
	JoinStore(ctx context.Context, storeID string) error
	LeaveStore(ctx context.Context, storeID string) error
}

// Invalidator marks cached queries stale.
type Invalidator interface {
	Invalidate(keys ...string) int
}

// Binding holds at most one active store subscription.
type Binding struct {
	sub      Subscriber
	cache    Invalidator
	notifier Notifier
	log      *zerolog.Logger

	mu      sync.Mutex
	storeID string
	release func()
	gen     uint64
}

// New creates an unbound Binding.
func New(sub Subscriber, cache Invalidator, notifier Notifier, logger *zerolog.Logger) *Binding {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Binding{sub: sub, cache: cache, notifier: notifier, log: logger}
}

// StoreID returns the bound store, or "" when unbound.
func (b *Binding) StoreID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.storeID
}

// Bind subscribes to storeID, releasing any previous subscription first.
// An empty storeID means no store is resolved yet and is ignored.
func (b *Binding) Bind(ctx context.Context, storeID string) error {
	if storeID == "" {
		return nil
	}

	b.mu.Lock()
	prev := b.storeID
	if b.release != nil {
		b.release()
	}
	b.gen++
	gen := b.gen
	b.storeID = storeID
	b.release = b.sub.OnNewOrder(func(ev proto.EventNewOrder) {
		b.handleEvent(gen, ev)
	})
	b.mu.Unlock()

	if prev == storeID {
		return nil
	}
	if prev != "" {
		if err := b.sub.LeaveStore(ctx, prev); err != nil {
			b.log.Debug().Err(err).Str("store_id", prev).Msg("leave previous store")
		}
	}
	if err := b.sub.JoinStore(ctx, storeID); err != nil {
		return fmt.Errorf("join store %s: %w", storeID, err)
	}
	b.log.Debug().Str("store_id", storeID).Msg("store bound")
	return nil
}

// Unbind releases the handler and leaves the room. Safe to call when unbound.
func (b *Binding) Unbind(ctx context.Context) error {
	b.mu.Lock()
	storeID := b.storeID
	if b.release != nil {
		b.release()
	}
	b.release = nil
	b.storeID = ""
	b.gen++
	b.mu.Unlock()

	if storeID == "" {
		return nil
	}
	if err := b.sub.LeaveStore(ctx, storeID); err != nil {
		return fmt.Errorf("leave store %s: %w", storeID, err)
	}
	return nil
}

// Close unbinds on teardown.
func (b *Binding) Close() error {
	return b.Unbind(context.Background())
}

// handleEvent runs on the client read loop. Events from a superseded
// subscription or for another store are dropped.
func (b *Binding) handleEvent(gen uint64, ev proto.EventNewOrder) {
	b.mu.Lock()
	current := gen == b.gen && ev.StoreID == b.storeID
	b.mu.Unlock()
	if !current {
		return
	}

	b.notifier.Show("New order received", fmt.Sprintf("Order #%s from %s", ev.OrderNumber, ev.CustomerName), KindSuccess)
	b.cache.Invalidate(OrdersQueryKey)
}

package core

import (
	"context"
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// noEvent fails if an event of the given kind shows up within a short window.
func noEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	timer := time.NewTimer(150 * time.Millisecond)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected %v event: %+v", kind, ev)
			}
		case <-timer.C:
			return
		}
	}
}

func startHub(t *testing.T, opts ...HubOption) *Hub {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(opts...)
	go hub.Run(ctx)
	return hub
}

func joinStore(t *testing.T, hub *Hub, c *Client, storeID string) {
	t.Helper()

	c.Commands <- &Command{Kind: CommandJoinStore, StoreID: storeID}
	ev := mustEvent(t, c.Events, EventJoined)
	if ev.StoreID != storeID {
		t.Fatalf("unexpected join ack: %+v", ev)
	}
}

func register(t *testing.T, hub *Hub, id string) *Client {
	t.Helper()

	c := NewClient(id, Principal{Username: id}, 0)
	if err := hub.RegisterClient(c); err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	return c
}

package core

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubJoinThenBroadcast(t *testing.T) {
	hub := startHub(t)

	alice := register(t, hub, "alice")
	bob := register(t, hub, "bob")

	joinStore(t, hub, alice, "store-42")

	order := &OrderNotification{OrderNumber: "7", CustomerName: "Jane", StoreID: "store-42"}
	if err := hub.Broadcast(context.Background(), "store-42", order); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	ev := mustEvent(t, alice.Events, EventNewOrder)
	if ev.StoreID != "store-42" || ev.Order.OrderNumber != "7" || ev.Order.CustomerName != "Jane" {
		t.Fatalf("unexpected new-order event: %+v", ev)
	}
	noEvent(t, alice.Events, EventNewOrder)

	// Bob never joined.
	noEvent(t, bob.Events, EventNewOrder)
}

func TestHubDoubleJoinDeliversOnce(t *testing.T) {
	hub := startHub(t)

	alice := register(t, hub, "alice")
	joinStore(t, hub, alice, "store-1")
	joinStore(t, hub, alice, "store-1")

	require.NoError(t, hub.Broadcast(context.Background(), "store-1", &OrderNotification{OrderNumber: "1"}))

	mustEvent(t, alice.Events, EventNewOrder)
	noEvent(t, alice.Events, EventNewOrder)

	stats, err := hub.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Rooms: 1, Clients: 1}, stats)
}

func TestHubBroadcastToEmptyRoomIsNoop(t *testing.T) {
	hub := startHub(t)

	alice := register(t, hub, "alice")

	err := hub.Broadcast(context.Background(), "store-42", &OrderNotification{OrderNumber: "7"})
	require.NoError(t, err)
	noEvent(t, alice.Events, EventNewOrder)

	stats, err := hub.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Rooms)
	assert.Equal(t, 1, stats.Clients)
}

func TestHubLateJoinerMissesEarlierBroadcast(t *testing.T) {
	hub := startHub(t)

	early := register(t, hub, "early")
	late := register(t, hub, "late")

	joinStore(t, hub, early, "store-1")
	require.NoError(t, hub.Broadcast(context.Background(), "store-1", &OrderNotification{OrderNumber: "1"}))
	joinStore(t, hub, late, "store-1")

	mustEvent(t, early.Events, EventNewOrder)
	noEvent(t, late.Events, EventNewOrder)
}

func TestHubDisconnectRemovesMembership(t *testing.T) {
	hub := startHub(t)

	alice := register(t, hub, "alice")
	bob := register(t, hub, "bob")
	joinStore(t, hub, alice, "store-1")
	joinStore(t, hub, alice, "store-2")
	joinStore(t, hub, bob, "store-2")

	hub.UnregisterClient(alice)
	select {
	case <-alice.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("client was not released")
	}

	for range alice.Events {
		// Drain until the hub closes the queue.
	}

	require.NoError(t, hub.Broadcast(context.Background(), "store-1", &OrderNotification{OrderNumber: "1"}))
	require.NoError(t, hub.Broadcast(context.Background(), "store-2", &OrderNotification{OrderNumber: "2"}))

	ev := mustEvent(t, bob.Events, EventNewOrder)
	assert.Equal(t, "2", ev.Order.OrderNumber)

	stats, err := hub.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Rooms: 1, Clients: 1}, stats)
}

func TestHubJoinRequiresPermission(t *testing.T) {
	hub := startHub(t, WithAuthorizer(PrincipalAuthorizer))

	c := NewClient("c1", Principal{UserID: 1, Username: "owner", StoreIDs: []string{"store-1"}}, 0)
	require.NoError(t, hub.RegisterClient(c))

	c.Commands <- &Command{Kind: CommandJoinStore, StoreID: "store-2"}
	ev := mustEvent(t, c.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeForbidden {
		t.Fatalf("expected forbidden error, got %+v", ev)
	}

	joinStore(t, hub, c, "store-1")

	require.NoError(t, hub.Broadcast(context.Background(), "store-2", &OrderNotification{OrderNumber: "9"}))
	noEvent(t, c.Events, EventNewOrder)
}

func TestHubSuperAdminJoinsAnyStore(t *testing.T) {
	hub := startHub(t, WithAuthorizer(PrincipalAuthorizer))

	c := NewClient("root", Principal{UserID: 1, Username: "root", SuperAdmin: true}, 0)
	require.NoError(t, hub.RegisterClient(c))
	joinStore(t, hub, c, "anything")
}

func TestHubJoinWithoutStoreID(t *testing.T) {
	hub := startHub(t)
	c := register(t, hub, "alice")

	c.Commands <- &Command{Kind: CommandJoinStore}
	ev := mustEvent(t, c.Events, EventError)
	assert.Equal(t, ErrCodeBadRequest, ev.Error.Code)
}

func TestHubLeaveStore(t *testing.T) {
	hub := startHub(t)
	c := register(t, hub, "alice")

	c.Commands <- &Command{Kind: CommandLeaveStore, StoreID: "ghost"}
	ev := mustEvent(t, c.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNotInRoom {
		t.Fatalf("expected not_in_room error, got %+v", ev)
	}

	joinStore(t, hub, c, "store-1")
	c.Commands <- &Command{Kind: CommandLeaveStore, StoreID: "store-1"}
	left := mustEvent(t, c.Events, EventLeft)
	assert.Equal(t, "store-1", left.StoreID)

	require.NoError(t, hub.Broadcast(context.Background(), "store-1", &OrderNotification{OrderNumber: "1"}))
	noEvent(t, c.Events, EventNewOrder)

	stats, err := hub.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Rooms)
}

func TestHubPreservesBroadcastOrder(t *testing.T) {
	hub := startHub(t)
	c := register(t, hub, "alice")
	joinStore(t, hub, c, "store-1")

	for i := 1; i <= 5; i++ {
		require.NoError(t, hub.Broadcast(context.Background(), "store-1", &OrderNotification{OrderNumber: strconv.Itoa(i)}))
	}
	for i := 1; i <= 5; i++ {
		ev := mustEvent(t, c.Events, EventNewOrder)
		assert.Equal(t, strconv.Itoa(i), ev.Order.OrderNumber)
	}
}

func TestHubStoppedRejectsBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	c := NewClient("c1", Principal{}, 0)
	require.NoError(t, hub.RegisterClient(c))

	cancel()
	<-stopped

	err := hub.Broadcast(context.Background(), "store-1", &OrderNotification{})
	assert.True(t, errors.Is(err, ErrHubStopped), "got %v", err)
	assert.ErrorIs(t, hub.RegisterClient(NewClient("c2", Principal{}, 0)), ErrHubStopped)

	_, open := <-c.Events
	assert.False(t, open, "events should be closed on shutdown")
}

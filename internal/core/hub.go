package core

import (
	"context"

	"github.com/rs/zerolog"
)

// Hub owns the connection registry and store rooms of one process.
// All membership state is mutated only by the Run goroutine.
type Hub struct {
	rooms   map[string]*Room
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	commands   chan clientCommand
	broadcasts chan *Event
	stats      chan chan Stats
	done       chan struct{}

	authorizer Authorizer
	metrics    *Metrics
	log        *zerolog.Logger
}

// Stats is a snapshot of the registry.
type Stats struct {
	Rooms   int
	Clients int
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

// HubOption customizes a Hub.
type HubOption func(*Hub)

// WithAuthorizer sets the join capability check. Without it every join is allowed.
func WithAuthorizer(a Authorizer) HubOption {
	return func(h *Hub) { h.authorizer = a }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

// WithLogger sets the hub logger.
func WithLogger(logger *zerolog.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.log = logger
		}
	}
}

// NewHub creates a hub. Call Run to start processing.
func NewHub(opts ...HubOption) *Hub {
	nop := zerolog.Nop()
	h := &Hub{
		rooms:      make(map[string]*Room),
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan clientCommand, 64),
		broadcasts: make(chan *Event),
		stats:      make(chan chan Stats),
		done:       make(chan struct{}),
		log:        &nop,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes registrations, commands and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case cc := <-h.commands:
			h.handleCommand(cc.client, cc.cmd)
		case ev := <-h.broadcasts:
			h.handleBroadcast(ev)
		case reply := <-h.stats:
			reply <- Stats{Rooms: len(h.rooms), Clients: len(h.clients)}
		}
	}
}

// RegisterClient adds a connection to the registry with no rooms.
func (h *Hub) RegisterClient(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// UnregisterClient removes a connection from every room and closes its event queue.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast delivers a new-order event to every current member of the store room.
// It returns once the hub has accepted the event; an empty room is a silent no-op.
func (h *Hub) Broadcast(ctx context.Context, storeID string, order *OrderNotification) error {
	ev := &Event{Kind: EventNewOrder, StoreID: storeID, Order: order}
	select {
	case h.broadcasts <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
}

// Stats returns the current room and connection counts.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.stats <- reply:
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case <-h.done:
		return Stats{}, ErrHubStopped
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

func (h *Hub) handleRegister(c *Client) {
	if _, exists := h.clients[c]; exists {
		return
	}
	h.clients[c] = struct{}{}
	h.metrics.connected()
	h.log.Info().
		Str("client_id", c.ID).
		Str("user", c.name()).
		Msg("client connected")

	go h.pump(c)
}

func (h *Hub) handleUnregister(c *Client) {
	if _, exists := h.clients[c]; !exists {
		return
	}
	for storeID := range c.Rooms {
		h.leaveRoom(c, storeID)
	}
	delete(h.clients, c)
	close(c.done)
	close(c.Events)
	h.metrics.disconnected()
	h.log.Info().Str("client_id", c.ID).Msg("client disconnected")
}

func (h *Hub) handleCommand(c *Client, cmd *Command) {
	if cmd == nil {
		return
	}
	// The command may have been queued before the client disconnected.
	if _, exists := h.clients[c]; !exists {
		return
	}

	switch cmd.Kind {
	case CommandJoinStore:
		h.handleJoin(c, cmd.StoreID)
	case CommandLeaveStore:
		h.handleLeave(c, cmd.StoreID)
	default:
		h.send(c, &Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "unknown command")})
	}
}

func (h *Hub) handleJoin(c *Client, storeID string) {
	if storeID == "" {
		h.send(c, &Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, "store id is required")})
		return
	}
	if h.authorizer != nil && !h.authorizer.CanJoin(c.Principal, storeID) {
		h.log.Warn().
			Str("client_id", c.ID).
			Str("user", c.name()).
			Str("store_id", storeID).
			Msg("join rejected")
		h.send(c, &Event{Kind: EventError, StoreID: storeID, Error: coreError(ErrCodeForbidden, "not allowed to watch this store")})
		return
	}

	room, ok := h.rooms[storeID]
	if !ok {
		room = NewRoom(storeID)
		h.rooms[storeID] = room
		h.metrics.setRooms(len(h.rooms))
	}
	if room.AddClient(c) {
		c.Rooms[storeID] = struct{}{}
		h.log.Debug().
			Str("client_id", c.ID).
			Str("store_id", storeID).
			Int("members", room.Len()).
			Msg("joined store room")
	}
	h.send(c, &Event{Kind: EventJoined, StoreID: storeID})
}

func (h *Hub) handleLeave(c *Client, storeID string) {
	if _, ok := c.Rooms[storeID]; !ok {
		h.send(c, &Event{Kind: EventError, StoreID: storeID, Error: coreError(ErrCodeNotInRoom, "not in store room")})
		return
	}
	h.leaveRoom(c, storeID)
	h.send(c, &Event{Kind: EventLeft, StoreID: storeID})
}

func (h *Hub) leaveRoom(c *Client, storeID string) {
	delete(c.Rooms, storeID)
	room, ok := h.rooms[storeID]
	if !ok {
		return
	}
	room.RemoveClient(c)
	if room.Empty() {
		delete(h.rooms, storeID)
		h.metrics.setRooms(len(h.rooms))
	}
}

func (h *Hub) handleBroadcast(ev *Event) {
	h.metrics.broadcast()
	room, ok := h.rooms[ev.StoreID]
	if !ok {
		h.log.Debug().Str("store_id", ev.StoreID).Msg("broadcast to empty room")
		return
	}
	delivered, dropped := room.Broadcast(ev)
	h.metrics.delivered(delivered, dropped)
	if dropped > 0 {
		h.log.Warn().
			Str("store_id", ev.StoreID).
			Int("dropped", dropped).
			Msg("slow consumers missed event")
	}
}

// send queues an event for a single client, dropping it if the queue is full.
func (h *Hub) send(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		h.metrics.delivered(0, 1)
	}
}

// pump forwards a client's commands into the hub loop.
func (h *Hub) pump(c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			select {
			case h.commands <- clientCommand{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-h.done:
				return
			}
		case <-c.done:
			return
		case <-h.done:
			return
		}
	}
}

func (h *Hub) shutdown() {
	for c := range h.clients {
		close(c.done)
		close(c.Events)
		h.metrics.disconnected()
	}
	h.clients = make(map[*Client]struct{})
	h.rooms = make(map[string]*Room)
	h.metrics.setRooms(0)
	close(h.done)
}

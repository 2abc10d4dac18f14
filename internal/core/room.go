package core

// Room groups the connections watching one store.
type Room struct {
	StoreID string
	clients map[*Client]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(storeID string) *Room {
	return &Room{
		StoreID: storeID,
		clients: make(map[*Client]struct{}),
	}
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Broadcast queues an event for every client in the room.
// A client with a full queue misses the event.
func (r *Room) Broadcast(event *Event) (delivered, dropped int) {
	for client := range r.clients {
		select {
		case client.Events <- event:
			delivered++
		default:
			dropped++
		}
	}
	return delivered, dropped
}

// Len returns the number of members.
func (r *Room) Len() int {
	return len(r.clients)
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}

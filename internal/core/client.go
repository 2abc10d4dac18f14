package core

import "slices"

const defaultClientBuffer = 16

// Principal is the authenticated identity attached to a connection at handshake.
type Principal struct {
	UserID     int64
	Username   string
	StoreIDs   []string
	SuperAdmin bool
}

// CanWatch reports whether the principal may receive events for storeID.
func (p Principal) CanWatch(storeID string) bool {
	if p.SuperAdmin {
		return true
	}
	return slices.Contains(p.StoreIDs, storeID)
}

// Client is one live connection as seen by the core layer.
// Rooms is owned by the hub goroutine and must not be read elsewhere.
type Client struct {
	ID        string
	Principal Principal
	Commands  chan *Command
	Events    chan *Event
	Rooms     map[string]struct{}

	done chan struct{}
}

// NewClient constructs a client with initialized channels.
// A non-positive buffer selects the default outbound queue size.
func NewClient(id string, principal Principal, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	return &Client{
		ID:        id,
		Principal: principal,
		Commands:  make(chan *Command, 8),
		Events:    make(chan *Event, buffer),
		Rooms:     make(map[string]struct{}),
		done:      make(chan struct{}),
	}
}

// Done is closed once the hub has dropped the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// name returns a label for logs.
func (c *Client) name() string {
	if c.Principal.Username != "" {
		return c.Principal.Username
	}
	return c.ID
}

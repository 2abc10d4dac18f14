package core

import "time"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventNewOrder notifies room members that an order was created for the store.
	EventNewOrder EventKind = iota
	// EventJoined acknowledges a join request.
	EventJoined
	// EventLeft acknowledges a leave request.
	EventLeft
	// EventError notifies a client about a domain error.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventNewOrder:
		return "new-order"
	case EventJoined:
		return "joined"
	case EventLeft:
		return "left"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
// Events are shared between room members and must be treated as read-only.
type Event struct {
	Kind    EventKind
	StoreID string
	Order   *OrderNotification // non-nil for EventNewOrder
	Error   *CoreError
}

// OrderNotification is the payload of a new-order event.
type OrderNotification struct {
	OrderID      string
	OrderNumber  string
	CustomerName string
	StoreID      string
	TotalCents   int64
	Items        []OrderLine
	Summary      string
	CreatedAt    time.Time
}

// OrderLine is a condensed order item for notifications.
type OrderLine struct {
	Name     string
	Quantity int
}

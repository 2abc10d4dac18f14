package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoinStore  = "join_store"
	InboundTypeLeaveStore = "leave_store"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNewOrderName = "new-order"
	EventJoinedName   = "joined"
	EventLeftName     = "left"
)

// StoreData names the store room a join or leave refers to.
type StoreData struct {
	StoreID string `json:"storeId"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Frame is Outbound as read by a client, with data left undecoded.
type Frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// EventNewOrder is pushed to every admin watching the order's store.
type EventNewOrder struct {
	Type         string      `json:"type"`
	OrderID      string      `json:"orderId,omitempty"`
	OrderNumber  string      `json:"orderNumber"`
	CustomerName string      `json:"customerName"`
	StoreID      string      `json:"storeId"`
	Total        float64     `json:"total"`
	Items        []OrderLine `json:"items,omitempty"`
	Summary      string      `json:"summary,omitempty"`
	CreatedAt    string      `json:"createdAt,omitempty"` // RFC 3339
}

// OrderLine is one item of a new-order event.
type OrderLine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code    string `json:"code"`
	Msg     string `json:"msg"`
	StoreID string `json:"storeId,omitempty"`
}

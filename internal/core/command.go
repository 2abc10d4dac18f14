package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinStore subscribes the client to a store room.
	CommandJoinStore CommandKind = iota
	// CommandLeaveStore unsubscribes the client from a store room.
	CommandLeaveStore
)

// Command represents an action requested by a client.
type Command struct {
	Kind    CommandKind
	StoreID string
}

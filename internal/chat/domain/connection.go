package domain

import "sync/atomic"

// ConnState lifecycle of one physical connection
type ConnState int32

const (
	// StateConnecting transport accepted, not registered yet
	StateConnecting ConnState = iota
	// StateActive registered in the connection registry
	StateActive
	// StateDisconnected terminal
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Sender pushes one outbound event to a specific connection.
// Implementations must not block; a full or closed channel is reported as an error.
type Sender interface {
	Send(event Event) error
}

// Connection one live transport session of a member
type Connection struct {
	UserID       string
	ConnectionID string
	Sender       Sender

	state atomic.Int32
}

// NewConnection create a connection in the Connecting state
func NewConnection(userID, connectionID string, sender Sender) *Connection {
	return &Connection{
		UserID:       userID,
		ConnectionID: connectionID,
		Sender:       sender,
	}
}

// State current lifecycle state
func (c *Connection) State() ConnState {
	return ConnState(c.state.Load())
}

// Transition moves from -> to, false when the connection is not in from
func (c *Connection) Transition(from, to ConnState) bool {
	return c.state.CompareAndSwap(int32(from), int32(to))
}

// Send pushes the event through the connection's sender
func (c *Connection) Send(event Event) error {
	return c.Sender.Send(event)
}

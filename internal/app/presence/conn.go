//go:generate go run go.uber.org/mock/mockgen -source=conn.go -destination=../../mocks/mock_conn.go -package=mocks

/*
Package presence tracks which users hold a live connection and tells every live
connection when that set changes.

The Registry is the only shared mutable state of the delivery path. It is built once
per process and injected; nothing else mutates it.
*/
package presence

import (
	"context"
	"time"
)

// EventType names a server-to-client push event.
type EventType string

const (
	// EventOnlineUsers carries the sorted list of online user ids.
	EventOnlineUsers EventType = "getOnlineUsers"

	// EventNewMessage carries a persisted message addressed to the receiver.
	EventNewMessage EventType = "newMessage"
)

// Event is one push frame sent over a live connection.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// Conn is a live, send-capable channel to one user's client.
type Conn interface {
	// UserID returns the owning user id.
	UserID() string

	// ConnectedAt returns when the channel was established.
	ConnectedAt() time.Time

	// Push queues ev for delivery. It returns once the event is queued, ctx expires,
	// or the connection is known to be closed.
	Push(ctx context.Context, ev Event) error

	// Close tears down the channel with a human-readable reason.
	Close(reason string)
}

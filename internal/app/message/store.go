//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../../mocks/mock_message_store.go -package=mocks

package message

import (
	"context"
	"errors"

	"gatherchat/internal/app/user"
)

var (
	// ErrNotFound is returned by a Store when no message has the requested id.
	ErrNotFound = errors.New("message not found")

	// ErrUnknownUser is returned by a Store when a draft references an unknown user.
	ErrUnknownUser = errors.New("unknown user")
)

// Store is the durable message collaborator.
type Store interface {
	// Create persists d with seen=false and a store-assigned id, timestamp and sequence.
	Create(ctx context.Context, d Draft) (Message, error)

	// ReadThread returns every message between readerID and otherID in creation order.
	// In the same transaction it then flips seen=true on unseen messages from otherID to readerID.
	// The returned slice is the state read before that update, so newly arrived messages still
	// carry seen=false; marked is the number of rows flipped.
	ReadThread(ctx context.Context, readerID, otherID string) (thread []Message, marked int64, err error)

	// MarkSeen sets seen=true on one message. It returns ErrNotFound when absent.
	MarkSeen(ctx context.Context, messageID string) error

	// UnseenCounts counts unseen messages to receiverID grouped by sender,
	// skipping the excluded sender and every zero count.
	UnseenCounts(ctx context.Context, receiverID, excluding string) (map[string]int, error)

	// ListUsers returns every known user except exceptID.
	ListUsers(ctx context.Context, exceptID string) ([]user.User, error)
}

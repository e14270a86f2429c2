/*
Package delivery hands persisted messages to the receiver's live connection, if any.
*/
package delivery

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"gatherchat/internal/app/message"
	"gatherchat/internal/app/presence"
	"gatherchat/internal/pkg/errs"
	"gatherchat/internal/pkg/logx"
)

// Outcome reports how a message reached its receiver.
type Outcome string

const (
	// DeliveredLive means the message was pushed to the receiver's live connection.
	DeliveredLive Outcome = "delivered-live"

	// PersistedOnly means the receiver is offline or the push failed.
	// The message stays in the store and is read on the next thread fetch.
	PersistedOnly Outcome = "persisted-only"
)

// Lookuper resolves a user id to its live connection.
type Lookuper interface {
	Lookup(userID string) (presence.Conn, bool)
}

// Stats is a point-in-time copy of the dispatcher counters.
type Stats struct {
	DeliveredLive uint64 `json:"deliveredLive"`
	PersistedOnly uint64 `json:"persistedOnly"`
	PushFailures  uint64 `json:"pushFailures"`
}

// Dispatcher pushes freshly persisted messages to online receivers.
type Dispatcher struct {
	registry Lookuper
	timeout  time.Duration
	logger   zerolog.Logger

	live     atomic.Uint64
	offline  atomic.Uint64
	failures atomic.Uint64
}

// NewDispatcher creates a Dispatcher. Each push is bounded by timeout.
func NewDispatcher(registry Lookuper, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		timeout:  timeout,
		logger:   logx.Component("delivery"),
	}
}

// Dispatch offers msg to its receiver's live connection.
// It never fails: a push error is logged and reported as PersistedOnly.
func (d *Dispatcher) Dispatch(ctx context.Context, msg message.Message) Outcome {
	conn, ok := d.registry.Lookup(msg.ReceiverID)
	if !ok {
		d.offline.Add(1)
		d.logger.Debug().
			Str("message_id", msg.ID).
			Str("receiver_id", msg.ReceiverID).
			Msg("Receiver offline, message persisted only.")
		return PersistedOnly
	}

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := conn.Push(pushCtx, presence.Event{Type: presence.EventNewMessage, Payload: msg}); err != nil {
		d.failures.Add(1)
		d.offline.Add(1)
		d.logger.Warn().
			Err(errs.Wrap(errs.ErrDeliveryPush, err)).
			Str("message_id", msg.ID).
			Str("receiver_id", msg.ReceiverID).
			Msg("Live push failed, message persisted only.")
		return PersistedOnly
	}

	d.live.Add(1)
	return DeliveredLive
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		DeliveredLive: d.live.Load(),
		PersistedOnly: d.offline.Load(),
		PushFailures:  d.failures.Load(),
	}
}

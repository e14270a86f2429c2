package presence

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gatherchat/internal/pkg/logx"
)

// Source is the read side of the Registry the Broadcaster needs.
type Source interface {
	Snapshot() []string
	Connections() []Conn
}

// Broadcaster pushes the online-user set to every live connection.
type Broadcaster struct {
	// mu orders broadcasts so a connection never receives an older snapshot after a newer one.
	mu sync.Mutex

	source  Source
	timeout time.Duration
	logger  zerolog.Logger
}

// NewBroadcaster creates a Broadcaster reading from source. Each push is bounded by timeout.
func NewBroadcaster(source Source, timeout time.Duration) *Broadcaster {
	return &Broadcaster{
		source:  source,
		timeout: timeout,
		logger:  logx.Component("broadcaster"),
	}
}

// PresenceChanged implements Listener. Every change triggers a full broadcast.
func (b *Broadcaster) PresenceChanged(change Change) {
	b.BroadcastPresence()
}

// BroadcastPresence sends the current snapshot to every registered connection.
// Push failures are logged and do not stop the fan-out.
func (b *Broadcaster) BroadcastPresence() {
	b.mu.Lock()
	defer b.mu.Unlock()

	online := b.source.Snapshot()
	conns := b.source.Connections()

	ev := Event{Type: EventOnlineUsers, Payload: online}

	failed := 0
	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		err := conn.Push(ctx, ev)
		cancel()

		if err != nil {
			failed++
			b.logger.Warn().
				Err(err).
				Str("user_id", conn.UserID()).
				Msg("Presence push failed.")
		}
	}

	b.logger.Debug().
		Int("online_users", len(online)).
		Int("recipients", len(conns)).
		Int("failed", failed).
		Msg("Presence broadcast complete.")
}

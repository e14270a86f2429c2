package presence

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"gatherchat/internal/pkg/logx"
)

// Transition is the presence state change produced by a registry mutation.
type Transition string

const (
	// Online is offline -> online.
	Online Transition = "online"

	// Replaced is online -> online with a new handle.
	Replaced Transition = "replaced"

	// Offline is online -> offline.
	Offline Transition = "offline"
)

// Change describes one effective registry mutation.
type Change struct {
	UserID     string
	Transition Transition
}

// Listener is notified synchronously after every effective register or unregister.
// Listeners run outside the registry lock and may call back into the Registry.
type Listener interface {
	PresenceChanged(change Change)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(change Change)

// PresenceChanged calls f(change).
func (f ListenerFunc) PresenceChanged(change Change) {
	f(change)
}

// Registry maps user ids to their single live connection. Newest registration wins.
type Registry struct {
	// mu guards conns. Listener calls happen after it is released.
	mu    sync.RWMutex
	conns map[string]Conn

	listenersMu sync.RWMutex
	listeners   []Listener

	logger zerolog.Logger
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]Conn),
		logger: logx.Component("presence"),
	}
}

// Subscribe adds l to the listeners notified on every change.
func (r *Registry) Subscribe(l Listener) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()

	r.listeners = append(r.listeners, l)
}

func (r *Registry) notify(change Change) {
	r.listenersMu.RLock()
	listeners := slices.Clone(r.listeners)
	r.listenersMu.RUnlock()

	for _, l := range listeners {
		l.PresenceChanged(change)
	}
}

// Register inserts or replaces the connection for userID. The superseded handle,
// if any, is left open.
func (r *Registry) Register(userID string, conn Conn) {
	r.mu.Lock()
	_, existed := r.conns[userID]
	r.conns[userID] = conn
	total := len(r.conns)
	r.mu.Unlock()

	transition := Online
	if existed {
		transition = Replaced
	}

	r.logger.Info().
		Str("user_id", userID).
		Str("transition", string(transition)).
		Int("online_users", total).
		Msg("Connection registered.")

	r.notify(Change{UserID: userID, Transition: transition})
}

// Unregister removes userID's mapping. It is a no-op, with no notification, when absent.
func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	_, ok := r.conns[userID]
	if ok {
		delete(r.conns, userID)
	}
	total := len(r.conns)
	r.mu.Unlock()

	if !ok {
		r.logger.Debug().Str("user_id", userID).Msg("Unregister for unknown user ignored.")
		return
	}

	r.logger.Info().
		Str("user_id", userID).
		Int("online_users", total).
		Msg("Connection unregistered.")

	r.notify(Change{UserID: userID, Transition: Offline})
}

// UnregisterConn removes conn only if it is still the registered handle for its user.
// A disconnect from a handle that has already been replaced is ignored. It reports
// whether the mapping was removed.
func (r *Registry) UnregisterConn(conn Conn) bool {
	userID := conn.UserID()

	r.mu.Lock()
	current, ok := r.conns[userID]
	removed := ok && current == conn
	if removed {
		delete(r.conns, userID)
	}
	total := len(r.conns)
	r.mu.Unlock()

	if !removed {
		if ok {
			r.logger.Info().Str("user_id", userID).Msg("Ignoring disconnect from stale connection.")
		}
		return false
	}

	r.logger.Info().
		Str("user_id", userID).
		Int("online_users", total).
		Msg("Connection unregistered.")

	r.notify(Change{UserID: userID, Transition: Offline})
	return true
}

// Lookup returns the live connection for userID.
func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[userID]
	return conn, ok
}

// Snapshot returns the sorted ids of every registered user.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	ids := lo.Keys(r.conns)
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Connections returns every registered handle.
func (r *Registry) Connections() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Values(r.conns)
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

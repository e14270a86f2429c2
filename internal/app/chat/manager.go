package chat

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"gatherchat/internal/app/delivery"
	"gatherchat/internal/app/message"
	"gatherchat/internal/app/presence"
	"gatherchat/internal/app/storage"
	"gatherchat/internal/pkg/logx"
)

// Manager coordinates live sockets with the presence registry and runs the send pipeline:
// validate, resolve media, persist, then offer for live delivery.
type Manager struct {
	registry   *presence.Registry
	messages   *message.Service
	media      *storage.MediaResolver
	dispatcher *delivery.Dispatcher

	// mu protects clients, which also holds superseded sockets that are still open.
	mu      sync.Mutex
	clients map[*Client]struct{}
	closing atomic.Bool

	// wg tracks running Serve calls.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewManager constructs a Manager. media may be nil, in which case image messages are rejected.
func NewManager(
	registry *presence.Registry,
	messages *message.Service,
	media *storage.MediaResolver,
	dispatcher *delivery.Dispatcher,
) *Manager {
	return &Manager{
		registry:   registry,
		messages:   messages,
		media:      media,
		dispatcher: dispatcher,
		clients:    make(map[*Client]struct{}),
		logger:     logx.Component("manager"),
	}
}

// Serve runs one upgraded socket for userID until it disconnects.
// The socket is registered as userID's live connection for its whole lifetime.
func (m *Manager) Serve(wsConn *websocket.Conn, userID string) {
	client := newClient(m, wsConn, userID)

	m.mu.Lock()
	if m.closing.Load() {
		m.mu.Unlock()
		client.Close("server shutting down")
		client.WritePump()
		return
	}
	m.clients[client] = struct{}{}
	m.wg.Add(1)
	m.mu.Unlock()
	defer m.wg.Done()

	go client.WritePump()

	m.registry.Register(userID, client)

	client.ReadPump()
}

// disconnect forgets c and drops its registry entry unless a newer socket replaced it.
func (m *Manager) disconnect(c *Client) {
	m.mu.Lock()
	delete(m.clients, c)
	m.mu.Unlock()

	m.registry.UnregisterConn(c)
}

// Send persists a message from senderID to receiverID and offers it for live delivery.
// image may be empty, a data URL, an uploaded key, or a public URL.
// A returned error means nothing was stored.
func (m *Manager) Send(
	ctx context.Context,
	senderID string,
	receiverID string,
	text string,
	image string,
) (message.Message, delivery.Outcome, error) {
	draft := message.Draft{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Image:      image,
	}.Normalize()

	if err := draft.Validate(); err != nil {
		return message.Message{}, "", err
	}

	if draft.Image != "" {
		url, err := m.media.Resolve(ctx, senderID, draft.Image)
		if err != nil {
			return message.Message{}, "", err
		}
		draft.Image = url
	}

	msg, err := m.messages.Send(ctx, draft)
	if err != nil {
		return message.Message{}, "", err
	}

	outcome := m.dispatcher.Dispatch(ctx, msg)

	m.logger.Debug().
		Str("message_id", msg.ID).
		Str("sender_id", msg.SenderID).
		Str("receiver_id", msg.ReceiverID).
		Str("outcome", string(outcome)).
		Msg("Message sent.")

	return msg, outcome, nil
}

// Online returns the number of users with a live connection.
func (m *Manager) Online() int {
	return m.registry.Len()
}

// Shutdown closes every open socket and waits for their pumps to finish or ctx to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closing.Store(true)
	clients := make([]*Client, 0, len(m.clients))
	for c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	m.logger.Info().Int("connections", len(clients)).Msg("Closing websocket connections...")

	for _, c := range clients {
		c.Close("server shutting down")
	}

	finished := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		m.logger.Info().Msg("Manager shutdown complete.")
		return nil
	case <-ctx.Done():
		m.logger.Warn().Err(ctx.Err()).Msg("Manager shutdown timed out.")
		return ctx.Err()
	}
}

/*
Package chat is the websocket transport: one Client per live socket, and a Manager
that ties sockets to the presence registry and the message pipeline.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"gatherchat/internal/app/presence"
	"gatherchat/internal/pkg/errs"
	"gatherchat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client. Inline images travel as data URLs.
	maxFrameSize = 8 << 20

	// capacity of the outbound queue.
	sendBuffer = 256

	// time budget for handling one inbound frame.
	frameTimeout = 15 * time.Second

	// sustained inbound frame rate and burst per client.
	frameRate  = rate.Limit(5)
	frameBurst = 20
)

// ErrConnClosed is returned by Push once the client has been closed.
var ErrConnClosed = errors.New("connection closed")

// Client struct represents an active WebSocket connection and its associated user.
type Client struct {
	manager *Manager

	// underlying WebSocket connection object.
	conn *websocket.Conn

	userID      string
	connectedAt time.Time

	// a buffered channel used to queue frames waiting to be sent to the client.
	// It is never closed; done signals shutdown instead.
	send chan []byte

	done        chan struct{}
	closeOnce   sync.Once
	closeReason string

	limiter *rate.Limiter
	logger  zerolog.Logger
}

func newClient(manager *Manager, wsConn *websocket.Conn, userID string) *Client {
	return &Client{
		manager:     manager,
		conn:        wsConn,
		userID:      userID,
		connectedAt: time.Now().UTC(),
		send:        make(chan []byte, sendBuffer),
		done:        make(chan struct{}),
		limiter:     rate.NewLimiter(frameRate, frameBurst),
		logger: logx.Logger().With().
			Str("component", "ws").
			Str("user_id", userID).
			Logger(),
	}
}

// UserID implements presence.Conn.
func (c *Client) UserID() string { return c.userID }

// ConnectedAt implements presence.Conn.
func (c *Client) ConnectedAt() time.Time { return c.connectedAt }

// Push implements presence.Conn. It blocks until the frame is queued, ctx ends,
// or the client is closed.
func (c *Client) Push(ctx context.Context, ev presence.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements presence.Conn. The write pump sends a close frame carrying reason
// and tears the socket down. Calling Close more than once is harmless.
func (c *Client) Close(reason string) {
	c.closeOnce.Do(func() {
		c.closeReason = reason
		close(c.done)
	})
}

// ReadPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong), frame dispatch, and performs cleanup upon connection closure.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		c.processInboundFrame(frame)
	}
}

// cleanupOnDisconnect runs when ReadPump terminates, whatever the cause.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Debug().Msg("Client connection cleanup starting.")

	c.manager.disconnect(c)
	c.Close("read pump stopped")

	if err := c.conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

func (c *Client) processInboundFrame(raw []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.logger.Warn().Err(err).Int("frame_bytes", len(raw)).Msg("Client sent invalid JSON")
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat), "")
		return
	}

	if !c.limiter.Allow() {
		c.SendError(errs.NewError(errs.ErrRateLimitExceeded), frame.TempID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	switch frame.Type {
	case FrameSendMessage:
		c.handleSendMessage(ctx, frame)

	case FrameMarkSeen:
		c.handleMarkSeen(ctx, frame)

	default:
		c.logger.Warn().Str("frame_type", frame.Type).Msg("Client sent unsupported frame type")
		c.SendError(errs.NewError(errs.ErrInvalidParams), frame.TempID)
	}
}

func (c *Client) handleSendMessage(ctx context.Context, frame InboundFrame) {
	var payload SendMessagePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat), frame.TempID)
		return
	}

	msg, outcome, err := c.manager.Send(ctx, c.userID, payload.ReceiverID, payload.Text, payload.Image)
	if err != nil {
		c.SendError(err, frame.TempID)
		return
	}

	c.enqueue(presence.Event{
		Type:    EventConfirm,
		Payload: ConfirmPayload{TempID: frame.TempID, Message: msg, Outcome: outcome},
	})
}

func (c *Client) handleMarkSeen(ctx context.Context, frame InboundFrame) {
	var payload MarkSeenPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat), frame.TempID)
		return
	}

	if err := c.manager.messages.MarkSeen(ctx, payload.MessageID); err != nil {
		c.SendError(err, frame.TempID)
	}
}

// WritePump handles writing frames from the send channel to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// nothing drains send any more, so later pushes must fail fast
		c.Close("write pump stopped")

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame := <-c.send:
			if !c.writeFrame(websocket.TextMessage, frame) {
				return
			}

		case <-c.done:
			c.writeClose()
			return

		case <-ticker.C:
			if !c.writeFrame(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// writeFrame returns false if the WritePump loop should terminate.
func (c *Client) writeFrame(messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(messageType, data); err != nil {
		c.logger.Debug().Err(err).Int("message_type", messageType).Msg("Error writing frame")
		return false
	}

	return true
}

func (c *Client) writeClose() {
	closeMessage := websocket.FormatCloseMessage(websocket.CloseGoingAway, c.closeReason)
	if !c.writeFrame(websocket.CloseMessage, closeMessage) {
		return
	}

	c.logger.Debug().Str("reason", c.closeReason).Msg("Close frame sent.")
}

// enqueue queues ev without blocking. A full queue drops the frame.
func (c *Client) enqueue(ev presence.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("Error marshaling frame for client")
		return
	}

	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping frame")
	}
}

// SendError queues an error frame describing err.
func (c *Client) SendError(err error, tempID string) {
	customErr := errs.From(err)
	if customErr.Status >= 500 {
		c.logger.Error().Err(err).Int("code", customErr.Code).Msg("Frame handling failed.")
	}

	c.enqueue(presence.Event{
		Type: EventError,
		Payload: ErrorPayload{
			Code:    customErr.Code,
			Message: customErr.Message,
			TempID:  tempID,
		},
	})
}

var _ presence.Conn = (*Client)(nil)

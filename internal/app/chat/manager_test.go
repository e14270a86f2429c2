package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"gatherchat/internal/app/delivery"
	"gatherchat/internal/app/message"
	"gatherchat/internal/app/presence"
	"gatherchat/internal/app/user"
	"gatherchat/internal/pkg/errs"
)

type harness struct {
	registry *presence.Registry
	messages *message.Service
	manager  *Manager
	server   *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	registry := presence.NewRegistry()
	registry.Subscribe(presence.NewBroadcaster(registry, time.Second))

	messages := message.NewService(message.NewMemoryStore(
		user.User{ID: "a", FullName: "Ada"},
		user.User{ID: "b", FullName: "Bea"},
	))
	manager := NewManager(registry, messages, nil, delivery.NewDispatcher(registry, time.Second))

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		manager.Serve(conn, r.URL.Query().Get("uid"))
	}))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = manager.Shutdown(ctx)
		server.Close()
	})

	return &harness{registry: registry, messages: messages, manager: manager, server: server}
}

func (h *harness) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/?uid=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// readUntil returns the payload of the first frame of type typ, failing after a deadline.
func readUntil(t *testing.T, conn *websocket.Conn, typ presence.EventType) json.RawMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f), "waiting for %s", typ)
		if f.Type == string(typ) {
			return f.Payload
		}
	}
}

// waitOnline reads presence frames until one lists exactly ids.
func waitOnline(t *testing.T, conn *websocket.Conn, ids ...string) {
	t.Helper()

	for {
		var online []string
		require.NoError(t, json.Unmarshal(readUntil(t, conn, presence.EventOnlineUsers), &online))
		if strings.Join(online, ",") == strings.Join(ids, ",") {
			return
		}
	}
}

// drain collects frame types until the socket stays quiet for the given window.
func drain(t *testing.T, conn *websocket.Conn, quiet time.Duration) []string {
	t.Helper()

	var types []string
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(quiet)))
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return types
		}
		types = append(types, f.Type)
	}
}

func TestManager_BothOnlineLiveDelivery(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	a := h.dial(t, "a")
	waitOnline(t, a, "a")
	b := h.dial(t, "b")
	waitOnline(t, b, "a", "b")

	msg, outcome, err := h.manager.Send(context.Background(), "a", "b", "hi", "")
	req.NoError(err)
	req.Equal(delivery.DeliveredLive, outcome)

	var pushed message.Message
	req.NoError(json.Unmarshal(readUntil(t, b, presence.EventNewMessage), &pushed))
	req.Equal(msg.ID, pushed.ID)
	req.Equal("hi", pushed.Text)
	req.False(pushed.Seen)

	thread, err := h.messages.FetchThread(context.Background(), "b", "a")
	req.NoError(err)
	req.Len(thread, 1)
	req.Equal(msg.ID, thread[0].ID)
}

func TestManager_OfflineThenOnline(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	msg, outcome, err := h.manager.Send(context.Background(), "a", "b", "while you were out", "")
	req.NoError(err)
	req.Equal(delivery.PersistedOnly, outcome)

	b := h.dial(t, "b")
	waitOnline(t, b, "b")
	req.NotContains(drain(t, b, 200*time.Millisecond), string(presence.EventNewMessage))

	thread, err := h.messages.FetchThread(context.Background(), "b", "a")
	req.NoError(err)
	req.Len(thread, 1)
	req.Equal(msg.ID, thread[0].ID)
	req.False(thread[0].Seen)

	counts, err := h.messages.UnseenCounts(context.Background(), "b", "")
	req.NoError(err)
	req.Empty(counts)
}

func TestClient_SendMessageFrame(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	a := h.dial(t, "a")
	waitOnline(t, a, "a")
	b := h.dial(t, "b")
	waitOnline(t, b, "a", "b")

	req.NoError(a.WriteJSON(map[string]any{
		"type":    FrameSendMessage,
		"tempId":  "t-1",
		"payload": SendMessagePayload{ReceiverID: "b", Text: "over the socket"},
	}))

	var confirm ConfirmPayload
	req.NoError(json.Unmarshal(readUntil(t, a, EventConfirm), &confirm))
	req.Equal("t-1", confirm.TempID)
	req.Equal(delivery.DeliveredLive, confirm.Outcome)

	var pushed message.Message
	req.NoError(json.Unmarshal(readUntil(t, b, presence.EventNewMessage), &pushed))
	req.Equal(confirm.Message.ID, pushed.ID)

	req.NoError(b.WriteJSON(map[string]any{
		"type":    FrameMarkSeen,
		"payload": MarkSeenPayload{MessageID: pushed.ID},
	}))

	require.Eventually(t, func() bool {
		counts, err := h.messages.UnseenCounts(context.Background(), "b", "")
		return err == nil && len(counts) == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestClient_RejectedFrames(t *testing.T) {
	h := newHarness(t)
	a := h.dial(t, "a")
	waitOnline(t, a, "a")

	cases := []struct {
		name    string
		payload SendMessagePayload
		code    int
	}{
		{name: "self message", payload: SendMessagePayload{ReceiverID: "a", Text: "me"}, code: errs.ErrSelfMessage},
		{name: "empty message", payload: SendMessagePayload{ReceiverID: "b"}, code: errs.ErrEmptyMessage},
		{name: "image without media store", payload: SendMessagePayload{ReceiverID: "b", Image: "data:image/png;base64,AAAA"}, code: errs.ErrMediaUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)

			req.NoError(a.WriteJSON(map[string]any{
				"type":    FrameSendMessage,
				"tempId":  tc.name,
				"payload": tc.payload,
			}))

			var payload ErrorPayload
			req.NoError(json.Unmarshal(readUntil(t, a, EventError), &payload))
			req.Equal(tc.code, payload.Code)
			req.Equal(tc.name, payload.TempID)
		})
	}

	thread, err := h.messages.FetchThread(context.Background(), "a", "b")
	require.NoError(t, err)
	require.Empty(t, thread)
}

func TestManager_DisconnectBroadcasts(t *testing.T) {
	h := newHarness(t)

	a := h.dial(t, "a")
	waitOnline(t, a, "a")
	b := h.dial(t, "b")
	waitOnline(t, b, "a", "b")

	require.NoError(t, a.Close())

	waitOnline(t, b, "b")
	_, ok := h.registry.Lookup("a")
	require.False(t, ok)
}

func TestManager_ReplacedConnectionSurvivesOldDisconnect(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	first := h.dial(t, "a")
	waitOnline(t, first, "a")
	second := h.dial(t, "a")
	waitOnline(t, second, "a")

	req.NoError(first.Close())

	req.Never(func() bool {
		_, ok := h.registry.Lookup("a")
		return !ok
	}, 300*time.Millisecond, 20*time.Millisecond)

	msg, outcome, err := h.manager.Send(context.Background(), "b", "a", "to the new tab", "")
	req.NoError(err)
	req.Equal(delivery.DeliveredLive, outcome)

	var pushed message.Message
	req.NoError(json.Unmarshal(readUntil(t, second, presence.EventNewMessage), &pushed))
	req.Equal(msg.ID, pushed.ID)
}

func TestManager_Shutdown(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)

	a := h.dial(t, "a")
	waitOnline(t, a, "a")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req.NoError(h.manager.Shutdown(ctx))

	req.NoError(a.SetReadDeadline(time.Now().Add(3 * time.Second)))
	for {
		_, _, err := a.ReadMessage()
		if err == nil {
			continue
		}
		req.True(websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
		break
	}
	req.Zero(h.manager.Online())
}

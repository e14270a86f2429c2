package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"gatherchat/internal/app/presence"
)

// upgradedPair returns the server side of a live websocket and its dialed peer.
func upgradedPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	serverSide := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverSide <- conn
	}))
	t.Cleanup(server.Close)

	peer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = peer.Close() })

	select {
	case conn := <-serverSide:
		t.Cleanup(func() { _ = conn.Close() })
		return conn, peer
	case <-time.After(2 * time.Second):
		t.Fatal("server side was never upgraded")
		return nil, nil
	}
}

func TestClient_PushFailsOnceWritePumpExits(t *testing.T) {
	req := require.New(t)

	conn, _ := upgradedPair(t)
	client := newClient(nil, conn, "a")

	pumpDone := make(chan struct{})
	go func() {
		client.WritePump()
		close(pumpDone)
	}()

	// break the socket underneath the pump so its next write fails
	req.NoError(conn.UnderlyingConn().Close())

	ev := presence.Event{Type: presence.EventNewMessage, Payload: map[string]string{"_id": "m1"}}
	req.NoError(client.Push(context.Background(), ev))

	select {
	case <-pumpDone:
	case <-time.After(2 * time.Second):
		t.Fatal("write pump did not stop after a failed write")
	}

	for i := 0; i < sendBuffer+1; i++ {
		req.ErrorIs(client.Push(context.Background(), ev), ErrConnClosed)
	}
}

func TestClient_PushAfterClose(t *testing.T) {
	req := require.New(t)

	conn, _ := upgradedPair(t)
	client := newClient(nil, conn, "a")

	client.Close("bye")
	client.Close("again")

	err := client.Push(context.Background(), presence.Event{Type: EventConfirm})
	req.ErrorIs(err, ErrConnClosed)
	req.Equal("bye", client.closeReason)
}

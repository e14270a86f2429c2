package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"gatherchat/internal/app/message"
	"gatherchat/internal/app/presence"
	"gatherchat/internal/mocks"
)

func TestDispatcher_Dispatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	msg := message.Message{ID: "m1", SenderID: "a", ReceiverID: "b", Text: "hi"}

	t.Run("should report persisted-only when receiver is offline", func(t *testing.T) {
		req := require.New(t)
		registry := presence.NewRegistry()
		d := NewDispatcher(registry, time.Second)

		req.Equal(PersistedOnly, d.Dispatch(context.Background(), msg))
		req.Equal(Stats{PersistedOnly: 1}, d.Stats())
	})

	t.Run("should push newMessage to the live connection", func(t *testing.T) {
		req := require.New(t)
		registry := presence.NewRegistry()
		d := NewDispatcher(registry, time.Second)

		conn := mocks.NewMockConn(ctrl)
		conn.EXPECT().UserID().Return("b").AnyTimes()
		conn.EXPECT().
			Push(gomock.Any(), presence.Event{Type: presence.EventNewMessage, Payload: msg}).
			Return(nil).
			Times(1)
		registry.Register("b", conn)

		req.Equal(DeliveredLive, d.Dispatch(context.Background(), msg))
		req.Equal(Stats{DeliveredLive: 1}, d.Stats())
	})

	t.Run("should swallow push errors", func(t *testing.T) {
		req := require.New(t)
		registry := presence.NewRegistry()
		d := NewDispatcher(registry, time.Second)

		conn := mocks.NewMockConn(ctrl)
		conn.EXPECT().UserID().Return("b").AnyTimes()
		conn.EXPECT().Push(gomock.Any(), gomock.Any()).Return(errors.New("broken pipe")).Times(1)
		registry.Register("b", conn)

		req.Equal(PersistedOnly, d.Dispatch(context.Background(), msg))
		req.Equal(Stats{PersistedOnly: 1, PushFailures: 1}, d.Stats())
	})

	t.Run("should bound the push with a deadline even if the caller's context is canceled", func(t *testing.T) {
		req := require.New(t)
		registry := presence.NewRegistry()
		d := NewDispatcher(registry, 50*time.Millisecond)

		conn := mocks.NewMockConn(ctrl)
		conn.EXPECT().UserID().Return("b").AnyTimes()
		conn.EXPECT().Push(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ presence.Event) error {
			_, ok := ctx.Deadline()
			req.True(ok)
			req.NoError(ctx.Err())
			return nil
		}).Times(1)
		registry.Register("b", conn)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		req.Equal(DeliveredLive, d.Dispatch(ctx, msg))
	})
}

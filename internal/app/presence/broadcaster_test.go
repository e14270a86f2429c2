package presence_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"gatherchat/internal/app/presence"
	"gatherchat/internal/mocks"
)

func TestBroadcaster_BroadcastPresence(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("should push the sorted snapshot to every connection", func(t *testing.T) {
		registry := presence.NewRegistry()
		broadcaster := presence.NewBroadcaster(registry, time.Second)

		alice := mocks.NewMockConn(ctrl)
		bob := mocks.NewMockConn(ctrl)
		registry.Register("bob", bob)
		registry.Register("alice", alice)

		expected := presence.Event{Type: presence.EventOnlineUsers, Payload: []string{"alice", "bob"}}
		alice.EXPECT().Push(gomock.Any(), expected).Return(nil).Times(1)
		bob.EXPECT().Push(gomock.Any(), expected).Return(nil).Times(1)

		broadcaster.BroadcastPresence()
	})

	t.Run("should keep going when one push fails", func(t *testing.T) {
		registry := presence.NewRegistry()
		broadcaster := presence.NewBroadcaster(registry, time.Second)

		broken := mocks.NewMockConn(ctrl)
		healthy := mocks.NewMockConn(ctrl)
		registry.Register("broken", broken)
		registry.Register("healthy", healthy)

		broken.EXPECT().Push(gomock.Any(), gomock.Any()).Return(errors.New("queue full")).Times(1)
		broken.EXPECT().UserID().Return("broken").AnyTimes()
		healthy.EXPECT().Push(gomock.Any(), gomock.Any()).Return(nil).Times(1)

		broadcaster.BroadcastPresence()
	})

	t.Run("should bound each push with a deadline", func(t *testing.T) {
		req := require.New(t)
		registry := presence.NewRegistry()
		broadcaster := presence.NewBroadcaster(registry, 50*time.Millisecond)

		conn := mocks.NewMockConn(ctrl)
		registry.Register("slow", conn)

		conn.EXPECT().Push(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ presence.Event) error {
			_, ok := ctx.Deadline()
			req.True(ok)
			return nil
		}).Times(1)

		broadcaster.BroadcastPresence()
	})
}

func TestBroadcaster_TriggeredByRegistryChanges(t *testing.T) {
	req := require.New(t)
	registry := presence.NewRegistry()
	registry.Subscribe(presence.NewBroadcaster(registry, time.Second))

	alice := newFakeConn("alice")
	bob := newFakeConn("bob")

	registry.Register("alice", alice)
	registry.Register("bob", bob)
	registry.Unregister("bob")

	req.Equal([]presence.Event{
		{Type: presence.EventOnlineUsers, Payload: []string{"alice"}},
		{Type: presence.EventOnlineUsers, Payload: []string{"alice", "bob"}},
		{Type: presence.EventOnlineUsers, Payload: []string{"alice"}},
	}, alice.Events())

	req.Equal([]presence.Event{
		{Type: presence.EventOnlineUsers, Payload: []string{"alice", "bob"}},
	}, bob.Events())
}

type jitterConn struct {
	*fakeConn
	rng func() time.Duration
}

func (c *jitterConn) Push(ctx context.Context, ev presence.Event) error {
	time.Sleep(c.rng())
	return c.fakeConn.Push(ctx, ev)
}

func TestBroadcaster_ConcurrentRegistrationsConverge(t *testing.T) {
	req := require.New(t)

	for round := 0; round < 50; round++ {
		registry := presence.NewRegistry()
		registry.Subscribe(presence.NewBroadcaster(registry, time.Second))

		var seed atomic.Int64
		jitter := func() time.Duration {
			return time.Duration(seed.Add(37)%300) * time.Microsecond
		}

		watcher := &jitterConn{fakeConn: newFakeConn("w"), rng: jitter}
		registry.Register("w", watcher)

		joiners := make([]*jitterConn, 0, 3)
		var wg sync.WaitGroup
		for _, id := range []string{"x", "y", "z"} {
			conn := &jitterConn{fakeConn: newFakeConn(id), rng: jitter}
			joiners = append(joiners, conn)
			wg.Add(1)
			go func() {
				defer wg.Done()
				registry.Register(conn.UserID(), conn)
			}()
		}
		wg.Wait()

		final := registry.Snapshot()
		for _, conn := range append(joiners, watcher) {
			events := conn.Events()
			req.NotEmpty(events, "round %d user %s", round, conn.UserID())
			req.Equal(final, events[len(events)-1].Payload, "round %d user %s", round, conn.UserID())
		}
	}
}

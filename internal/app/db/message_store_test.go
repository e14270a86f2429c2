package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"gatherchat/internal/app/message"
	"gatherchat/internal/app/user"
)

func setupMessageStore(t *testing.T) *MessageStore {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "gatherchat",
				"POSTGRES_PASSWORD": "gatherchat",
				"POSTGRES_DB":       "gatherchat",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://gatherchat:gatherchat@%s:%s/gatherchat?sslmode=disable", host, port.Port())
	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := NewMessageStore(pool)
	for _, u := range []user.User{
		{ID: "a", FullName: "Ada"},
		{ID: "b", FullName: "Bea"},
		{ID: "c", FullName: "Cal"},
	} {
		require.NoError(t, store.UpsertUser(ctx, u))
	}
	return store
}

func TestMessageStore(t *testing.T) {
	store := setupMessageStore(t)
	ctx := context.Background()

	t.Run("create assigns id, order and unseen state", func(t *testing.T) {
		req := require.New(t)

		first, err := store.Create(ctx, message.Draft{SenderID: "a", ReceiverID: "b", Text: "one"})
		req.NoError(err)
		second, err := store.Create(ctx, message.Draft{SenderID: "a", ReceiverID: "b", Image: "https://cdn/x.png"})
		req.NoError(err)

		req.NotEmpty(first.ID)
		req.False(first.Seen)
		req.Less(first.Seq, second.Seq)
		req.Equal("https://cdn/x.png", second.Image)
	})

	t.Run("read thread marks only incoming messages", func(t *testing.T) {
		req := require.New(t)

		_, err := store.Create(ctx, message.Draft{SenderID: "b", ReceiverID: "a", Text: "reply"})
		req.NoError(err)

		counts, err := store.UnseenCounts(ctx, "b", "b")
		req.NoError(err)
		req.Equal(map[string]int{"a": 2}, counts)

		thread, marked, err := store.ReadThread(ctx, "b", "a")
		req.NoError(err)
		req.EqualValues(2, marked)
		req.Len(thread, 3)
		req.False(thread[0].Seen)
		req.False(thread[1].Seen)
		req.False(thread[2].Seen)

		reread, marked, err := store.ReadThread(ctx, "b", "a")
		req.NoError(err)
		req.Zero(marked)
		req.True(reread[0].Seen)
		req.True(reread[1].Seen)
		req.False(reread[2].Seen)

		counts, err = store.UnseenCounts(ctx, "b", "b")
		req.NoError(err)
		req.Empty(counts)
	})

	t.Run("mark seen", func(t *testing.T) {
		req := require.New(t)

		msg, err := store.Create(ctx, message.Draft{SenderID: "c", ReceiverID: "a", Text: "hey"})
		req.NoError(err)

		req.NoError(store.MarkSeen(ctx, msg.ID))
		req.NoError(store.MarkSeen(ctx, msg.ID))
		req.ErrorIs(store.MarkSeen(ctx, "3f9b4f7e-8a41-4a8e-9d1c-5a5e1c0b2f11"), message.ErrNotFound)
	})

	t.Run("list users excludes the caller", func(t *testing.T) {
		users, err := store.ListUsers(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, []string{"b", "c"}, []string{users[0].ID, users[1].ID})
	})

	t.Run("ids without a directory row are accepted", func(t *testing.T) {
		req := require.New(t)

		msg, err := store.Create(ctx, message.Draft{SenderID: "newcomer", ReceiverID: "ghost", Text: "hi"})
		req.NoError(err)
		req.Equal("newcomer", msg.SenderID)

		users, err := store.ListUsers(ctx, "ghost")
		req.NoError(err)
		ids := make([]string, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		req.Contains(ids, "newcomer")

		counts, err := store.UnseenCounts(ctx, "ghost", "ghost")
		req.NoError(err)
		req.Equal(map[string]int{"newcomer": 1}, counts)
	})
}

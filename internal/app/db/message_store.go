package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gatherchat/internal/app/message"
	"gatherchat/internal/app/user"
	"gatherchat/internal/pkg/randx"
)

// MessageStore is the PostgreSQL implementation of message.Store.
type MessageStore struct {
	pool *pgxpool.Pool
}

// NewMessageStore creates a MessageStore over an initialized pool.
func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

const messageColumns = `id::text, seq, sender_id, receiver_id, text, image, seen, created_at`

func scanMessage(row pgx.Row) (message.Message, error) {
	var m message.Message
	err := row.Scan(&m.ID, &m.Seq, &m.SenderID, &m.ReceiverID, &m.Text, &m.Image, &m.Seen, &m.CreatedAt)
	if err != nil {
		return message.Message{}, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

// UpsertUser inserts or refreshes a directory entry.
func (s *MessageStore) UpsertUser(ctx context.Context, u user.User) error {
	const q = `
		INSERT INTO users (id, full_name, email, profile_pic, bio)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    email = EXCLUDED.email,
		    profile_pic = EXCLUDED.profile_pic,
		    bio = EXCLUDED.bio`

	if _, err := s.pool.Exec(ctx, q, u.ID, u.FullName, u.Email, u.ProfilePic, u.Bio); err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}

// Create implements message.Store. Sender and receiver ids come pre-verified from the
// identity provider, so ids without a directory row are added with the id as display name.
func (s *MessageStore) Create(ctx context.Context, d message.Draft) (message.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return message.Message{}, fmt.Errorf("begin create tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO users (id, full_name)
		VALUES ($1, $1), ($2, $2)
		ON CONFLICT (id) DO NOTHING`,
		d.SenderID, d.ReceiverID); err != nil {
		return message.Message{}, fmt.Errorf("register message parties: %w", err)
	}

	const q = `
		INSERT INTO messages (id, sender_id, receiver_id, text, image)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + messageColumns

	msg, err := scanMessage(tx.QueryRow(ctx, q, randx.MessageID(), d.SenderID, d.ReceiverID, d.Text, d.Image))
	if err != nil {
		if IsForeignKeyViolation(err) {
			return message.Message{}, fmt.Errorf("%w: %v", message.ErrUnknownUser, err)
		}
		return message.Message{}, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return message.Message{}, fmt.Errorf("commit create tx: %w", err)
	}
	return msg, nil
}

// ReadThread implements message.Store. The read and the seen update share one transaction;
// the thread is selected first so callers see which messages were new.
func (s *MessageStore) ReadThread(ctx context.Context, readerID, otherID string) ([]message.Message, int64, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, 0, fmt.Errorf("begin thread tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY seq`,
		readerID, otherID)
	if err != nil {
		return nil, 0, fmt.Errorf("select thread: %w", err)
	}

	thread, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (message.Message, error) {
		return scanMessage(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan thread: %w", err)
	}

	var lastSeq int64
	if len(thread) > 0 {
		lastSeq = thread[len(thread)-1].Seq
	}

	tag, err := tx.Exec(ctx, `
		UPDATE messages SET seen = TRUE
		WHERE sender_id = $1 AND receiver_id = $2 AND NOT seen AND seq <= $3`,
		otherID, readerID, lastSeq)
	if err != nil {
		return nil, 0, fmt.Errorf("mark thread seen: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("commit thread tx: %w", err)
	}
	return thread, tag.RowsAffected(), nil
}

// MarkSeen implements message.Store.
func (s *MessageStore) MarkSeen(ctx context.Context, messageID string) error {
	var id string
	err := s.pool.QueryRow(ctx,
		`UPDATE messages SET seen = TRUE WHERE id = $1::uuid RETURNING id::text`,
		messageID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return message.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("mark message seen: %w", err)
	}
	return nil
}

// UnseenCounts implements message.Store.
func (s *MessageStore) UnseenCounts(ctx context.Context, receiverID, excluding string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sender_id, count(*)
		FROM messages
		WHERE receiver_id = $1 AND NOT seen AND sender_id <> $2
		GROUP BY sender_id`,
		receiverID, excluding)
	if err != nil {
		return nil, fmt.Errorf("count unseen: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var senderID string
		var n int
		if err := rows.Scan(&senderID, &n); err != nil {
			return nil, fmt.Errorf("scan unseen count: %w", err)
		}
		counts[senderID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unseen counts: %w", err)
	}
	return counts, nil
}

// ListUsers implements message.Store.
func (s *MessageStore) ListUsers(ctx context.Context, exceptID string) ([]user.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, full_name, email, profile_pic, bio
		FROM users
		WHERE id <> $1
		ORDER BY full_name, id`,
		exceptID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (user.User, error) {
		var u user.User
		err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.ProfilePic, &u.Bio)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return users, nil
}

var _ message.Store = (*MessageStore)(nil)

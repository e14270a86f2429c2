package message

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"gatherchat/internal/app/user"
	"gatherchat/internal/pkg/randx"
)

// MemoryStore is a process-local Store used in development and tests.
// Users it has not been told about are added with their id as display name
// the first time they appear on a message.
type MemoryStore struct {
	mu       sync.RWMutex
	messages []Message
	byID     map[string]int
	users    map[string]user.User
	seq      int64
	now      func() time.Time
}

// NewMemoryStore returns an empty store seeded with users.
func NewMemoryStore(users ...user.User) *MemoryStore {
	s := &MemoryStore{
		byID:  make(map[string]int),
		users: make(map[string]user.User),
		now:   time.Now,
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

// AddUser inserts or replaces a directory entry.
func (s *MemoryStore) AddUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[u.ID] = u
}

func (s *MemoryStore) rememberLocked(userID string) {
	if _, ok := s.users[userID]; !ok {
		s.users[userID] = user.User{ID: userID, FullName: userID}
	}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, d Draft) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	msg := Message{
		ID:         randx.MessageID(),
		SenderID:   d.SenderID,
		ReceiverID: d.ReceiverID,
		Text:       d.Text,
		Image:      d.Image,
		CreatedAt:  s.now().UTC(),
		Seq:        s.seq,
	}

	s.byID[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
	s.rememberLocked(d.SenderID)
	s.rememberLocked(d.ReceiverID)

	return msg, nil
}

// ReadThread implements Store.
func (s *MemoryStore) ReadThread(ctx context.Context, readerID, otherID string) ([]Message, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var marked int64
	thread := make([]Message, 0)
	for i := range s.messages {
		m := &s.messages[i]
		incoming := m.SenderID == otherID && m.ReceiverID == readerID
		outgoing := m.SenderID == readerID && m.ReceiverID == otherID
		if !incoming && !outgoing {
			continue
		}
		thread = append(thread, *m)
		if incoming && !m.Seen {
			m.Seen = true
			marked++
		}
	}

	return thread, marked, nil
}

// MarkSeen implements Store.
func (s *MemoryStore) MarkSeen(ctx context.Context, messageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[messageID]
	if !ok {
		return ErrNotFound
	}
	s.messages[idx].Seen = true
	return nil
}

// UnseenCounts implements Store.
func (s *MemoryStore) UnseenCounts(ctx context.Context, receiverID, excluding string) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, m := range s.messages {
		if m.ReceiverID == receiverID && !m.Seen && m.SenderID != excluding {
			counts[m.SenderID]++
		}
	}
	return counts, nil
}

// ListUsers implements Store. Users are ordered by display name, then id.
func (s *MemoryStore) ListUsers(ctx context.Context, exceptID string) ([]user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]user.User, 0, len(s.users))
	for id, u := range s.users {
		if id != exceptID {
			users = append(users, u)
		}
	}

	slices.SortFunc(users, func(a, b user.User) int {
		if c := strings.Compare(a.FullName, b.FullName); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return users, nil
}

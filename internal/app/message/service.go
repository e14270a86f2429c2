package message

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"gatherchat/internal/app/user"
	"gatherchat/internal/pkg/errs"
	"gatherchat/internal/pkg/logx"
	"gatherchat/internal/pkg/randx"
)

// Service applies the message rules on top of a Store. It holds no message state.
type Service struct {
	store  Store
	logger zerolog.Logger
}

// NewService creates a Service over store.
func NewService(store Store) *Service {
	return &Service{
		store:  store,
		logger: logx.Component("messages"),
	}
}

// storeError maps a Store error onto the application error taxonomy.
func storeError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return errs.Wrap(errs.ErrMessageNotFound, err)
	case errors.Is(err, ErrUnknownUser):
		return errs.Wrap(errs.ErrUnknownReceiver, err)
	default:
		return errs.Wrap(errs.ErrPersistence, err)
	}
}

// Send validates d and persists it. Nothing is written when validation fails.
func (s *Service) Send(ctx context.Context, d Draft) (Message, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return Message{}, err
	}

	msg, err := s.store.Create(ctx, d)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("sender_id", d.SenderID).
			Str("receiver_id", d.ReceiverID).
			Msg("Failed to persist message.")
		return Message{}, storeError(err)
	}

	s.logger.Debug().
		Str("message_id", msg.ID).
		Str("sender_id", msg.SenderID).
		Str("receiver_id", msg.ReceiverID).
		Bool("has_image", msg.Image != "").
		Msg("Message persisted.")

	return msg, nil
}

// FetchThread returns the conversation between callerID and otherID in creation order
// and marks every unseen message from otherID to callerID as seen. Messages are returned
// as they were before marking, so new arrivals still read seen=false. The caller's own
// sent messages are never modified.
func (s *Service) FetchThread(ctx context.Context, callerID, otherID string) ([]Message, error) {
	callerID = strings.TrimSpace(callerID)
	otherID = strings.TrimSpace(otherID)
	if callerID == "" || otherID == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	thread, marked, err := s.store.ReadThread(ctx, callerID, otherID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("caller_id", callerID).
			Str("other_id", otherID).
			Msg("Failed to read thread.")
		return nil, storeError(err)
	}

	if marked > 0 {
		s.logger.Debug().
			Str("caller_id", callerID).
			Str("other_id", otherID).
			Int64("marked_seen", marked).
			Msg("Thread messages marked seen.")
	}

	if thread == nil {
		thread = []Message{}
	}
	return thread, nil
}

// MarkSeen marks one message seen. Repeating the call is harmless.
func (s *Service) MarkSeen(ctx context.Context, messageID string) error {
	messageID = strings.TrimSpace(messageID)
	if !randx.IsValidUUID(messageID) {
		return errs.NewError(errs.ErrMessageNotFound)
	}

	if err := s.store.MarkSeen(ctx, messageID); err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error().Err(err).Str("message_id", messageID).Msg("Failed to mark message seen.")
		}
		return storeError(err)
	}
	return nil
}

// UnseenCounts returns a sparse map from sender id to the number of unseen messages
// that sender sent to forUserID. An empty excluding defaults to forUserID.
func (s *Service) UnseenCounts(ctx context.Context, forUserID, excluding string) (map[string]int, error) {
	if forUserID == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}
	if excluding == "" {
		excluding = forUserID
	}

	counts, err := s.store.UnseenCounts(ctx, forUserID, excluding)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", forUserID).Msg("Failed to count unseen messages.")
		return nil, storeError(err)
	}

	for senderID, n := range counts {
		if n <= 0 {
			delete(counts, senderID)
		}
	}
	if counts == nil {
		counts = map[string]int{}
	}
	return counts, nil
}

// Counterparties lists every other user together with the caller's unseen counts.
func (s *Service) Counterparties(ctx context.Context, callerID string) ([]user.User, map[string]int, error) {
	if callerID == "" {
		return nil, nil, errs.NewError(errs.ErrInvalidParams)
	}

	users, err := s.store.ListUsers(ctx, callerID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", callerID).Msg("Failed to list users.")
		return nil, nil, storeError(err)
	}

	counts, err := s.UnseenCounts(ctx, callerID, callerID)
	if err != nil {
		return nil, nil, err
	}

	if users == nil {
		users = []user.User{}
	}
	return users, counts, nil
}

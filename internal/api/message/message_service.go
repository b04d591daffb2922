package message

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/messagely/messagely/internal/api"
	"github.com/messagely/messagely/internal/api/access"
	"github.com/messagely/messagely/internal/types"
)

var _ MessageService = (*MessageServiceImpl)(nil)

// MessageService is the message store: creation, retrieval with joined
// party identity, and the read-receipt mutation. Authorization runs
// here, against the verified caller identity the boundary passes in.
type MessageService interface {
	Create(ctx context.Context, fromUsername, toUsername, body string) (*types.Message, error)
	Get(ctx context.Context, caller string, id int64) (*types.MessageDetail, error)
	MarkRead(ctx context.Context, caller string, id int64) (time.Time, error)
}

type MessageServiceImpl struct {
	logger *slog.Logger
	repo   MessageRepo
}

func NewMessageService(repo MessageRepo, logger *slog.Logger) *MessageServiceImpl {
	return &MessageServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

// Create stores a new message from the verified sender. The recipient
// must exist; the referential check is the backing store's.
func (s *MessageServiceImpl) Create(ctx context.Context, fromUsername, toUsername, body string) (*types.Message, error) {
	if fromUsername == "" {
		return nil, fmt.Errorf("sender identity is required: %w", api.ErrUnauthenticated)
	}
	if strings.TrimSpace(toUsername) == "" || strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("recipient and body are required: %w", api.ErrBadRequest)
	}

	msg, err := s.repo.Create(ctx, fromUsername, toUsername, body, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Message created",
		slog.Int64("id", msg.ID),
		slog.String("from", msg.FromUsername),
		slog.String("to", msg.ToUsername),
	)
	return msg, nil
}

// Get returns the message with both parties' profiles joined. Only the
// sender or the recipient may read it; anyone else gets ErrForbidden,
// not ErrNotFound, since the id was valid.
func (s *MessageServiceImpl) Get(ctx context.Context, caller string, id int64) (*types.MessageDetail, error) {
	msg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanViewMessage(caller, msg) {
		return nil, fmt.Errorf("caller is not a party to message %d: %w", id, api.ErrForbidden)
	}
	return s.repo.GetDetail(ctx, id)
}

// MarkRead stamps the read receipt. Only the recipient may; the stamp
// is written at most once, so a repeat call returns the original
// read_at unchanged.
func (s *MessageServiceImpl) MarkRead(ctx context.Context, caller string, id int64) (time.Time, error) {
	msg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	if !access.CanMarkRead(caller, msg) {
		return time.Time{}, fmt.Errorf("only the recipient may mark message %d read: %w", id, api.ErrForbidden)
	}
	return s.repo.MarkRead(ctx, id, time.Now().UTC())
}

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/messagely/messagely/config"
	"github.com/messagely/messagely/internal/api"
	"github.com/messagely/messagely/internal/types"
)

var _ UserService = (*UserServiceImpl)(nil)

// UserService is the credential store: registration, credential
// verification and the user-centric views over profiles and messages.
type UserService interface {
	Register(ctx context.Context, params types.RegisterParams) (*types.PublicUser, error)
	Authenticate(ctx context.Context, username, password string) (bool, error)
	TouchLastLogin(ctx context.Context, username string) error
	GetAll(ctx context.Context) ([]types.PublicUser, error)
	GetByUsername(ctx context.Context, username string) (*types.Profile, error)
	MessagesSent(ctx context.Context, username string) ([]types.MessageSummary, error)
	MessagesReceived(ctx context.Context, username string) ([]types.MessageSummary, error)
}

// MessageLister is the slice of the message store the user-centric
// listings delegate to. Implemented by the message repository.
type MessageLister interface {
	MessagesFromUser(ctx context.Context, username string) ([]types.MessageSummary, error)
	MessagesToUser(ctx context.Context, username string) ([]types.MessageSummary, error)
}

type UserServiceImpl struct {
	logger     *slog.Logger
	repo       UserRepo
	messages   MessageLister
	bcryptCost int
}

// NewUserService creates the credential store service. The bcrypt work
// factor comes from configuration so brute-force cost can be tuned
// without touching this code.
func NewUserService(repo UserRepo, messages MessageLister, cfg config.AuthConfig, logger *slog.Logger) *UserServiceImpl {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserServiceImpl{
		logger:     logger,
		repo:       repo,
		messages:   messages,
		bcryptCost: cost,
	}
}

// Register hashes the password with the configured work factor and
// stores the new user. Both timestamps are set to the registration
// instant. The plaintext is never stored or logged; the returned struct
// carries only the public fields.
func (s *UserServiceImpl) Register(ctx context.Context, params types.RegisterParams) (*types.PublicUser, error) {
	if strings.TrimSpace(params.Username) == "" || params.Password == "" {
		return nil, fmt.Errorf("username and password are required: %w", api.ErrBadRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.repo.Insert(ctx, &types.User{
		Username:     params.Username,
		PasswordHash: string(hash),
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Phone:        params.Phone,
		JoinedAt:     now,
		LastLoginAt:  now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "User registered", slog.String("username", created.Username))
	pub := created.Public()
	return &pub, nil
}

// Authenticate reports whether the supplied password verifies against
// the stored hash. An unknown username returns false, not an error, so
// the response cannot be used to enumerate accounts.
func (s *UserServiceImpl) Authenticate(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, fmt.Errorf("username and password are required: %w", api.ErrBadRequest)
	}

	hash, err := s.repo.GetPasswordHash(ctx, username)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

// TouchLastLogin overwrites last_login_at with the current instant.
func (s *UserServiceImpl) TouchLastLogin(ctx context.Context, username string) error {
	return s.repo.TouchLastLogin(ctx, username, time.Now().UTC())
}

func (s *UserServiceImpl) GetAll(ctx context.Context) ([]types.PublicUser, error) {
	return s.repo.GetAll(ctx)
}

func (s *UserServiceImpl) GetByUsername(ctx context.Context, username string) (*types.Profile, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required: %w", api.ErrBadRequest)
	}
	return s.repo.GetByUsername(ctx, username)
}

// MessagesSent lists messages sent by username with each recipient's
// profile joined. Storage belongs to the message store; this is the
// user-centric view over it.
func (s *UserServiceImpl) MessagesSent(ctx context.Context, username string) ([]types.MessageSummary, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required: %w", api.ErrBadRequest)
	}
	return s.messages.MessagesFromUser(ctx, username)
}

// MessagesReceived lists messages addressed to username with each
// sender's profile joined.
func (s *UserServiceImpl) MessagesReceived(ctx context.Context, username string) ([]types.MessageSummary, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required: %w", api.ErrBadRequest)
	}
	return s.messages.MessagesToUser(ctx, username)
}

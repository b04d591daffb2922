package user

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/messagely/messagely/config"
	"github.com/messagely/messagely/internal/api"
	"github.com/messagely/messagely/internal/types"
)

// MockUserRepo is a mock implementation of the UserRepo interface.
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Insert(ctx context.Context, u *types.User) (*types.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepo) GetPasswordHash(ctx context.Context, username string) (string, error) {
	args := m.Called(ctx, username)
	return args.String(0), args.Error(1)
}

func (m *MockUserRepo) TouchLastLogin(ctx context.Context, username string, at time.Time) error {
	args := m.Called(ctx, username, at)
	return args.Error(0)
}

func (m *MockUserRepo) GetAll(ctx context.Context) ([]types.PublicUser, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.PublicUser), args.Error(1)
}

func (m *MockUserRepo) GetByUsername(ctx context.Context, username string) (*types.Profile, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Profile), args.Error(1)
}

// MockMessageLister is a mock implementation of the MessageLister interface.
type MockMessageLister struct {
	mock.Mock
}

func (m *MockMessageLister) MessagesFromUser(ctx context.Context, username string) ([]types.MessageSummary, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.MessageSummary), args.Error(1)
}

func (m *MockMessageLister) MessagesToUser(ctx context.Context, username string) ([]types.MessageSummary, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.MessageSummary), args.Error(1)
}

func newTestUserService() (*UserServiceImpl, *MockUserRepo, *MockMessageLister) {
	repo := new(MockUserRepo)
	lister := new(MockMessageLister)
	// MinCost keeps the hashing fast in tests.
	cfg := config.AuthConfig{BcryptCost: bcrypt.MinCost}
	return NewUserService(repo, lister, cfg, slog.Default()), repo, lister
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("HashesPasswordAndSetsTimestamps", func(t *testing.T) {
		svc, repo, _ := newTestUserService()

		var inserted *types.User
		repo.On("Insert", mock.Anything, mock.MatchedBy(func(u *types.User) bool {
			inserted = u
			return u.Username == "alice"
		})).Return(&types.User{
			Username:  "alice",
			FirstName: "Alice",
			LastName:  "Doe",
			Phone:     "+14155550000",
		}, nil).Once()

		pub, err := svc.Register(ctx, types.RegisterParams{
			Username:  "alice",
			Password:  "secret123",
			FirstName: "Alice",
			LastName:  "Doe",
			Phone:     "+14155550000",
		})
		require.NoError(t, err)
		assert.Equal(t, "alice", pub.Username)

		// Stored value must be a bcrypt hash verifying the plaintext,
		// never the plaintext itself.
		require.NotNil(t, inserted)
		assert.NotEqual(t, "secret123", inserted.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(inserted.PasswordHash), []byte("secret123")))

		assert.False(t, inserted.JoinedAt.IsZero())
		assert.Equal(t, inserted.JoinedAt, inserted.LastLoginAt)
		repo.AssertExpectations(t)
	})

	t.Run("EmptyUsername", func(t *testing.T) {
		svc, _, _ := newTestUserService()
		_, err := svc.Register(ctx, types.RegisterParams{Username: "", Password: "secret123"})
		assert.ErrorIs(t, err, api.ErrBadRequest)
	})

	t.Run("EmptyPassword", func(t *testing.T) {
		svc, _, _ := newTestUserService()
		_, err := svc.Register(ctx, types.RegisterParams{Username: "alice", Password: ""})
		assert.ErrorIs(t, err, api.ErrBadRequest)
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		svc, repo, _ := newTestUserService()
		repo.On("Insert", mock.Anything, mock.Anything).Return(nil, api.ErrConflict).Once()

		_, err := svc.Register(ctx, types.RegisterParams{Username: "alice", Password: "secret123"})
		assert.ErrorIs(t, err, api.ErrConflict)
		repo.AssertExpectations(t)
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("CorrectPassword", func(t *testing.T) {
		svc, repo, _ := newTestUserService()
		repo.On("GetPasswordHash", mock.Anything, "alice").Return(string(hash), nil).Once()

		ok, err := svc.Authenticate(ctx, "alice", "secret123")
		require.NoError(t, err)
		assert.True(t, ok)
		repo.AssertExpectations(t)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		svc, repo, _ := newTestUserService()
		repo.On("GetPasswordHash", mock.Anything, "alice").Return(string(hash), nil).Once()

		ok, err := svc.Authenticate(ctx, "alice", "wrong-password")
		require.NoError(t, err)
		assert.False(t, ok)
		repo.AssertExpectations(t)
	})

	t.Run("UnknownUserIsNotAnError", func(t *testing.T) {
		svc, repo, _ := newTestUserService()
		repo.On("GetPasswordHash", mock.Anything, "nobody").Return("", api.ErrNotFound).Once()

		ok, err := svc.Authenticate(ctx, "nobody", "secret123")
		require.NoError(t, err)
		assert.False(t, ok)
		repo.AssertExpectations(t)
	})

	t.Run("MissingCredentials", func(t *testing.T) {
		svc, _, _ := newTestUserService()
		_, err := svc.Authenticate(ctx, "", "")
		assert.ErrorIs(t, err, api.ErrBadRequest)
	})
}

func TestMessageListings(t *testing.T) {
	ctx := context.Background()

	t.Run("Sent", func(t *testing.T) {
		svc, _, lister := newTestUserService()
		want := []types.MessageSummary{{ID: 1, Body: "hi"}}
		lister.On("MessagesFromUser", mock.Anything, "alice").Return(want, nil).Once()

		got, err := svc.MessagesSent(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, want, got)
		lister.AssertExpectations(t)
	})

	t.Run("Received", func(t *testing.T) {
		svc, _, lister := newTestUserService()
		want := []types.MessageSummary{{ID: 2, Body: "hello"}}
		lister.On("MessagesToUser", mock.Anything, "alice").Return(want, nil).Once()

		got, err := svc.MessagesReceived(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, want, got)
		lister.AssertExpectations(t)
	})

	t.Run("EmptyUsername", func(t *testing.T) {
		svc, _, _ := newTestUserService()
		_, err := svc.MessagesSent(ctx, "")
		assert.ErrorIs(t, err, api.ErrBadRequest)

		_, err = svc.MessagesReceived(ctx, "")
		assert.ErrorIs(t, err, api.ErrBadRequest)
	})
}

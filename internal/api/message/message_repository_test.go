package message

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/messagely/messagely/internal/api"
)

func newMockMessageRepo(t *testing.T) (*PostgresMessageRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewPostgresMessageRepo(mockPool, slog.Default()), mockPool
}

func TestMessageRepoCreate(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("Success", func(t *testing.T) {
		repo, mockPool := newMockMessageRepo(t)

		mockPool.ExpectQuery("INSERT INTO messages").
			WithArgs("alice", "bob", "hello bob", now).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "from_username", "to_username", "body", "sent_at", "read_at",
			}).AddRow(int64(1), "alice", "bob", "hello bob", now, nil))

		msg, err := repo.Create(ctx, "alice", "bob", "hello bob", now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), msg.ID)
		assert.Nil(t, msg.ReadAt)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("UnknownRecipient", func(t *testing.T) {
		repo, mockPool := newMockMessageRepo(t)

		mockPool.ExpectQuery("INSERT INTO messages").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "messages_to_username_fkey"})

		_, err := repo.Create(ctx, "alice", "ghost", "boo", now)
		assert.ErrorIs(t, err, api.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestMessageRepoGetByID(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("Found", func(t *testing.T) {
		repo, mockPool := newMockMessageRepo(t)

		mockPool.ExpectQuery("SELECT id, from_username, to_username, body, sent_at, read_at FROM messages").
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "from_username", "to_username", "body", "sent_at", "read_at",
			}).AddRow(int64(1), "alice", "bob", "hello bob", now, nil))

		msg, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "alice", msg.FromUsername)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mockPool := newMockMessageRepo(t)

		mockPool.ExpectQuery("SELECT id, from_username, to_username, body, sent_at, read_at FROM messages").
			WithArgs(int64(99)).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(ctx, 99)
		assert.ErrorIs(t, err, api.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestMessageRepoGetDetail(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	repo, mockPool := newMockMessageRepo(t)

	mockPool.ExpectQuery("JOIN users f ON").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "body", "sent_at", "read_at",
			"f_username", "f_first_name", "f_last_name", "f_phone",
			"t_username", "t_first_name", "t_last_name", "t_phone",
		}).AddRow(
			int64(1), "hello bob", now, nil,
			"alice", "Alice", "Doe", "+14155550000",
			"bob", "Bob", "Builder", "+14155550001",
		))

	d, err := repo.GetDetail(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", d.FromUser.Username)
	assert.Equal(t, "bob", d.ToUser.Username)
	assert.Nil(t, d.ReadAt)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestMessageRepoMarkRead(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("FirstRead", func(t *testing.T) {
		repo, mockPool := newMockMessageRepo(t)

		mockPool.ExpectQuery("UPDATE messages SET read_at").
			WithArgs(now, int64(1)).
			WillReturnRows(pgxmock.NewRows([]string{"read_at"}).AddRow(&now))

		readAt, err := repo.MarkRead(ctx, 1, now)
		require.NoError(t, err)
		assert.Equal(t, now, readAt)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("AlreadyReadReturnsOriginalStamp", func(t *testing.T) {
		repo, mockPool := newMockMessageRepo(t)
		original := now.Add(-time.Hour)

		// The guarded update matches no rows, so the original stamp is
		// read back instead.
		mockPool.ExpectQuery("UPDATE messages SET read_at").
			WithArgs(now, int64(1)).
			WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectQuery("SELECT read_at FROM messages").
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows([]string{"read_at"}).AddRow(&original))

		readAt, err := repo.MarkRead(ctx, 1, now)
		require.NoError(t, err)
		assert.Equal(t, original, readAt)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mockPool := newMockMessageRepo(t)

		mockPool.ExpectQuery("UPDATE messages SET read_at").
			WithArgs(now, int64(99)).
			WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectQuery("SELECT read_at FROM messages").
			WithArgs(int64(99)).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.MarkRead(ctx, 99, now)
		assert.ErrorIs(t, err, api.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestMessageRepoListings(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	summaryRows := func() *pgxmock.Rows {
		return pgxmock.NewRows([]string{
			"id", "body", "sent_at", "read_at",
			"username", "first_name", "last_name", "phone",
		}).
			AddRow(int64(1), "hello", now, nil, "bob", "Bob", "Builder", "+14155550001").
			AddRow(int64(3), "again", now, &now, "carol", "Carol", "Smith", "+14155550002")
	}

	t.Run("FromUser", func(t *testing.T) {
		repo, mockPool := newMockMessageRepo(t)

		mockPool.ExpectQuery("WHERE m.from_username").
			WithArgs("alice").
			WillReturnRows(summaryRows())

		got, err := repo.MessagesFromUser(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "bob", got[0].Counterpart.Username)
		assert.Nil(t, got[0].ReadAt)
		assert.NotNil(t, got[1].ReadAt)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("ToUser", func(t *testing.T) {
		repo, mockPool := newMockMessageRepo(t)

		mockPool.ExpectQuery("WHERE m.to_username").
			WithArgs("alice").
			WillReturnRows(summaryRows())

		got, err := repo.MessagesToUser(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Empty", func(t *testing.T) {
		repo, mockPool := newMockMessageRepo(t)

		mockPool.ExpectQuery("WHERE m.from_username").
			WithArgs("ghost").
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "body", "sent_at", "read_at",
				"username", "first_name", "last_name", "phone",
			}))

		got, err := repo.MessagesFromUser(ctx, "ghost")
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

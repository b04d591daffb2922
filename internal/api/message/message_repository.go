package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/messagely/messagely/internal/api"
	"github.com/messagely/messagely/internal/types"
)

var _ MessageRepo = (*PostgresMessageRepo)(nil)

// MessageRepo defines the contract for message persistence.
type MessageRepo interface {
	// Create stores a new message with read_at NULL. Returns
	// api.ErrNotFound when to_username references no existing user.
	Create(ctx context.Context, fromUsername, toUsername, body string, sentAt time.Time) (*types.Message, error)

	// GetByID returns the raw message row, without joined profiles.
	// Returns api.ErrNotFound if id does not exist.
	GetByID(ctx context.Context, id int64) (*types.Message, error)

	// GetDetail returns the message with both parties' profiles joined.
	GetDetail(ctx context.Context, id int64) (*types.MessageDetail, error)

	// MarkRead stamps read_at if it is still NULL and returns the
	// effective read_at. Already-read messages keep their original
	// timestamp (the stamp is written at most once).
	MarkRead(ctx context.Context, id int64, at time.Time) (time.Time, error)

	// MessagesFromUser / MessagesToUser back the user-centric listings,
	// joining the counterpart's profile.
	MessagesFromUser(ctx context.Context, username string) ([]types.MessageSummary, error)
	MessagesToUser(ctx context.Context, username string) ([]types.MessageSummary, error)
}

type PostgresMessageRepo struct {
	logger *slog.Logger
	db     api.DB
}

func NewPostgresMessageRepo(db api.DB, logger *slog.Logger) *PostgresMessageRepo {
	return &PostgresMessageRepo{
		logger: logger,
		db:     db,
	}
}

func (r *PostgresMessageRepo) Create(ctx context.Context, fromUsername, toUsername, body string, sentAt time.Time) (*types.Message, error) {
	ctx, span := otel.Tracer("MessageRepo").Start(ctx, "Create", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "messages"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Create"))

	query := `
        INSERT INTO messages (from_username, to_username, body, sent_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, from_username, to_username, body, sent_at, read_at`

	var m types.Message
	err := r.db.QueryRow(ctx, query, fromUsername, toUsername, body, sentAt).Scan(
		&m.ID, &m.FromUsername, &m.ToUsername, &m.Body, &m.SentAt, &m.ReadAt,
	)
	if err != nil {
		if api.IsForeignKeyViolation(err) {
			l.WarnContext(ctx, "Message addressed to nonexistent user")
			span.SetStatus(codes.Error, "Recipient not found")
			return nil, fmt.Errorf("recipient %q does not exist: %w", toUsername, api.ErrNotFound)
		}
		l.ErrorContext(ctx, "Failed to insert message", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("database error creating message: %w", err)
	}

	span.SetAttributes(attribute.Int64("db.message.id", m.ID))
	span.SetStatus(codes.Ok, "Message created")
	return &m, nil
}

func (r *PostgresMessageRepo) GetByID(ctx context.Context, id int64) (*types.Message, error) {
	var m types.Message
	err := r.db.QueryRow(ctx,
		"SELECT id, from_username, to_username, body, sent_at, read_at FROM messages WHERE id = $1",
		id).Scan(&m.ID, &m.FromUsername, &m.ToUsername, &m.Body, &m.SentAt, &m.ReadAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("message %d not found: %w", id, api.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching message: %w", err)
	}
	return &m, nil
}

func (r *PostgresMessageRepo) GetDetail(ctx context.Context, id int64) (*types.MessageDetail, error) {
	ctx, span := otel.Tracer("MessageRepo").Start(ctx, "GetDetail", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "messages, users"),
	))
	defer span.End()

	query := `
        SELECT m.id, m.body, m.sent_at, m.read_at,
               f.username, f.first_name, f.last_name, f.phone,
               t.username, t.first_name, t.last_name, t.phone
        FROM messages m
        JOIN users f ON m.from_username = f.username
        JOIN users t ON m.to_username = t.username
        WHERE m.id = $1`

	var d types.MessageDetail
	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.Body, &d.SentAt, &d.ReadAt,
		&d.FromUser.Username, &d.FromUser.FirstName, &d.FromUser.LastName, &d.FromUser.Phone,
		&d.ToUser.Username, &d.ToUser.FirstName, &d.ToUser.LastName, &d.ToUser.Phone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Message not found")
			return nil, fmt.Errorf("message %d not found: %w", id, api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching message: %w", err)
	}

	span.SetStatus(codes.Ok, "Message fetched")
	return &d, nil
}

func (r *PostgresMessageRepo) MarkRead(ctx context.Context, id int64, at time.Time) (time.Time, error) {
	ctx, span := otel.Tracer("MessageRepo").Start(ctx, "MarkRead", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "messages"),
		attribute.Int64("db.message.id", id),
	))
	defer span.End()

	// read_at IS NULL makes the stamp write-once; a repeat call falls
	// through to the select below and returns the original timestamp.
	var readAt *time.Time
	err := r.db.QueryRow(ctx,
		"UPDATE messages SET read_at = $1 WHERE id = $2 AND read_at IS NULL RETURNING read_at",
		at, id).Scan(&readAt)
	if err == nil && readAt != nil {
		span.SetStatus(codes.Ok, "Message marked read")
		return *readAt, nil
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return time.Time{}, fmt.Errorf("database error marking message read: %w", err)
	}

	err = r.db.QueryRow(ctx,
		"SELECT read_at FROM messages WHERE id = $1",
		id).Scan(&readAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Message not found")
			return time.Time{}, fmt.Errorf("message %d not found: %w", id, api.ErrNotFound)
		}
		span.RecordError(err)
		return time.Time{}, fmt.Errorf("database error fetching read receipt: %w", err)
	}
	if readAt == nil {
		// The guarded update above stamps read_at whenever it is NULL,
		// so a NULL here means the row changed under us.
		return time.Time{}, fmt.Errorf("message %d read receipt missing after update", id)
	}

	span.SetStatus(codes.Ok, "Message already read")
	return *readAt, nil
}

func (r *PostgresMessageRepo) MessagesFromUser(ctx context.Context, username string) ([]types.MessageSummary, error) {
	query := `
        SELECT m.id, m.body, m.sent_at, m.read_at,
               t.username, t.first_name, t.last_name, t.phone
        FROM messages m
        JOIN users t ON m.to_username = t.username
        WHERE m.from_username = $1
        ORDER BY m.id`

	return r.listSummaries(ctx, query, username)
}

func (r *PostgresMessageRepo) MessagesToUser(ctx context.Context, username string) ([]types.MessageSummary, error) {
	query := `
        SELECT m.id, m.body, m.sent_at, m.read_at,
               f.username, f.first_name, f.last_name, f.phone
        FROM messages m
        JOIN users f ON m.from_username = f.username
        WHERE m.to_username = $1
        ORDER BY m.id`

	return r.listSummaries(ctx, query, username)
}

func (r *PostgresMessageRepo) listSummaries(ctx context.Context, query, username string) ([]types.MessageSummary, error) {
	rows, err := r.db.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("database error fetching messages: %w", err)
	}
	defer rows.Close()

	var summaries []types.MessageSummary
	for rows.Next() {
		var s types.MessageSummary
		err := rows.Scan(
			&s.ID, &s.Body, &s.SentAt, &s.ReadAt,
			&s.Counterpart.Username, &s.Counterpart.FirstName, &s.Counterpart.LastName, &s.Counterpart.Phone,
		)
		if err != nil {
			return nil, fmt.Errorf("database error scanning message: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database error reading messages: %w", err)
	}
	return summaries, nil
}

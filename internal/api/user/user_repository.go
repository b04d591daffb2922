package user

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

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo defines the contract for user persistence. Only
// GetPasswordHash ever reads the password column; every other query
// selects the public columns explicitly, so a hash cannot leak through a
// returned struct.
type UserRepo interface {
	// Insert stores a new user record. Returns api.ErrConflict when the
	// username is already taken.
	Insert(ctx context.Context, u *types.User) (*types.User, error)

	// GetPasswordHash returns the stored hash for username.
	// Returns api.ErrNotFound if no such user exists.
	GetPasswordHash(ctx context.Context, username string) (string, error)

	// TouchLastLogin overwrites last_login_at. Idempotent under retry.
	TouchLastLogin(ctx context.Context, username string, at time.Time) error

	// GetAll lists every user's public profile.
	GetAll(ctx context.Context) ([]types.PublicUser, error)

	// GetByUsername returns the full profile including timestamps.
	// Returns api.ErrNotFound if no such user exists.
	GetByUsername(ctx context.Context, username string) (*types.Profile, error)
}

type PostgresUserRepo struct {
	logger *slog.Logger
	db     api.DB
}

func NewPostgresUserRepo(db api.DB, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		db:     db,
	}
}

func (r *PostgresUserRepo) Insert(ctx context.Context, u *types.User) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "Insert", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Insert"), slog.String("username", u.Username))

	query := `
        INSERT INTO users (username, password, first_name, last_name, phone, join_at, last_login_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING username, first_name, last_name, phone, join_at, last_login_at`

	var created types.User
	err := r.db.QueryRow(ctx, query,
		u.Username, u.PasswordHash, u.FirstName, u.LastName, u.Phone, u.JoinedAt, u.LastLoginAt,
	).Scan(
		&created.Username, &created.FirstName, &created.LastName,
		&created.Phone, &created.JoinedAt, &created.LastLoginAt,
	)
	if err != nil {
		if api.IsUniqueViolation(err) {
			l.WarnContext(ctx, "Attempted to register an existing username")
			span.SetStatus(codes.Error, "Duplicate username")
			return nil, fmt.Errorf("username %q already exists: %w", u.Username, api.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("database error creating user: %w", err)
	}

	l.InfoContext(ctx, "User created")
	span.SetStatus(codes.Ok, "User created")
	return &created, nil
}

func (r *PostgresUserRepo) GetPasswordHash(ctx context.Context, username string) (string, error) {
	var hash string
	err := r.db.QueryRow(ctx,
		"SELECT password FROM users WHERE username = $1",
		username).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("user not found: %w", api.ErrNotFound)
		}
		return "", fmt.Errorf("database error fetching credentials: %w", err)
	}
	return hash, nil
}

func (r *PostgresUserRepo) TouchLastLogin(ctx context.Context, username string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE users SET last_login_at = $1 WHERE username = $2",
		at, username)
	if err != nil {
		return fmt.Errorf("database error updating last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %w", api.ErrNotFound)
	}
	return nil
}

func (r *PostgresUserRepo) GetAll(ctx context.Context) ([]types.PublicUser, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetAll", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	query := `
        SELECT username, first_name, last_name, phone
        FROM users
        ORDER BY username`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching users: %w", err)
	}
	defer rows.Close()

	var users []types.PublicUser
	for rows.Next() {
		var u types.PublicUser
		if err := rows.Scan(&u.Username, &u.FirstName, &u.LastName, &u.Phone); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading users: %w", err)
	}

	span.SetStatus(codes.Ok, "Users fetched")
	return users, nil
}

func (r *PostgresUserRepo) GetByUsername(ctx context.Context, username string) (*types.Profile, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetByUsername", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	query := `
        SELECT username, first_name, last_name, phone, join_at, last_login_at
        FROM users
        WHERE username = $1`

	var p types.Profile
	err := r.db.QueryRow(ctx, query, username).Scan(
		&p.Username, &p.FirstName, &p.LastName, &p.Phone, &p.JoinedAt, &p.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, fmt.Errorf("user %q not found: %w", username, api.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}

	span.SetStatus(codes.Ok, "User fetched")
	return &p, nil
}

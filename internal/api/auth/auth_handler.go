package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/messagely/messagely/app/observability/metrics"
	"github.com/messagely/messagely/internal/api"
	"github.com/messagely/messagely/internal/types"
)

// CredentialService is the slice of the credential store the auth
// boundary needs. Implemented by the user package; wired in main.
type CredentialService interface {
	Register(ctx context.Context, params types.RegisterParams) (*types.PublicUser, error)
	Authenticate(ctx context.Context, username, password string) (bool, error)
	TouchLastLogin(ctx context.Context, username string) error
}

type AuthHandler struct {
	creds  CredentialService
	tokens *TokenService
	logger *slog.Logger
}

func NewAuthHandler(creds CredentialService, tokens *TokenService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		creds:  creds,
		tokens: tokens,
		logger: logger,
	}
}

// Login authenticates the supplied credentials, updates the user's
// last-login timestamp and returns a session token. Unknown usernames
// and wrong passwords produce the same response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := h.creds.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, api.ErrBadRequest) {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Username and password are required")
			return
		}
		l.ErrorContext(ctx, "Credential check failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Unable to log in at this time")
		return
	}
	if !ok {
		metrics.Get().LoginAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failure")))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid username/password")
		return
	}

	if err := h.creds.TouchLastLogin(ctx, req.Username); err != nil {
		l.ErrorContext(ctx, "Failed to update last login", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Unable to log in at this time")
		return
	}

	token, err := h.tokens.Issue(req.Username)
	if err != nil {
		l.ErrorContext(ctx, "Failed to issue token", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Unable to log in at this time")
		return
	}

	metrics.Get().LoginAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "success")))
	api.WriteJSONResponse(w, r, http.StatusOK, LoginResponse{
		Message: fmt.Sprintf("Welcome back, %s", req.Username),
		Token:   token,
	})
}

// Register creates a new user and returns its public fields.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.creds.Register(ctx, types.RegisterParams{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, api.ErrBadRequest):
			api.ErrorResponse(w, r, http.StatusBadRequest, "A valid username and password is required")
		case errors.Is(err, api.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, "Username is already taken")
		default:
			l.ErrorContext(ctx, "Registration failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Unable to register at this time")
		}
		return
	}

	metrics.Get().RegisterRequestsTotal.Add(ctx, 1)
	api.WriteJSONResponse(w, r, http.StatusCreated, RegisterResponse{User: *created})
}

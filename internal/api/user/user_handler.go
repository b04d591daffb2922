package user

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/messagely/messagely/internal/api"
	"github.com/messagely/messagely/internal/api/access"
	"github.com/messagely/messagely/internal/api/auth"
	"github.com/messagely/messagely/internal/types"
)

type UserHandler struct {
	userService UserService
	logger      *slog.Logger
}

func NewUserHandler(userService UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// ListUsers returns every user's public profile. Any authenticated
// caller may list the directory.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListUsers"))

	caller, ok := auth.GetUsernameFromContext(ctx)
	if !ok || !access.CanListUsers(caller) {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	users, err := h.userService.GetAll(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list users", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}
	if users == nil {
		users = []types.PublicUser{}
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"users": users})
}

// GetUser returns the detailed profile. Only the user themselves may
// view it.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetUser"))

	caller, ok := auth.GetUsernameFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	username := chi.URLParam(r, "username")
	if !access.CanViewProfile(caller, username) {
		api.ErrorResponse(w, r, http.StatusForbidden, "You do not have access to this profile")
		return
	}

	profile, err := h.userService.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
			return
		}
		l.ErrorContext(ctx, "Failed to get user", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"user": profile})
}

// MessagesTo lists messages addressed to the user, sender profiles
// joined. Only the user themselves may read their inbox.
func (h *UserHandler) MessagesTo(w http.ResponseWriter, r *http.Request) {
	h.listMessages(w, r, "MessagesTo", h.userService.MessagesReceived)
}

// MessagesFrom lists messages the user sent, recipient profiles joined.
func (h *UserHandler) MessagesFrom(w http.ResponseWriter, r *http.Request) {
	h.listMessages(w, r, "MessagesFrom", h.userService.MessagesSent)
}

func (h *UserHandler) listMessages(
	w http.ResponseWriter,
	r *http.Request,
	name string,
	list func(ctx context.Context, username string) ([]types.MessageSummary, error),
) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", name))

	caller, ok := auth.GetUsernameFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	username := chi.URLParam(r, "username")
	if !access.CanViewProfile(caller, username) {
		api.ErrorResponse(w, r, http.StatusForbidden, "You do not have access to these messages")
		return
	}

	messages, err := list(ctx, username)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list messages", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to retrieve messages")
		return
	}
	if messages == nil {
		messages = []types.MessageSummary{}
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"messages": messages})
}

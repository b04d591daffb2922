package message

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/messagely/messagely/app/observability/metrics"
	"github.com/messagely/messagely/internal/api"
	"github.com/messagely/messagely/internal/api/auth"
)

type MessageHandler struct {
	messageService MessageService
	logger         *slog.Logger
}

func NewMessageHandler(messageService MessageService, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		logger:         logger,
	}
}

// Get returns the message detail for its sender or recipient.
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Get"))

	caller, ok := auth.GetUsernameFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid message id")
		return
	}

	detail, err := h.messageService.Get(ctx, caller, id)
	if err != nil {
		switch {
		case errors.Is(err, api.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Message not found")
		case errors.Is(err, api.ErrForbidden):
			api.ErrorResponse(w, r, http.StatusForbidden, "You do not have permission to access this message")
		default:
			l.ErrorContext(ctx, "Failed to get message", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to retrieve message")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{"message": detail})
}

// Create sends a message. The sender is the verified caller.
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Create"))

	caller, ok := auth.GetUsernameFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "You must be logged in to send a message")
		return
	}

	var req CreateRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.messageService.Create(ctx, caller, req.ToUser, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, api.ErrBadRequest):
			api.ErrorResponse(w, r, http.StatusBadRequest, "Recipient and body are required")
		case errors.Is(err, api.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Recipient does not exist")
		default:
			l.ErrorContext(ctx, "Failed to create message", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to send message")
		}
		return
	}

	metrics.Get().MessagesSentTotal.Add(ctx, 1)
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]interface{}{"message": msg})
}

// MarkRead stamps the read receipt; recipient only.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "MarkRead"))

	caller, ok := auth.GetUsernameFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid message id")
		return
	}

	readAt, err := h.messageService.MarkRead(ctx, caller, id)
	if err != nil {
		switch {
		case errors.Is(err, api.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Message not found")
		case errors.Is(err, api.ErrForbidden):
			api.ErrorResponse(w, r, http.StatusForbidden, "You do not have permission to mark this message as read")
		default:
			l.ErrorContext(ctx, "Failed to mark message read", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to mark message as read")
		}
		return
	}

	metrics.Get().MessagesReadTotal.Add(ctx, 1)
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"message": ReadReceipt{ID: id, ReadAt: readAt},
	})
}

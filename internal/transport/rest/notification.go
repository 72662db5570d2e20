package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
)

type notificationService interface {
	ListRecent(ctx context.Context, limit int) ([]domain.Notification, error)
	ListUnread(ctx context.Context, limit int) ([]domain.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	MarkAllRead(ctx context.Context) (int, error)
}

// NotificationHandler serves the caller's own notifications.
type NotificationHandler struct {
	svc notificationService
	log *slog.Logger
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(svc notificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, log: logger.With("handler", "notification")}
}

// List handles GET /notifications?limit=N.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	items, err := h.svc.ListRecent(r.Context(), limit)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

// ListUnread handles GET /notifications/unread?limit=N.
func (h *NotificationHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	items, err := h.svc.ListUnread(r.Context(), limit)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

// UnreadCount handles GET /notifications/unread/count.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.UnreadCount(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// MarkRead handles PATCH /notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	n, err := h.svc.MarkRead(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// MarkAllRead handles PATCH /notifications/read.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.svc.MarkAllRead(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

func nonNil(items []domain.Notification) []domain.Notification {
	if items == nil {
		return []domain.Notification{}
	}
	return items
}

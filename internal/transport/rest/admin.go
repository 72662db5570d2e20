package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
	"github.com/heartmarshall/learnhub-backend/pkg/ctxutil"
)

type notificationSender interface {
	SendNotification(ctx context.Context, targetUserID uuid.UUID, typ domain.NotificationType, payload domain.Payload) (*domain.Notification, error)
}

type presenceReader interface {
	Get(userID uuid.UUID) []string
}

type userReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// AdminHandler serves operator endpoints. Routes are expected to sit
// behind middleware.AdminOnly.
type AdminHandler struct {
	sender   notificationSender
	presence presenceReader
	users    userReader
	log      *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(sender notificationSender, presence presenceReader, users userReader, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		sender:   sender,
		presence: presence,
		users:    users,
		log:      logger.With("handler", "admin"),
	}
}

type sendRequest struct {
	UserID  string         `json:"userId"`
	Type    string         `json:"type"`
	Payload domain.Payload `json:"payload"`
}

type presenceResponse struct {
	UserID      string   `json:"userId"`
	Role        string   `json:"role"`
	Connections []string `json:"connections"`
}

// Send handles POST /admin/notifications and runs the regular fan-out for
// the given recipient.
func (h *AdminHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "userId must be a UUID")
		return
	}

	n, err := h.sender.SendNotification(r.Context(), userID, domain.NotificationType(req.Type), req.Payload)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	callerID, _ := ctxutil.UserIDFromCtx(r.Context())
	h.log.InfoContext(r.Context(), "manual notification sent",
		slog.String("notification_id", n.ID.String()),
		slog.String("type", n.Type.String()),
		slog.String("sent_by", callerID.String()),
		slog.String("sent_by_role", ctxutil.RoleFromCtx(r.Context())),
	)
	writeJSON(w, http.StatusCreated, n)
}

// Presence handles GET /admin/presence/{userID}. Unknown users are 404.
func (h *AdminHandler) Presence(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userID")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, presenceResponse{
		UserID:      u.ID.String(),
		Role:        u.Role.String(),
		Connections: h.presence.Get(u.ID),
	})
}

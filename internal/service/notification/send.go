package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
	"github.com/heartmarshall/learnhub-backend/internal/event"
)

// SendNotification stores a notification for targetUserID, pushes it, then
// stores and pushes one broadcast copy per administrator.
//
// Broadcast keys supplied by the caller are dropped from the primary record.
// Only the primary write can fail the call. Push failures, the admin lookup
// and every per-admin copy are logged and skipped; the primary record is
// returned regardless.
func (s *Service) SendNotification(ctx context.Context, targetUserID uuid.UUID, typ domain.NotificationType, payload domain.Payload) (*domain.Notification, error) {
	if err := validateSend(targetUserID, typ); err != nil {
		return nil, err
	}

	payload = payload.WithoutBroadcast()

	primary, err := s.store.Create(ctx, targetUserID, typ, payload)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	s.push(ctx, *primary)

	adminIDs, err := s.admins.ListAdminIDs(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "resolve admins for broadcast",
			slog.String("notification_id", primary.ID.String()),
			slog.String("error", err.Error()),
		)
		return primary, nil
	}

	for _, adminID := range adminIDs {
		copyPayload := payload.WithBroadcast(targetUserID)

		broadcast, err := s.store.Create(ctx, adminID, typ, copyPayload)
		if err != nil {
			s.log.ErrorContext(ctx, "create broadcast copy",
				slog.String("notification_id", primary.ID.String()),
				slog.String("admin_id", adminID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.push(ctx, *broadcast)
	}

	return primary, nil
}

// HandleEvent turns a bus event into a notification for payload.userId.
func (s *Service) HandleEvent(ctx context.Context, ev domain.Event) error {
	raw, ok := ev.Payload.String(domain.PayloadKeyUserID)
	if !ok {
		return domain.NewValidationError(domain.PayloadKeyUserID, "required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return domain.NewValidationError(domain.PayloadKeyUserID, "must be a UUID")
	}

	if _, err := s.SendNotification(ctx, userID, ev.Name, ev.Payload); err != nil {
		return fmt.Errorf("handle %s: %w", ev.Name, err)
	}
	return nil
}

// Register subscribes HandleEvent to every notification type on bus.
func (s *Service) Register(bus *event.Bus) {
	for _, typ := range domain.NotificationTypes() {
		bus.Subscribe(typ, s.HandleEvent)
	}
}

func (s *Service) push(ctx context.Context, n domain.Notification) {
	if err := s.pusher.Push(ctx, n.UserID, n); err != nil {
		s.log.WarnContext(ctx, "push notification",
			slog.String("notification_id", n.ID.String()),
			slog.String("user_id", n.UserID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func validateSend(targetUserID uuid.UUID, typ domain.NotificationType) error {
	var errs []domain.FieldError
	if targetUserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if !typ.IsValid() {
		errs = append(errs, domain.FieldError{Field: "type", Message: "unknown notification type"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

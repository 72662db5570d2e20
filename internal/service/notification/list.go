package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
	"github.com/heartmarshall/learnhub-backend/pkg/ctxutil"
)

// ListRecent returns the caller's newest notifications. A zero limit uses
// the default; larger limits are capped.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]domain.Notification, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	limit, err := s.normalizeLimit(limit)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// ListUnread returns the caller's newest unread notifications.
func (s *Service) ListUnread(ctx context.Context, limit int) ([]domain.Notification, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	limit, err := s.normalizeLimit(limit)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListUnread(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list unread notifications: %w", err)
	}
	return items, nil
}

// UnreadCount returns how many of the caller's notifications are unread.
func (s *Service) UnreadCount(ctx context.Context) (int, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return 0, domain.ErrUnauthorized
	}

	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one of the caller's notifications as read. Ids that do not
// exist or belong to someone else yield domain.ErrNotFound.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if id == uuid.Nil {
		return nil, domain.NewValidationError("id", "required")
	}

	n, err := s.store.MarkRead(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return n, nil
}

// MarkAllRead marks every unread notification of the caller as read.
func (s *Service) MarkAllRead(ctx context.Context) (int, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return 0, domain.ErrUnauthorized
	}

	n, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return n, nil
}

func (s *Service) normalizeLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, domain.NewValidationError("limit", "must be non-negative")
	case limit == 0:
		return s.cfg.DefaultLimit, nil
	case limit > s.cfg.MaxLimit:
		return s.cfg.MaxLimit, nil
	}
	return limit, nil
}

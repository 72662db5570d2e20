package notification

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type notificationRepo interface {
	Create(ctx context.Context, userID uuid.UUID, typ domain.NotificationType, payload domain.Payload) (*domain.Notification, error)
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error)
	ListUnread(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
}

type adminLister interface {
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

type pusher interface {
	Push(ctx context.Context, userID uuid.UUID, n domain.Notification) error
}

// Config bounds list sizes.
type Config struct {
	DefaultLimit int
	MaxLimit     int
}

// Service creates notification records, copies them to administrators and
// pushes them to live connections.
type Service struct {
	store  notificationRepo
	admins adminLister
	pusher pusher
	cfg    Config
	log    *slog.Logger
}

// NewService creates a new notification service.
func NewService(
	log *slog.Logger,
	store notificationRepo,
	admins adminLister,
	pusher pusher,
	cfg Config,
) *Service {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxLimit
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}

	return &Service{
		store:  store,
		admins: admins,
		pusher: pusher,
		cfg:    cfg,
		log:    log.With("service", "notification"),
	}
}

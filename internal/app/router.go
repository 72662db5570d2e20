package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/heartmarshall/learnhub-backend/internal/auth"
	"github.com/heartmarshall/learnhub-backend/internal/config"
	"github.com/heartmarshall/learnhub-backend/internal/transport/middleware"
	"github.com/heartmarshall/learnhub-backend/internal/transport/rest"
)

type identityResolver interface {
	Resolve(ctx context.Context, token string) (auth.Identity, error)
}

// Handlers groups the HTTP entry points mounted by NewRouter.
type Handlers struct {
	Health        *rest.HealthHandler
	Notifications *rest.NotificationHandler
	Admin         *rest.AdminHandler
	WS            http.Handler
}

// RouterConfig holds the transport settings NewRouter needs.
type RouterConfig struct {
	CORS config.CORSConfig
	// WSLimit guards the upgrade endpoint; nil disables it.
	WSLimit middleware.Middleware
}

// NewRouter mounts every route behind the shared middleware chain
// (Recovery, RequestID, Logger). API routes additionally pass CORS and Auth;
// /ws authenticates on its own so rejected sockets can be closed in-band.
func NewRouter(logger *slog.Logger, resolver identityResolver, h Handlers, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /live", h.Health.Live)
	mux.HandleFunc("GET /ready", h.Health.Ready)
	mux.HandleFunc("GET /health", h.Health.Health)

	api := middleware.Chain(
		middleware.CORS(cfg.CORS),
		middleware.Auth(resolver),
	)
	admin := func(fn http.HandlerFunc) http.Handler {
		return api(middleware.AdminOnly(fn))
	}

	mux.Handle("GET /notifications", api(http.HandlerFunc(h.Notifications.List)))
	mux.Handle("GET /notifications/unread", api(http.HandlerFunc(h.Notifications.ListUnread)))
	mux.Handle("GET /notifications/unread/count", api(http.HandlerFunc(h.Notifications.UnreadCount)))
	mux.Handle("PATCH /notifications/read", api(http.HandlerFunc(h.Notifications.MarkAllRead)))
	mux.Handle("PATCH /notifications/{id}/read", api(http.HandlerFunc(h.Notifications.MarkRead)))
	mux.Handle("OPTIONS /", api(http.NotFoundHandler()))

	mux.Handle("POST /admin/notifications", admin(h.Admin.Send))
	mux.Handle("GET /admin/presence/{userID}", admin(h.Admin.Presence))

	mux.Handle("GET /ws", middleware.Chain(cfg.WSLimit)(h.WS))

	return middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
	)(mux)
}

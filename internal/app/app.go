package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/learnhub-backend/internal/adapter/postgres"
	"github.com/heartmarshall/learnhub-backend/internal/adapter/postgres/changefeed"
	notificationrepo "github.com/heartmarshall/learnhub-backend/internal/adapter/postgres/notification"
	userrepo "github.com/heartmarshall/learnhub-backend/internal/adapter/postgres/user"
	"github.com/heartmarshall/learnhub-backend/internal/adapter/redis/admincache"
	"github.com/heartmarshall/learnhub-backend/internal/auth"
	"github.com/heartmarshall/learnhub-backend/internal/config"
	"github.com/heartmarshall/learnhub-backend/internal/delivery"
	"github.com/heartmarshall/learnhub-backend/internal/event"
	"github.com/heartmarshall/learnhub-backend/internal/presence"
	"github.com/heartmarshall/learnhub-backend/internal/service/notification"
	"github.com/heartmarshall/learnhub-backend/internal/transport/middleware"
	"github.com/heartmarshall/learnhub-backend/internal/transport/rest"
	"github.com/heartmarshall/learnhub-backend/internal/transport/ws"
	"github.com/heartmarshall/learnhub-backend/internal/watcher"
)

type adminLister interface {
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Run is the application entry point. It loads configuration, wires the
// notification pipeline and serves HTTP until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database, len(watcher.DefaultCollections()))
	if err != nil {
		return err
	}
	defer pool.Close()

	users := userrepo.New(pool)
	bus := event.NewBus(logger)

	var admins adminLister = users
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		cache := admincache.New(users, client, cfg.Redis.AdminCacheTTL, logger)
		// Invalidation must run before the fan-out listener sees the event.
		cache.Register(bus)
		admins = cache
	}

	registry := presence.NewRegistry()
	gateway := delivery.NewGateway(logger, registry)

	svc := notification.NewService(logger, notificationrepo.New(pool), admins, gateway, notification.Config{
		DefaultLimit: cfg.Notification.DefaultLimit,
		MaxLimit:     cfg.Notification.MaxLimit,
	})
	svc.Register(bus)

	feed := changefeed.New(pool, logger, changefeed.Options{
		PollInterval: cfg.Watcher.PollInterval,
		BatchSize:    cfg.Watcher.BatchSize,
	})
	watchers := watcher.NewGroup(
		watcher.DefaultRules(users, cfg.Watcher.FanOutPageSize),
		feed, bus, logger,
		watcher.Options{
			OperationTimeout: cfg.Watcher.OperationTimeout,
			BackoffInitial:   cfg.Watcher.BackoffInitial,
			BackoffMax:       cfg.Watcher.BackoffMax,
		},
	)

	jwtMgr := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)

	wsHandler := ws.NewHandler(jwtMgr, gateway, ws.Config{
		SendBuffer:     cfg.WebSocket.SendBuffer,
		WriteTimeout:   cfg.WebSocket.WriteTimeout,
		PingInterval:   cfg.WebSocket.PingInterval,
		OriginPatterns: originPatterns(cfg.CORS.AllowedOrigins),
	}, logger)

	limiter := middleware.NewConnLimiter(time.Minute)
	defer limiter.Stop()

	router := NewRouter(logger, jwtMgr, Handlers{
		Health:        rest.NewHealthHandler(pool, BuildVersion()).WithCheck("watchers", watchers.Subscribed),
		Notifications: rest.NewNotificationHandler(svc, logger),
		Admin:         rest.NewAdminHandler(svc, registry, users, logger),
		WS:            wsHandler,
	}, RouterConfig{
		CORS:    cfg.CORS,
		WSLimit: limiter.Limit(cfg.WebSocket.ConnectsPerMinute),
	})

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("watchers started", slog.Any("collections", watchers.Collections()))
		return watchers.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		wsHandler.Shutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}

// originPatterns turns the CORS origin list into WebSocket origin patterns.
// Accept compares patterns against the Origin host, so schemes are dropped.
func originPatterns(allowed string) []string {
	var out []string
	for _, o := range strings.Split(allowed, ",") {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		out = append(out, o)
	}
	return out
}

// Package ws upgrades authenticated clients to WebSocket connections and
// attaches them to the delivery gateway.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/heartmarshall/learnhub-backend/internal/auth"
	"github.com/heartmarshall/learnhub-backend/internal/delivery"
	"github.com/heartmarshall/learnhub-backend/internal/transport/middleware"
)

const (
	defaultSendBuffer   = 16
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second
)

type identityResolver interface {
	Resolve(ctx context.Context, token string) (auth.Identity, error)
}

type gateway interface {
	Attach(userID uuid.UUID, s delivery.Sender)
	Detach(userID uuid.UUID, connID string)
}

// Config controls per-connection buffering and keepalive.
type Config struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	OriginPatterns []string
}

func (c *Config) applyDefaults() {
	if c.SendBuffer <= 0 {
		c.SendBuffer = defaultSendBuffer
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
}

// Handler serves GET /ws.
type Handler struct {
	resolver identityResolver
	gw       gateway
	cfg      Config
	log      *slog.Logger

	base     context.Context
	shutdown context.CancelFunc
}

// NewHandler creates a WebSocket handler.
func NewHandler(resolver identityResolver, gw gateway, cfg Config, logger *slog.Logger) *Handler {
	cfg.applyDefaults()
	base, shutdown := context.WithCancel(context.Background())
	return &Handler{
		resolver: resolver,
		gw:       gw,
		cfg:      cfg,
		log:      logger.With("handler", "ws"),
		base:     base,
		shutdown: shutdown,
	}
}

// Shutdown closes every open socket with StatusGoingAway. Hijacked
// connections are not covered by http.Server.Shutdown.
func (h *Handler) Shutdown() {
	h.shutdown()
}

// ServeHTTP upgrades the request. The caller's identity comes from the
// Authorization header or the token query parameter; sockets that fail to
// identify are closed with a policy violation and never registered.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Server read/write deadlines survive the hijack; sockets manage their own.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.OriginPatterns,
	})
	if err != nil {
		h.log.WarnContext(r.Context(), "websocket accept", slog.String("error", err.Error()))
		return
	}

	id, err := h.identify(r)
	if err != nil {
		h.log.InfoContext(r.Context(), "websocket rejected", slog.String("error", err.Error()))
		conn.Close(websocket.StatusPolicyViolation, "unauthorized") //nolint:errcheck
		return
	}

	c := newClient(conn, h.cfg.SendBuffer)
	h.gw.Attach(id.UserID, c)
	defer h.gw.Detach(id.UserID, c.ID())

	log := h.log.With(
		slog.String("user_id", id.UserID.String()),
		slog.String("conn_id", c.ID()),
	)
	log.InfoContext(r.Context(), "websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(h.base, cancel)
	defer stop()

	// CloseRead discards inbound frames and cancels ctx once the peer goes away.
	ctx = conn.CloseRead(ctx)
	err = c.writeLoop(ctx, h.cfg)
	c.shutdown()

	switch {
	case h.base.Err() != nil:
		conn.Close(websocket.StatusGoingAway, "server shutting down") //nolint:errcheck
	case err == nil, errors.Is(err, context.Canceled):
		conn.Close(websocket.StatusNormalClosure, "") //nolint:errcheck
	default:
		log.WarnContext(r.Context(), "websocket write", slog.String("error", err.Error()))
		conn.CloseNow() //nolint:errcheck
	}
	log.InfoContext(r.Context(), "websocket disconnected")
}

func (h *Handler) identify(r *http.Request) (auth.Identity, error) {
	token := middleware.BearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return auth.Identity{}, auth.ErrEmptyToken
	}
	return h.resolver.Resolve(r.Context(), token)
}

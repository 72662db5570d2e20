//go:build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/learnhub-backend/internal/adapter/postgres/changefeed"
	notificationrepo "github.com/heartmarshall/learnhub-backend/internal/adapter/postgres/notification"
	"github.com/heartmarshall/learnhub-backend/internal/adapter/postgres/testhelper"
	userrepo "github.com/heartmarshall/learnhub-backend/internal/adapter/postgres/user"
	"github.com/heartmarshall/learnhub-backend/internal/app"
	"github.com/heartmarshall/learnhub-backend/internal/auth"
	"github.com/heartmarshall/learnhub-backend/internal/config"
	"github.com/heartmarshall/learnhub-backend/internal/delivery"
	"github.com/heartmarshall/learnhub-backend/internal/domain"
	"github.com/heartmarshall/learnhub-backend/internal/event"
	"github.com/heartmarshall/learnhub-backend/internal/presence"
	"github.com/heartmarshall/learnhub-backend/internal/service/notification"
	"github.com/heartmarshall/learnhub-backend/internal/transport/rest"
	"github.com/heartmarshall/learnhub-backend/internal/transport/ws"
	"github.com/heartmarshall/learnhub-backend/internal/watcher"
)

const testJWTSecret = "e2e-test-secret-at-least-32-characters-long"

// testServer is a fully wired instance: real Postgres, running watchers and
// the HTTP router served by httptest.
type testServer struct {
	URL      string
	Client   *http.Client
	Pool     *pgxpool.Pool
	JWT      *auth.JWTManager
	Presence *presence.Registry
}

// setupTestServer wires the same components as app.Run against a fresh
// connection pool. Watchers start from the head of the change log, so the
// helper blocks until all of them are subscribed.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	pool := testhelper.SetupTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := userrepo.New(pool)
	bus := event.NewBus(logger)
	registry := presence.NewRegistry()
	gateway := delivery.NewGateway(logger, registry)

	svc := notification.NewService(logger, notificationrepo.New(pool), users, gateway, notification.Config{})
	svc.Register(bus)

	feed := changefeed.New(pool, logger, changefeed.Options{PollInterval: 200 * time.Millisecond})
	watchers := watcher.NewGroup(watcher.DefaultRules(users, 100), feed, bus, logger, watcher.Options{
		OperationTimeout: 5 * time.Second,
		BackoffInitial:   50 * time.Millisecond,
		BackoffMax:       time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = watchers.Run(ctx)
	}()

	jwtMgr := auth.NewJWTManager(testJWTSecret, "learnhub-e2e", 15*time.Minute)
	wsHandler := ws.NewHandler(jwtMgr, gateway, ws.Config{
		SendBuffer:   16,
		WriteTimeout: 5 * time.Second,
		PingInterval: time.Minute,
	}, logger)

	router := app.NewRouter(logger, jwtMgr, app.Handlers{
		Health:        rest.NewHealthHandler(pool, "e2e").WithCheck("watchers", watchers.Subscribed),
		Notifications: rest.NewNotificationHandler(svc, logger),
		Admin:         rest.NewAdminHandler(svc, registry, users, logger),
		WS:            wsHandler,
	}, app.RouterConfig{
		CORS: config.CORSConfig{
			AllowedOrigins: "*",
			AllowedMethods: "GET,POST,PATCH,OPTIONS",
			AllowedHeaders: "Authorization,Content-Type",
			MaxAge:         3600,
		},
	})

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		wsHandler.Shutdown()
		srv.Close()
		cancel()
		<-done
	})

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer waitCancel()
	require.NoError(t, watchers.WaitSubscribed(waitCtx), "watchers did not subscribe")

	return &testServer{
		URL:      srv.URL,
		Client:   srv.Client(),
		Pool:     pool,
		JWT:      jwtMgr,
		Presence: registry,
	}
}

// token issues an access token for the given user.
func (ts *testServer) token(t *testing.T, u domain.User) string {
	t.Helper()
	tok, err := ts.JWT.GenerateAccessToken(u.ID, u.Role)
	require.NoError(t, err)
	return tok
}

// do sends an HTTP request with an optional bearer token and JSON body and
// returns the status code and raw response body.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

// notifications lists the caller's recent records.
func (ts *testServer) notifications(t *testing.T, token string) []domain.Notification {
	t.Helper()

	items, err := ts.listNotifications(token)
	require.NoError(t, err)
	return items
}

func (ts *testServer) listNotifications(token string) ([]domain.Notification, error) {
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/notifications?limit=100", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := ts.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list notifications: status %d", resp.StatusCode)
	}
	var items []domain.Notification
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}

// waitForNotification polls the caller's list until match returns true for
// one of the records. The condition runs off the test goroutine, so it
// reports failures by returning false.
func (ts *testServer) waitForNotification(t *testing.T, token string, match func(domain.Notification) bool) domain.Notification {
	t.Helper()

	var (
		mu    sync.Mutex
		found domain.Notification
	)
	require.Eventually(t, func() bool {
		items, err := ts.listNotifications(token)
		if err != nil {
			return false
		}
		for _, n := range items {
			if match(n) {
				mu.Lock()
				found = n
				mu.Unlock()
				return true
			}
		}
		return false
	}, 15*time.Second, 100*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	return found
}

// dialWS opens a live connection for the given token.
func (ts *testServer) dialWS(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() }) //nolint:errcheck
	return conn
}

// exec runs a statement against the observed tables.
func (ts *testServer) exec(t *testing.T, sql string, args ...any) {
	t.Helper()
	_, err := ts.Pool.Exec(context.Background(), sql, args...)
	require.NoError(t, err)
}

// ofType matches records of typ whose payload points at userID.
func ofType(typ domain.NotificationType, userID uuid.UUID) func(domain.Notification) bool {
	return func(n domain.Notification) bool {
		id, _ := n.Payload.String(domain.PayloadKeyUserID)
		return n.Type == typ && id == userID.String()
	}
}

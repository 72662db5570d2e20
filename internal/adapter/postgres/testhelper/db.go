package testhelper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for goose
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/heartmarshall/learnhub-backend/internal/adapter/postgres"
	"github.com/heartmarshall/learnhub-backend/internal/config"
	"github.com/heartmarshall/learnhub-backend/internal/watcher"
)

const (
	postgresImage = "postgres:17-alpine"
	dbName        = "learnhub_test"
	dbUser        = "learnhub"
	dbPassword    = "learnhub"

	// queryConns is the share of each test pool left for repository calls
	// once the watcher connections are reserved.
	queryConns = 8
)

// sharedDB is started once per test binary and outlives every pool.
var sharedDB struct {
	once sync.Once
	dsn  string
	err  error
}

// SetupTestDB returns a pool on the shared, migrated database. The pool is
// sized like the server's: a few query connections plus one per watched
// collection, so tests that run the full watcher group do not starve.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	sharedDB.once.Do(func() {
		sharedDB.dsn, sharedDB.err = startDatabase()
	})
	if sharedDB.err != nil {
		t.Fatalf("testhelper: database unavailable: %v", sharedDB.err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, config.DatabaseConfig{
		DSN:             sharedDB.dsn,
		MaxConns:        queryConns,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
	}, len(watcher.DefaultCollections()))
	if err != nil {
		t.Fatalf("testhelper: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}

func startDatabase() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       dbName,
				"POSTGRES_USER":     dbUser,
				"POSTGRES_PASSWORD": dbPassword,
			},
			// The entrypoint restarts postgres once after init.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("start %s: %w", postgresImage, err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		return "", fmt.Errorf("resolve container endpoint: %w", err)
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", dbUser, dbPassword, endpoint, dbName)

	if err := migrate(ctx, dsn); err != nil {
		return "", err
	}
	return dsn, nil
}

// migrate applies migrations/ including the change_log triggers.
func migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(migrationsDir()))
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "migrations")
}

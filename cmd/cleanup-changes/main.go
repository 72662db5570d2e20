// Command cleanup-changes prunes change_log rows older than the configured
// retention (watcher.change_retention). Watchers only resume from positions
// reached by the running process, so old rows are never read again. It is
// intended to be invoked by an external cron job.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/learnhub-backend/internal/adapter/postgres"
	"github.com/heartmarshall/learnhub-backend/internal/adapter/postgres/changefeed"
	"github.com/heartmarshall/learnhub-backend/internal/app"
	"github.com/heartmarshall/learnhub-backend/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database, 0)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	feed := changefeed.New(pool, logger, changefeed.Options{})
	retention := cfg.Watcher.ChangeRetention

	deleted, err := feed.Prune(ctx, retention)
	if err != nil {
		logger.Error("prune change log failed",
			slog.String("error", err.Error()),
			slog.Duration("retention", retention),
		)
		os.Exit(1)
	}

	logger.Info("prune change log completed",
		slog.Int64("deleted", deleted),
		slog.Duration("retention", retention),
	)
}

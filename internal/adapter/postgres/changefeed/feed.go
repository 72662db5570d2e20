// Package changefeed streams rows of the change_log table, which the
// collection triggers fill, as watcher change records.
package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/learnhub-backend/internal/adapter/postgres"
	"github.com/heartmarshall/learnhub-backend/internal/domain"
	"github.com/heartmarshall/learnhub-backend/internal/watcher"
)

// Channel is the NOTIFY channel the change_log trigger signals on.
const Channel = "change_log"

// Options tune polling behaviour.
type Options struct {
	// PollInterval bounds how long Next waits for a notification before
	// querying the log anyway.
	PollInterval time.Duration
	BatchSize    int
}

// Feed opens change streams over the change_log table.
type Feed struct {
	pool *pgxpool.Pool
	opts Options
	log  *slog.Logger
}

// New creates a feed over pool.
func New(pool *pgxpool.Pool, logger *slog.Logger, opts Options) *Feed {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &Feed{
		pool: pool,
		opts: opts,
		log:  logger.With("component", "changefeed"),
	}
}

// Subscribe holds a dedicated connection listening on Channel and returns a
// stream of records for collection with seq greater than resumeAfter.
// watcher.FromLatest starts after the collection's current head.
func (f *Feed) Subscribe(ctx context.Context, collection string, resumeAfter int64) (watcher.Stream, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", Channel, err)
	}

	if resumeAfter < 0 {
		err := conn.QueryRow(ctx,
			`SELECT COALESCE(MAX(seq), 0) FROM change_log WHERE collection = $1`,
			collection,
		).Scan(&resumeAfter)
		if err != nil {
			s := &Stream{conn: conn}
			_ = s.Close(ctx)
			return nil, fmt.Errorf("resolve head of %s: %w", collection, err)
		}
	}

	f.log.Debug("subscribed", slog.String("collection", collection), slog.Int64("resume_after", resumeAfter))

	return &Stream{
		conn:       conn,
		collection: collection,
		last:       resumeAfter,
		fetched:    resumeAfter,
		opts:       f.opts,
	}, nil
}

// Prune deletes change records older than olderThan and returns how many
// rows were removed.
func (f *Feed) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	query, args, err := postgres.Builder().
		Delete("change_log").
		Where(squirrel.Lt{"occurred_at": time.Now().Add(-olderThan)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	tag, err := f.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune change log: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Stream reads one collection's records in seq order. It is not safe for
// concurrent use.
type Stream struct {
	conn       *pgxpool.Conn
	collection string
	opts       Options

	last    int64
	fetched int64
	buf     []domain.ChangeRecord
}

// Next returns the next record, waiting for a notification or the poll
// interval when the log has nothing new.
func (s *Stream) Next(ctx context.Context) (domain.ChangeRecord, error) {
	for {
		if len(s.buf) > 0 {
			rec := s.buf[0]
			s.buf = s.buf[1:]
			s.last = rec.Seq
			return rec, nil
		}

		if err := s.fetch(ctx); err != nil {
			return domain.ChangeRecord{}, err
		}
		if len(s.buf) > 0 {
			continue
		}

		if err := s.wait(ctx); err != nil {
			return domain.ChangeRecord{}, err
		}
	}
}

// Position returns the seq of the last record handed out.
func (s *Stream) Position() int64 { return s.last }

// Close stops listening and returns the connection to the pool. A
// connection that fails to UNLISTEN is closed instead of reused.
func (s *Stream) Close(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil
	defer conn.Release()

	if _, err := conn.Exec(ctx, "UNLISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		_ = conn.Conn().Close(ctx)
		return fmt.Errorf("unlisten %s: %w", Channel, err)
	}
	return nil
}

func (s *Stream) fetch(ctx context.Context) error {
	rows, err := s.conn.Query(ctx,
		`SELECT seq, collection, operation, document_key, full_document, updated_fields, previous_fields, occurred_at
		 FROM change_log
		 WHERE collection = $1 AND seq > $2
		 ORDER BY seq
		 LIMIT $3`,
		s.collection, s.fetched, s.opts.BatchSize,
	)
	if err != nil {
		return fmt.Errorf("read change log: %w", err)
	}

	recs, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return fmt.Errorf("scan change log: %w", err)
	}
	if len(recs) > 0 {
		s.fetched = recs[len(recs)-1].Seq
		s.buf = recs
	}
	return nil
}

// wait blocks until a notification arrives or the poll interval passes.
func (s *Stream) wait(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.opts.PollInterval)
	defer cancel()

	_, err := s.conn.Conn().WaitForNotification(waitCtx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded) || waitCtx.Err() != nil:
		return nil
	default:
		return fmt.Errorf("wait for notification: %w", err)
	}
}

func scanRecord(row pgx.CollectableRow) (domain.ChangeRecord, error) {
	var (
		rec                     domain.ChangeRecord
		op                      string
		full, updated, previous []byte
	)
	if err := row.Scan(&rec.Seq, &rec.Collection, &op, &rec.DocumentKey, &full, &updated, &previous, &rec.OccurredAt); err != nil {
		return domain.ChangeRecord{}, err
	}
	rec.Operation = domain.ChangeOperation(op)

	var err error
	if rec.FullDocument, err = decodePayload(full); err != nil {
		return domain.ChangeRecord{}, fmt.Errorf("seq %d full_document: %w", rec.Seq, err)
	}
	if rec.UpdatedFields, err = decodePayload(updated); err != nil {
		return domain.ChangeRecord{}, fmt.Errorf("seq %d updated_fields: %w", rec.Seq, err)
	}
	if rec.PreviousFields, err = decodePayload(previous); err != nil {
		return domain.ChangeRecord{}, fmt.Errorf("seq %d previous_fields: %w", rec.Seq, err)
	}
	return rec, nil
}

func decodePayload(raw []byte) (domain.Payload, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var p domain.Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

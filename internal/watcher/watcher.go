package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
)

// Options tune a watcher's runtime behaviour.
type Options struct {
	OperationTimeout time.Duration
	BackoffInitial   time.Duration
	BackoffMax       time.Duration
}

func (o Options) withDefaults() Options {
	if o.OperationTimeout <= 0 {
		o.OperationTimeout = 10 * time.Second
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 500 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 30 * time.Second
	}
	return o
}

// Watcher follows the change feed of one collection and publishes the
// events its rules produce.
type Watcher struct {
	collection string
	rules      []Rule
	feed       Feed
	bus        Publisher
	log        *slog.Logger
	opts       Options

	subscribed     chan struct{}
	subscribedOnce sync.Once
}

// New creates a watcher for collection. Rules for other collections are ignored.
func New(collection string, rules []Rule, feed Feed, bus Publisher, logger *slog.Logger, opts Options) *Watcher {
	var own []Rule
	for _, r := range rules {
		if r.Collection == collection {
			own = append(own, r)
		}
	}

	return &Watcher{
		collection: collection,
		rules:      own,
		feed:       feed,
		bus:        bus,
		log:        logger.With("component", "watcher", "collection", collection),
		opts:       opts.withDefaults(),
		subscribed: make(chan struct{}),
	}
}

// Collection returns the watched collection name.
func (w *Watcher) Collection() string { return w.collection }

// Subscribed is closed once the first subscription has been opened.
// Changes committed after that point are guaranteed to be seen.
func (w *Watcher) Subscribed() <-chan struct{} { return w.subscribed }

// Run consumes the feed until ctx is cancelled. Transport failures are
// logged and followed by a resubscribe with exponential backoff, resuming
// after the last record seen. Run returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.opts.BackoffInitial
	bo.MaxInterval = w.opts.BackoffMax
	bo.MaxElapsedTime = 0
	bo.Reset()

	resume := FromLatest
	w.log.Info("watcher started")

	for {
		if ctx.Err() != nil {
			w.log.Info("watcher stopped")
			return nil
		}

		stream, err := w.feed.Subscribe(ctx, w.collection, resume)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.log.Error("subscribe failed", slog.Int64("resume_after", resume), slog.String("error", err.Error()))
			w.wait(ctx, bo.NextBackOff())
			continue
		}

		w.subscribedOnce.Do(func() { close(w.subscribed) })

		err = w.consume(ctx, stream, bo)
		resume = stream.Position()
		w.closeStream(stream)

		if ctx.Err() != nil {
			continue
		}
		w.log.Warn("change stream interrupted, resubscribing",
			slog.Int64("resume_after", resume),
			slog.String("error", err.Error()),
		)
		w.wait(ctx, bo.NextBackOff())
	}
}

func (w *Watcher) consume(ctx context.Context, stream Stream, bo backoff.BackOff) error {
	for {
		rec, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		w.Process(ctx, rec)
		bo.Reset()
	}
}

// Process translates one record and publishes the resulting events. Every
// translation call, fan-out page and publish runs under its own
// OperationTimeout. A failed translation skips the record; a failed fan-out
// page stops the fan-out after the pages already published.
func (w *Watcher) Process(ctx context.Context, rec domain.ChangeRecord) {
	for _, rule := range w.rules {
		if !rule.Matches(rec) {
			continue
		}
		if rule.Pages != nil {
			w.processPages(ctx, rule.Pages, rec)
			continue
		}

		var events []domain.Event
		err := w.call(ctx, func(opCtx context.Context) error {
			var err error
			events, err = rule.Translate(opCtx, rec)
			return err
		})
		if err != nil {
			w.log.Error("change record skipped",
				slog.Int64("seq", rec.Seq),
				slog.String("operation", rec.Operation.String()),
				slog.String("document_key", rec.DocumentKey),
				slog.String("error", err.Error()),
			)
			return
		}
		w.publish(ctx, rec, events)
	}
}

func (w *Watcher) processPages(ctx context.Context, pages PageFunc, rec domain.ChangeRecord) {
	var (
		cursor    = uuid.Nil
		published int
	)
	for page := 1; ctx.Err() == nil; page++ {
		var (
			events []domain.Event
			next   uuid.UUID
			done   bool
		)
		err := w.call(ctx, func(opCtx context.Context) error {
			var err error
			events, next, done, err = pages(opCtx, rec, cursor)
			return err
		})
		if err == nil && !done && next == cursor {
			err = errors.New("fan-out cursor did not advance")
		}
		if err != nil {
			w.log.Error("fan-out stopped",
				slog.Int64("seq", rec.Seq),
				slog.String("document_key", rec.DocumentKey),
				slog.Int("page", page),
				slog.Int("published", published),
				slog.String("error", err.Error()),
			)
			return
		}

		published += w.publish(ctx, rec, events)
		if done {
			return
		}
		cursor = next
	}
}

// publish hands events to the bus one at a time and returns how many were
// published before ctx ended.
func (w *Watcher) publish(ctx context.Context, rec domain.ChangeRecord, events []domain.Event) int {
	for i, ev := range events {
		if ctx.Err() != nil {
			return i
		}

		pubCtx, cancel := context.WithTimeout(ctx, w.opts.OperationTimeout)
		w.bus.Publish(pubCtx, ev)
		timedOut := errors.Is(pubCtx.Err(), context.DeadlineExceeded)
		cancel()

		if timedOut {
			w.log.Error("event publish timed out",
				slog.Int64("seq", rec.Seq),
				slog.String("event", ev.Name.String()),
				slog.Duration("timeout", w.opts.OperationTimeout),
			)
		}
	}
	return len(events)
}

// call runs one translation step under the operation timeout and turns a
// panic into an error.
func (w *Watcher) call(ctx context.Context, fn func(context.Context) error) (err error) {
	opCtx, cancel := context.WithTimeout(ctx, w.opts.OperationTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("translation panic: %v", r)
		}
	}()
	return fn(opCtx)
}

func (w *Watcher) closeStream(stream Stream) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stream.Close(ctx); err != nil {
		w.log.Warn("close stream", slog.String("error", err.Error()))
	}
}

func (w *Watcher) wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

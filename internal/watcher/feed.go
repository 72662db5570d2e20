// Package watcher turns collection change feeds into domain events.
package watcher

import (
	"context"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
)

// FromLatest subscribes after the current head of the feed.
const FromLatest int64 = -1

// Feed opens change streams for a single collection.
type Feed interface {
	// Subscribe starts a stream of records with Seq greater than resumeAfter.
	Subscribe(ctx context.Context, collection string, resumeAfter int64) (Stream, error)
}

// Stream yields change records in Seq order.
type Stream interface {
	// Next blocks until a record is available. Transport failures are
	// returned as errors; the stream is unusable afterwards.
	Next(ctx context.Context) (domain.ChangeRecord, error)
	// Position is the Seq of the last record returned by Next, or the
	// resolved starting point if none was returned yet.
	Position() int64
	Close(ctx context.Context) error
}

// Publisher is the bus side the watchers publish to.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event)
}

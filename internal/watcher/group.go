package watcher

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Group runs one watcher per collection named in a rule set.
type Group struct {
	watchers []*Watcher
}

// NewGroup builds a watcher for every collection in rules.
func NewGroup(rules []Rule, feed Feed, bus Publisher, logger *slog.Logger, opts Options) *Group {
	g := &Group{}
	for _, c := range Collections(rules) {
		g.watchers = append(g.watchers, New(c, rules, feed, bus, logger, opts))
	}
	return g
}

// Collections lists the watched collections.
func (g *Group) Collections() []string {
	out := make([]string, len(g.watchers))
	for i, w := range g.watchers {
		out[i] = w.Collection()
	}
	return out
}

// Subscribed reports whether every watcher has opened its change stream.
func (g *Group) Subscribed() bool {
	for _, w := range g.watchers {
		select {
		case <-w.Subscribed():
		default:
			return false
		}
	}
	return true
}

// WaitSubscribed blocks until every watcher has opened its change stream
// or ctx is done.
func (g *Group) WaitSubscribed(ctx context.Context) error {
	for _, w := range g.watchers {
		select {
		case <-w.Subscribed():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Run starts all watchers and blocks until every one has returned.
func (g *Group) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, w := range g.watchers {
		eg.Go(func() error {
			return w.Run(ctx)
		})
	}
	return eg.Wait()
}

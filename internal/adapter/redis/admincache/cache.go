// Package admincache caches the administrator id list in Redis so fan-out
// does not query users for every notification.
package admincache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
	"github.com/heartmarshall/learnhub-backend/internal/event"
)

// Redis keys. GenerationKey is bumped on every invalidation; a list loaded
// under an older generation is never written back.
const (
	Key           = "notify:admin_ids"
	GenerationKey = "notify:admin_ids:gen"
)

var errStale = errors.New("admin ids invalidated during load")

type adminLister interface {
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

type subscriber interface {
	Subscribe(name domain.NotificationType, l event.Listener)
}

// Cache serves ListAdminIDs from Redis, loading from the base lister on a miss.
type Cache struct {
	base  adminLister
	redis *redis.Client
	ttl   time.Duration
	log   *slog.Logger
}

// New wraps base with a Redis cache. A nil client disables caching.
func New(base adminLister, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
		log:   logger.With("component", "admincache"),
	}
}

// ListAdminIDs returns the cached admin ids, falling back to the base lister
// when the key is missing, malformed or Redis is unavailable.
func (c *Cache) ListAdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	if ids, ok := c.load(ctx); ok {
		return ids, nil
	}

	gen, genOK := c.generation(ctx)

	ids, err := c.base.ListAdminIDs(ctx)
	if err != nil {
		return nil, err
	}

	if genOK {
		c.store(ctx, gen, ids)
	}
	return ids, nil
}

// Invalidate drops the cached list and bumps the generation so that loads
// already in flight do not repopulate it.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey)
		pipe.Del(ctx, Key)
		return nil
	})
	return err
}

// Register invalidates the cache whenever the admin set may have changed.
// It must run before the fan-out listeners subscribe.
func (c *Cache) Register(bus subscriber) {
	invalidate := func(ctx context.Context, _ domain.Event) error {
		return c.Invalidate(ctx)
	}
	bus.Subscribe(domain.NotificationRoleChanged, invalidate)
	bus.Subscribe(domain.NotificationAdminUserCreated, invalidate)
	bus.Subscribe(domain.EventUserDeleted, invalidate)
}

func (c *Cache) generation(ctx context.Context) (int64, bool) {
	if c.redis == nil {
		return 0, false
	}
	gen, err := c.redis.Get(ctx, GenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.WarnContext(ctx, "read admin ids generation", slog.String("error", err.Error()))
		return 0, false
	}
	return gen, true
}

func (c *Cache) load(ctx context.Context) ([]uuid.UUID, bool) {
	if c.redis == nil {
		return nil, false
	}

	data, err := c.redis.Get(ctx, Key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WarnContext(ctx, "read admin ids from cache", slog.String("error", err.Error()))
		}
		return nil, false
	}

	var ids []uuid.UUID
	if err := json.Unmarshal(data, &ids); err != nil {
		c.log.WarnContext(ctx, "decode cached admin ids", slog.String("error", err.Error()))
		_ = c.redis.Del(ctx, Key).Err()
		return nil, false
	}
	return ids, true
}

func (c *Cache) store(ctx context.Context, gen int64, ids []uuid.UUID) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return
	}

	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, GenerationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, Key, data, c.ttl)
			return nil
		})
		return err
	}, GenerationKey)

	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		c.log.DebugContext(ctx, "skip caching admin ids loaded before invalidation")
	default:
		c.log.WarnContext(ctx, "store admin ids in cache", slog.String("error", err.Error()))
	}
}

// Package notification implements the notification store using PostgreSQL.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/learnhub-backend/internal/adapter/postgres"
	"github.com/heartmarshall/learnhub-backend/internal/domain"
)

const table = "notifications"

var columns = []string{"id", "user_id", "type", "payload", "is_read", "created_at"}

// Repo persists notification records.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new notification repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// Create stores a new unread notification for userID.
func (r *Repo) Create(ctx context.Context, userID uuid.UUID, typ domain.NotificationType, payload domain.Payload) (*domain.Notification, error) {
	if payload == nil {
		payload = domain.Payload{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	id := uuid.New()
	query, args, err := postgres.Builder().
		Insert(table).
		Columns("id", "user_id", "type", "payload").
		Values(id, userID, typ.String(), raw).
		Suffix("RETURNING id, user_id, type, payload, is_read, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	row := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...)
	n, err := scanNotification(row)
	if err != nil {
		return nil, postgres.MapError(err, "notification", id)
	}
	return n, nil
}

// MarkRead flags one notification as read. The update matches on both id
// and owner, so a foreign id reports ErrNotFound exactly like a missing one.
func (r *Repo) MarkRead(ctx context.Context, id, userID uuid.UUID) (*domain.Notification, error) {
	query, args, err := postgres.Builder().
		Update(table).
		Set("is_read", true).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		Suffix("RETURNING id, user_id, type, payload, is_read, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	row := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...)
	n, err := scanNotification(row)
	if err != nil {
		return nil, postgres.MapError(err, "notification", id)
	}
	return n, nil
}

// MarkAllRead flags every unread notification of userID as read and returns
// how many changed.
func (r *Repo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	query, args, err := postgres.Builder().
		Update(table).
		Set("is_read", true).
		Where(squirrel.Eq{"user_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return 0, postgres.MapError(err, "notifications of user", userID)
	}
	return int(tag.RowsAffected()), nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// ListRecent returns up to limit notifications of userID, newest first.
func (r *Repo) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	return r.list(ctx, squirrel.Eq{"user_id": userID}, limit)
}

// ListUnread returns up to limit unread notifications of userID, newest first.
func (r *Repo) ListUnread(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	return r.list(ctx, squirrel.Eq{"user_id": userID, "is_read": false}, limit)
}

// CountUnread returns the number of unread notifications of userID.
func (r *Repo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	query, args, err := postgres.Builder().
		Select("count(*)").
		From(table).
		Where(squirrel.Eq{"user_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int
	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, postgres.MapError(err, "notifications of user", userID)
	}
	return count, nil
}

func (r *Repo) list(ctx context.Context, where squirrel.Eq, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		return []domain.Notification{}, nil
	}

	query, args, err := postgres.Builder().
		Select(columns...).
		From(table).
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Notification, error) {
		n, err := scanNotification(row)
		if err != nil {
			return domain.Notification{}, err
		}
		return *n, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan notifications: %w", err)
	}
	return out, nil
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var (
		n   domain.Notification
		typ string
		raw []byte
	)
	if err := row.Scan(&n.ID, &n.UserID, &typ, &raw, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Type = domain.NotificationType(typ)

	n.Payload = domain.Payload{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &n.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	return &n, nil
}

// Package user implements read access and role changes for users backed by PostgreSQL.
package user

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/learnhub-backend/internal/adapter/postgres"
	"github.com/heartmarshall/learnhub-backend/internal/domain"
)

var userColumns = []string{"id", "email", "username", "role", "created_at", "updated_at"}

// Repo provides user persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new user repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

// GetByID returns a user by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query, args, err := postgres.Builder().
		Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	row := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...)
	u, err := scanUser(row)
	if err != nil {
		return nil, postgres.MapError(err, "user", id)
	}
	return u, nil
}

// ListAdminIDs returns the ids of every user with an elevated role.
func (r *Repo) ListAdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	roles := make([]string, 0, len(domain.ElevatedRoles()))
	for _, role := range domain.ElevatedRoles() {
		roles = append(roles, role.String())
	}

	query, args, err := postgres.Builder().
		Select("id").
		From("users").
		Where(squirrel.Eq{"role": roles}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	ids, err := r.queryIDs(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("list admin ids: %w", err)
	}
	return ids, nil
}

// ListIDsAfter returns up to limit user ids greater than after, ascending.
// Pass uuid.Nil for the first page.
func (r *Repo) ListIDsAfter(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		return nil, nil
	}

	query, args, err := postgres.Builder().
		Select("id").
		From("users").
		Where(squirrel.Gt{"id": after.String()}).
		OrderBy("id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	ids, err := r.queryIDs(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// Role management
// ---------------------------------------------------------------------------

// UpdateRole sets the role of the user with the given email.
func (r *Repo) UpdateRole(ctx context.Context, email string, role domain.UserRole) (*domain.User, error) {
	if !role.IsValid() {
		return nil, domain.NewValidationError("role", "unknown role "+role.String())
	}

	query, args, err := postgres.Builder().
		Update("users").
		Set("role", role.String()).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"email": email}).
		Suffix("RETURNING id, email, username, role, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	row := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...)
	u, err := scanUser(row)
	if err != nil {
		return nil, postgres.MapError(err, "user", email)
	}
	return u, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (r *Repo) queryIDs(ctx context.Context, query string, args []any) ([]uuid.UUID, error) {
	rows, err := postgres.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.UserRole(role)
	return &u, nil
}

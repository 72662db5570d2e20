package testhelper

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedUser creates a user with the USER role.
func SeedUser(t *testing.T, pool *pgxpool.Pool) domain.User {
	t.Helper()
	return SeedUserWithRole(t, pool, domain.UserRoleUser)
}

// SeedAdmin creates a user with the ADMIN role.
func SeedAdmin(t *testing.T, pool *pgxpool.Pool) domain.User {
	t.Helper()
	return SeedUserWithRole(t, pool, domain.UserRoleAdmin)
}

// SeedUserWithRole creates a user with the given role and returns it.
func SeedUserWithRole(t *testing.T, pool *pgxpool.Pool, role domain.UserRole) domain.User {
	t.Helper()

	suffix := uniqueSuffix()
	now := time.Now().UTC().Truncate(time.Microsecond)
	user := domain.User{
		ID:        uuid.New(),
		Email:     "testuser-" + suffix + "@example.com",
		Username:  "testuser-" + suffix,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, email, username, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.Username, string(user.Role), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedUser insert user: %v", err)
	}

	return user
}

// SeedNotification inserts a notification row directly, bypassing the repository.
func SeedNotification(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, typ domain.NotificationType, createdAt time.Time) domain.Notification {
	t.Helper()

	n := domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      typ,
		Payload:   domain.Payload{"userId": userID.String()},
		CreatedAt: createdAt.UTC().Truncate(time.Microsecond),
	}

	raw, err := json.Marshal(n.Payload)
	if err != nil {
		t.Fatalf("testhelper: SeedNotification marshal payload: %v", err)
	}

	_, err = pool.Exec(context.Background(),
		`INSERT INTO notifications (id, user_id, type, payload, is_read, created_at)
		 VALUES ($1, $2, $3, $4, false, $5)`,
		n.ID, n.UserID, string(n.Type), raw, n.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedNotification insert: %v", err)
	}

	return n
}

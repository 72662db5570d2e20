// Command promote sets the role of one or more users by email address.
// It is used to bootstrap administrators. All emails are updated in one
// transaction: if any is unknown, nothing changes.
//
// Usage:
//
//	promote --email=a@example.com,b@example.com [--role=ADMIN]
//
// Requires DATABASE_DSN environment variable to be set.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/learnhub-backend/internal/adapter/postgres"
	userrepo "github.com/heartmarshall/learnhub-backend/internal/adapter/postgres/user"
	"github.com/heartmarshall/learnhub-backend/internal/domain"
)

func main() {
	emails := flag.String("email", "", "comma-separated emails of users to update")
	role := flag.String("role", domain.UserRoleAdmin.String(), "role to assign (USER, INSTRUCTOR, ADMIN, SUPERADMIN)")
	flag.Parse()

	list := splitEmails(*emails)
	if len(list) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: promote --email=user@example.com [--role=ADMIN]")
		os.Exit(1)
	}

	target := domain.UserRole(strings.ToUpper(*role))
	if !target.IsValid() {
		log.Fatalf("unknown role %q", *role)
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		log.Fatal("DATABASE_DSN environment variable is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer pool.Close()

	users := userrepo.New(pool)
	tx := postgres.NewTxManager(pool).Serializable()

	var updated []*domain.User
	err = tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, email := range list {
			u, err := users.UpdateRole(ctx, email, target)
			if err != nil {
				return fmt.Errorf("%s: %w", email, err)
			}
			updated = append(updated, u)
		}
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		log.Fatalf("no changes made, user not found: %v", err)
	}
	if err != nil {
		log.Fatalf("update role: %v", err)
	}

	for _, u := range updated {
		fmt.Printf("User %q (%s) is now %s.\n", u.Email, u.ID, u.Role)
	}
}

func splitEmails(s string) []string {
	var out []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

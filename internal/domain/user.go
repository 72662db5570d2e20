package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account known to the notification core. Only the
// fields needed for recipient resolution are carried here.
type User struct {
	ID        uuid.UUID
	Email     string
	Username  string
	Role      UserRole
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the user receives broadcast copies.
func (u *User) IsAdmin() bool {
	return u.Role.IsElevated()
}

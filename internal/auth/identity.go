package auth

import (
	"github.com/google/uuid"

	"github.com/heartmarshall/learnhub-backend/internal/domain"
)

// Identity is the authenticated caller behind a request or socket.
type Identity struct {
	UserID uuid.UUID
	Role   domain.UserRole
}

// IsAdmin reports whether the identity holds an administrator role.
func (i Identity) IsAdmin() bool {
	return i.Role.IsElevated()
}

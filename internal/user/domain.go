// internal/user/domain.go
package user

import (
	"time"

	"github.com/google/uuid"
)

// Role controls what a principal may do. Ordinary users manage only their
// own borrowings; staff manage the catalog and may query across users.
type Role string

const (
	RoleOrdinary Role = "ordinary"
	RoleStaff    Role = "staff"
)

// User represents a registered library user.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Role         Role      `json:"role" db:"role"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Salt         string    `json:"-" db:"salt"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Principal is the authenticated identity attached to a request. The
// borrowing and catalog services trust it as supplied by the auth layer.
type Principal struct {
	ID   uuid.UUID
	Role Role
}

// IsStaff reports whether the principal holds the staff role.
func (p Principal) IsStaff() bool {
	return p.Role == RoleStaff
}

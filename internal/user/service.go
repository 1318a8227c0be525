// internal/user/service.go
package user

import (
	"context"
)

// Service defines the interface for the user service.
type Service interface {
	Register(ctx context.Context, email, password string) (*User, error)
	Login(ctx context.Context, email, password string) (string, error)
}

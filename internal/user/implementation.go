// internal/user/implementation.go
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var (
	ErrRateLimited        = errors.New("too many registration attempts")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const tokenTTL = 24 * time.Hour

// service implements the Service interface.
type service struct {
	repo        Repository
	secret      []byte
	rateLimiter *rate.Limiter
}

// NewService creates a new user service instance. The secret signs the
// tokens returned by Login.
func NewService(repo Repository, secret []byte) Service {
	return &service{
		repo:        repo,
		secret:      secret,
		rateLimiter: rate.NewLimiter(rate.Every(2*time.Second), 30), // burst of 30, then one every 2s
	}
}

// Register creates an ordinary user. Staff accounts are provisioned out of
// band, not through this endpoint.
func (s *service) Register(ctx context.Context, email, password string) (*User, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}
	if email == "" || len(password) < 8 {
		return nil, fmt.Errorf("email required and password must be at least 8 characters")
	}

	hash, salt, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:           uuid.New(),
		Email:        email,
		Role:         RoleOrdinary,
		PasswordHash: hash,
		Salt:         salt,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and returns a signed token.
func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	ok, err := verifyPassword(password, u.Salt, u.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return "", ErrInvalidCredentials
	}

	return IssueToken(s.secret, u, tokenTTL)
}

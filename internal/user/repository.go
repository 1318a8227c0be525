// internal/user/repository.go
package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Repository provides typed access to stored users.
type Repository interface {
	Insert(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// postgresRepository implements Repository on top of Postgres.
type postgresRepository struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

// NewPostgresRepository creates a Postgres-backed user repository.
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{
		db:     db,
		tracer: otel.Tracer("library-service/user"),
	}
}

func (r *postgresRepository) Insert(ctx context.Context, u *User) error {
	ctx, span := r.tracer.Start(ctx, "user.insert",
		trace.WithAttributes(attribute.String("user.id", u.ID.String())),
	)
	defer span.End()

	query := `
		INSERT INTO users (id, email, role, password_hash, salt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Email, u.Role, u.PasswordHash, u.Salt, u.CreatedAt)
	if err != nil {
		// Unique violation on the email column.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	ctx, span := r.tracer.Start(ctx, "user.get",
		trace.WithAttributes(attribute.String("user.id", id.String())),
	)
	defer span.End()

	u := &User{}
	query := `
		SELECT id, email, role, password_hash, salt, created_at
		FROM users
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	ctx, span := r.tracer.Start(ctx, "user.get_by_email")
	defer span.End()

	u := &User{}
	query := `
		SELECT id, email, role, password_hash, salt, created_at
		FROM users
		WHERE email = $1
	`
	if err := r.db.GetContext(ctx, u, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

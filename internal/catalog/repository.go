// internal/catalog/repository.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound is returned when the referenced book does not exist.
var ErrNotFound = errors.New("book not found")

// Repository provides typed access to stored books. The store accepts any
// values; business rules live in the services that use it. The inventory
// primitives are the only exception: DecrementInventoryIfAvailable must be
// atomic so that concurrent borrows can never drive inventory negative.
type Repository interface {
	Insert(ctx context.Context, b *Book) error
	GetByID(ctx context.Context, id uuid.UUID) (*Book, error)
	List(ctx context.Context) ([]*Book, error)
	Update(ctx context.Context, b *Book) error
	Delete(ctx context.Context, id uuid.UUID) error

	// DecrementInventoryIfAvailable decrements the book's inventory by one
	// and reports whether a copy was actually taken. It returns false,
	// without error, when inventory is already zero.
	DecrementInventoryIfAvailable(ctx context.Context, id uuid.UUID) (bool, error)

	// IncrementInventory returns a copy to the shelf.
	IncrementInventory(ctx context.Context, id uuid.UUID) error
}

// postgresRepository implements Repository on top of Postgres.
type postgresRepository struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

// NewPostgresRepository creates a Postgres-backed book repository.
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{
		db:     db,
		tracer: otel.Tracer("library-service/catalog"),
	}
}

func (r *postgresRepository) Insert(ctx context.Context, b *Book) error {
	ctx, span := r.tracer.Start(ctx, "catalog.insert",
		trace.WithAttributes(attribute.String("book.id", b.ID.String())),
	)
	defer span.End()

	query := `
		INSERT INTO books (id, title, author, cover, inventory, daily_fee, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`
	_, err := r.db.ExecContext(ctx, query, b.ID, b.Title, b.Author, b.Cover, b.Inventory, b.DailyFee, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Book, error) {
	ctx, span := r.tracer.Start(ctx, "catalog.get",
		trace.WithAttributes(attribute.String("book.id", id.String())),
	)
	defer span.End()

	b := &Book{}
	query := `
		SELECT id, title, author, cover, inventory, daily_fee, created_at, updated_at
		FROM books
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, b, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]*Book, error) {
	ctx, span := r.tracer.Start(ctx, "catalog.list")
	defer span.End()

	var books []*Book
	query := `
		SELECT id, title, author, cover, inventory, daily_fee, created_at, updated_at
		FROM books
		ORDER BY created_at ASC, id ASC
	`
	if err := r.db.SelectContext(ctx, &books, query); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	span.SetAttributes(attribute.Int("books.count", len(books)))
	return books, nil
}

func (r *postgresRepository) Update(ctx context.Context, b *Book) error {
	ctx, span := r.tracer.Start(ctx, "catalog.update",
		trace.WithAttributes(attribute.String("book.id", b.ID.String())),
	)
	defer span.End()

	query := `
		UPDATE books
		SET title = $1, author = $2, cover = $3, inventory = $4, daily_fee = $5, updated_at = NOW()
		WHERE id = $6
	`
	res, err := r.db.ExecContext(ctx, query, b.Title, b.Author, b.Cover, b.Inventory, b.DailyFee, b.ID)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update book rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := r.tracer.Start(ctx, "catalog.delete",
		trace.WithAttributes(attribute.String("book.id", id.String())),
	)
	defer span.End()

	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete book rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementInventoryIfAvailable relies on a conditional UPDATE so the
// read-check-write sequence is a single atomic statement. Two concurrent
// borrows of the last copy race on the row lock; the loser matches zero
// rows and reports no copy taken.
func (r *postgresRepository) DecrementInventoryIfAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "catalog.decrement_inventory",
		trace.WithAttributes(attribute.String("book.id", id.String())),
	)
	defer span.End()

	query := `
		UPDATE books
		SET inventory = inventory - 1, updated_at = NOW()
		WHERE id = $1 AND inventory > 0
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("decrement inventory: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement inventory rows affected: %w", err)
	}

	span.SetAttributes(attribute.Bool("inventory.taken", rows == 1))
	return rows == 1, nil
}

func (r *postgresRepository) IncrementInventory(ctx context.Context, id uuid.UUID) error {
	ctx, span := r.tracer.Start(ctx, "catalog.increment_inventory",
		trace.WithAttributes(attribute.String("book.id", id.String())),
	)
	defer span.End()

	query := `
		UPDATE books
		SET inventory = inventory + 1, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment inventory: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment inventory rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

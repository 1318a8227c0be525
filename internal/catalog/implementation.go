// internal/catalog/implementation.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chipapapo/library-service/internal/user"
)

// ErrForbidden is returned when a non-staff principal attempts a catalog
// write.
var ErrForbidden = errors.New("staff role required")

// service implements the Service interface.
type service struct {
	repo Repository
}

// NewService creates a new catalog service instance.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// AddBook creates a new book in the catalog.
func (s *service) AddBook(ctx context.Context, p user.Principal, title, author string, cover Cover, inventory int, dailyFee float64) (*Book, error) {
	if !p.IsStaff() {
		return nil, ErrForbidden
	}
	if title == "" || author == "" {
		return nil, fmt.Errorf("title and author are required")
	}
	if !cover.Valid() {
		return nil, fmt.Errorf("unknown cover type %q", cover)
	}
	if inventory < 0 || dailyFee < 0 {
		return nil, fmt.Errorf("inventory and daily fee must not be negative")
	}

	b := &Book{
		ID:        uuid.New(),
		Title:     title,
		Author:    author,
		Cover:     cover,
		Inventory: inventory,
		DailyFee:  dailyFee,
		CreatedAt: time.Now().UTC(),
	}
	b.UpdatedAt = b.CreatedAt

	if err := s.repo.Insert(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetBook retrieves a book from the catalog by its ID.
func (s *service) GetBook(ctx context.Context, id uuid.UUID) (*Book, error) {
	return s.repo.GetByID(ctx, id)
}

// ListBooks returns the whole catalog.
func (s *service) ListBooks(ctx context.Context) ([]*Book, error) {
	return s.repo.List(ctx)
}

// UpdateBook replaces a book's fields.
func (s *service) UpdateBook(ctx context.Context, p user.Principal, b *Book) error {
	if !p.IsStaff() {
		return ErrForbidden
	}
	if !b.Cover.Valid() {
		return fmt.Errorf("unknown cover type %q", b.Cover)
	}
	if b.Inventory < 0 || b.DailyFee < 0 {
		return fmt.Errorf("inventory and daily fee must not be negative")
	}
	return s.repo.Update(ctx, b)
}

// RemoveBook deletes a book from the catalog.
func (s *service) RemoveBook(ctx context.Context, p user.Principal, id uuid.UUID) error {
	if !p.IsStaff() {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/chipapapo/library-service/internal/user"
)

// Service defines the interface for the catalog service. Writes require a
// staff principal; reads are open to any authenticated user.
type Service interface {
	AddBook(ctx context.Context, p user.Principal, title, author string, cover Cover, inventory int, dailyFee float64) (*Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*Book, error)
	ListBooks(ctx context.Context) ([]*Book, error)
	UpdateBook(ctx context.Context, p user.Principal, b *Book) error
	RemoveBook(ctx context.Context, p user.Principal, id uuid.UUID) error
}

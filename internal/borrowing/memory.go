// internal/borrowing/memory.go
package borrowing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/chipapapo/library-service/internal/catalog"
	"github.com/chipapapo/library-service/internal/user"
)

// memoryRepository is an in-memory Repository used by tests and for
// running the service without Postgres. Views are composed from the book
// and user repositories at read time, mirroring the joined query of the
// Postgres implementation.
type memoryRepository struct {
	mu         sync.RWMutex
	borrowings map[uuid.UUID]*Borrowing
	order      []uuid.UUID

	books catalog.Repository
	users user.Repository
}

// NewMemoryRepository creates an empty in-memory borrowing repository.
func NewMemoryRepository(books catalog.Repository, users user.Repository) Repository {
	return &memoryRepository{
		borrowings: make(map[uuid.UUID]*Borrowing),
		books:      books,
		users:      users,
	}
}

func (r *memoryRepository) Insert(_ context.Context, b *Borrowing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *b
	r.borrowings[b.ID] = &cp
	r.order = append(r.order, b.ID)
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Borrowing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.borrowings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memoryRepository) GetView(ctx context.Context, id uuid.UUID) (*View, error) {
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v, err := r.compose(ctx, b)
	if err != nil {
		// A dangling book or user reference renders the view unresolvable,
		// matching the inner join of the Postgres implementation.
		if unresolvable(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (r *memoryRepository) List(ctx context.Context, f Filter) ([]*View, error) {
	r.mu.RLock()
	matched := make([]*Borrowing, 0, len(r.order))
	for _, id := range r.order {
		b := r.borrowings[id]
		if f.ActiveOnly && b.ActualReturnDate != nil {
			continue
		}
		if f.BorrowDate != nil && !b.BorrowDate.Equal(f.BorrowDate.Time) {
			continue
		}
		if f.UserID != nil && b.UserID != *f.UserID {
			continue
		}
		cp := *b
		matched = append(matched, &cp)
	}
	r.mu.RUnlock()

	views := make([]*View, 0, len(matched))
	for _, b := range matched {
		v, err := r.compose(ctx, b)
		if err != nil {
			// Rows with dangling references drop out of the listing, as
			// they would from the inner join of the Postgres implementation.
			if unresolvable(err) {
				continue
			}
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func unresolvable(err error) bool {
	return errors.Is(err, catalog.ErrNotFound) || errors.Is(err, user.ErrNotFound)
}

func (r *memoryRepository) MarkReturned(_ context.Context, id uuid.UUID, returned Date) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.borrowings[id]
	if !ok {
		return false, ErrNotFound
	}
	if b.ActualReturnDate != nil {
		return false, nil
	}
	b.ActualReturnDate = &returned
	return true, nil
}

func (r *memoryRepository) compose(ctx context.Context, b *Borrowing) (*View, error) {
	book, err := r.books.GetByID(ctx, b.BookID)
	if err != nil {
		return nil, fmt.Errorf("compose view for borrowing %s: %w", b.ID, err)
	}
	u, err := r.users.GetByID(ctx, b.UserID)
	if err != nil {
		return nil, fmt.Errorf("compose view for borrowing %s: %w", b.ID, err)
	}

	return &View{
		ID:                 b.ID,
		BorrowDate:         b.BorrowDate,
		ExpectedReturnDate: b.ExpectedReturnDate,
		ActualReturnDate:   b.ActualReturnDate,
		Book: catalog.Summary{
			ID:       book.ID,
			Title:    book.Title,
			Author:   book.Author,
			Cover:    book.Cover,
			DailyFee: book.DailyFee,
		},
		UserEmail: u.Email,
	}, nil
}

// internal/borrowing/implementation.go
package borrowing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/chipapapo/library-service/internal/catalog"
	"github.com/chipapapo/library-service/internal/user"
)

// service implements the Service interface.
type service struct {
	borrowings Repository
	books      catalog.Repository
	users      user.Repository
}

// NewService creates a new borrowing service instance.
func NewService(borrowings Repository, books catalog.Repository, users user.Repository) Service {
	return &service{
		borrowings: borrowings,
		books:      books,
		users:      users,
	}
}

// Create records a borrowing and takes one copy off the shelf. Taking the
// copy is the atomic conditional-decrement primitive, so two concurrent
// creates against a single remaining copy cannot both succeed. If the
// ledger insert fails after the copy was taken, the decrement is
// compensated so no partial state survives.
func (s *service) Create(ctx context.Context, userID, bookID uuid.UUID, expectedReturn Date, today time.Time) (*Borrowing, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("book %s: %w", bookID, ErrNotFound)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	borrowDate := DateOf(today)
	if expectedReturn.Before(borrowDate.Time) {
		return nil, fmt.Errorf("expected return %s before borrow date %s: %w", expectedReturn, borrowDate, ErrInvalidRange)
	}

	// The inventory re-check happens inside the decrement itself; the
	// CanBorrow read above only produces the cheaper rejection when the
	// shelf is already empty.
	if !CanBorrow(book) {
		return nil, fmt.Errorf("book %s: %w", bookID, ErrNotAvailable)
	}

	taken, err := s.books.DecrementInventoryIfAvailable(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("take copy: %w", err)
	}
	if !taken {
		return nil, fmt.Errorf("book %s: %w", bookID, ErrNotAvailable)
	}

	b := &Borrowing{
		ID:                 uuid.New(),
		BorrowDate:         borrowDate,
		ExpectedReturnDate: expectedReturn,
		BookID:             bookID,
		UserID:             userID,
	}

	if err := s.borrowings.Insert(ctx, b); err != nil {
		// Put the copy back so the failed create leaves no trace.
		if compErr := s.books.IncrementInventory(ctx, bookID); compErr != nil {
			log.Printf("failed to compensate inventory for book %s: %v", bookID, compErr)
		}
		return nil, fmt.Errorf("insert borrowing: %w", err)
	}

	return b, nil
}

// Return closes a borrowing and puts the copy back. The copy goes back on
// the shelf first; if the ledger update then fails or loses the race
// against another return, the restock is compensated so a failed return
// leaves both ledger and catalog untouched. The terminal-state guard
// lives in MarkReturned, so a second return is rejected even when two
// returns race.
func (s *service) Return(ctx context.Context, id uuid.UUID, today time.Time) (*Borrowing, error) {
	b, err := s.borrowings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !IsActive(b) {
		return nil, fmt.Errorf("borrowing %s: %w", id, ErrAlreadyReturned)
	}

	if err := s.books.IncrementInventory(ctx, b.BookID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("book %s: %w", b.BookID, ErrNotFound)
		}
		return nil, fmt.Errorf("restock book %s: %w", b.BookID, err)
	}

	returned := DateOf(today)
	marked, err := s.borrowings.MarkReturned(ctx, id, returned)
	if err != nil || !marked {
		// Take the copy back off the shelf; this return did not happen.
		if _, compErr := s.books.DecrementInventoryIfAvailable(ctx, b.BookID); compErr != nil {
			log.Printf("failed to compensate inventory for book %s: %v", b.BookID, compErr)
		}
		if err != nil {
			return nil, fmt.Errorf("mark returned: %w", err)
		}
		return nil, fmt.Errorf("borrowing %s: %w", id, ErrAlreadyReturned)
	}

	b.ActualReturnDate = &returned
	return b, nil
}

// Get returns the read view of one borrowing. Ordinary principals can only
// see their own; anyone else's id behaves as if it did not exist.
func (s *service) Get(ctx context.Context, p user.Principal, id uuid.UUID) (*View, error) {
	b, err := s.borrowings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsStaff() && b.UserID != p.ID {
		return nil, ErrNotFound
	}
	return s.borrowings.GetView(ctx, id)
}

// List returns the read views matching the principal's filter.
func (s *service) List(ctx context.Context, p user.Principal, params ListParams) ([]*View, error) {
	return s.borrowings.List(ctx, BuildFilter(p, params))
}

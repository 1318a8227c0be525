// internal/borrowing/errors.go
package borrowing

import "errors"

var (
	// ErrNotFound is returned when the referenced borrowing, book or user
	// does not exist.
	ErrNotFound = errors.New("borrowing not found")

	// ErrNotAvailable is returned when the book has no inventory left.
	ErrNotAvailable = errors.New("no copies available to borrow")

	// ErrInvalidRange is returned when the expected return date precedes
	// the borrow date.
	ErrInvalidRange = errors.New("expected return date precedes borrow date")

	// ErrAlreadyReturned is returned on a second return of the same
	// borrowing. Returned is a terminal state.
	ErrAlreadyReturned = errors.New("borrowing already returned")
)

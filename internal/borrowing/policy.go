// internal/borrowing/policy.go
package borrowing

import (
	"time"

	"github.com/chipapapo/library-service/internal/catalog"
)

// Pure predicates over current state. No side effects; the transaction
// service is responsible for applying them atomically.

// CanBorrow reports whether the book has a copy available.
func CanBorrow(b *catalog.Book) bool {
	return b.Inventory > 0
}

// IsActive reports whether the borrowing has not been returned yet.
func IsActive(b *Borrowing) bool {
	return b.ActualReturnDate == nil
}

// IsOverdue reports whether an active borrowing has passed its expected
// return date as of the given reference time. Returned borrowings are
// never overdue.
func IsOverdue(b *Borrowing, asOf time.Time) bool {
	return IsActive(b) && DateOf(asOf).After(b.ExpectedReturnDate.Time)
}

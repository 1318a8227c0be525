// internal/catalog/domain.go
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Cover is the binding of a book.
type Cover string

const (
	CoverHard Cover = "HARD"
	CoverSoft Cover = "SOFT"
)

// Valid reports whether c is a known cover type.
func (c Cover) Valid() bool {
	return c == CoverHard || c == CoverSoft
}

// Book represents a title in the catalog. Inventory counts the copies
// currently available to borrow, not the copies owned.
type Book struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Author    string    `json:"author" db:"author"`
	Cover     Cover     `json:"cover" db:"cover"`
	Inventory int       `json:"inventory" db:"inventory"`
	DailyFee  float64   `json:"daily_fee" db:"daily_fee"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Summary is the embedded book view returned inside borrowing listings.
type Summary struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Title    string    `json:"title" db:"title"`
	Author   string    `json:"author" db:"author"`
	Cover    Cover     `json:"cover" db:"cover"`
	DailyFee float64   `json:"daily_fee" db:"daily_fee"`
}

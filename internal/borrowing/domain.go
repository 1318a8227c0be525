// internal/borrowing/domain.go
package borrowing

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chipapapo/library-service/internal/catalog"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time component. Borrow and return
// policy works at day granularity, so timestamps are truncated on the way
// in and serialized as ISO dates ("2023-12-24") on the way out.
type Date struct {
	time.Time
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO date literal.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date literal %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer so Date binds as a SQL DATE.
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

// Borrowing records one user holding one book for a date range. BorrowDate
// is set at creation and never changes. ActualReturnDate is set exactly
// once, by the return operation; while it is nil the borrowing is active.
type Borrowing struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	BorrowDate         Date      `json:"borrow_date" db:"borrow_date"`
	ExpectedReturnDate Date      `json:"expected_return_date" db:"expected_return_date"`
	ActualReturnDate   *Date     `json:"actual_return_date" db:"actual_return_date"`
	BookID             uuid.UUID `json:"book_id" db:"book_id"`
	UserID             uuid.UUID `json:"user_id" db:"user_id"`
}

// View is the read representation returned by list and detail endpoints:
// the book is embedded as a summary and the user collapses to their email.
type View struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	BorrowDate         Date            `json:"borrow_date" db:"borrow_date"`
	ExpectedReturnDate Date            `json:"expected_return_date" db:"expected_return_date"`
	ActualReturnDate   *Date           `json:"actual_return_date" db:"actual_return_date"`
	Book               catalog.Summary `json:"book" db:"book"`
	UserEmail          string          `json:"user" db:"user_email"`
}

// internal/borrowing/filter.go
package borrowing

import (
	"github.com/google/uuid"

	"github.com/chipapapo/library-service/internal/user"
)

// ListParams carries the raw query parameters accepted by the listing
// surface, before any role policy is applied. IsActive holds the literal
// parameter value; per the collaborator contract only "true" activates the
// filter, anything else means no filtering on that axis.
type ListParams struct {
	IsActive   string
	BorrowDate *Date
	UserID     *uuid.UUID
}

// Filter is the normalized predicate structure the repositories consume.
// It is the output of BuildFilter and contains no role logic of its own.
type Filter struct {
	ActiveOnly bool
	BorrowDate *Date
	UserID     *uuid.UUID
}

// BuildFilter maps a principal and raw parameters to a Filter.
//
// Ordinary principals are always pinned to their own borrowings; a user
// parameter supplied by a non-staff caller is ignored rather than
// rejected. Staff may combine borrow-date and user filters freely, with no
// implicit self-restriction. A user filter naming an unknown id simply
// matches nothing.
func BuildFilter(p user.Principal, params ListParams) Filter {
	f := Filter{ActiveOnly: params.IsActive == "true"}

	if p.IsStaff() {
		f.BorrowDate = params.BorrowDate
		f.UserID = params.UserID
		return f
	}

	self := p.ID
	f.UserID = &self
	return f
}

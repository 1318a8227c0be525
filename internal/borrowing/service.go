// internal/borrowing/service.go
package borrowing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chipapapo/library-service/internal/user"
)

// Service defines the interface for the borrowing transaction service.
// The today parameter is the caller's current date; handlers pass
// time.Now so tests can pin the clock.
type Service interface {
	Create(ctx context.Context, userID, bookID uuid.UUID, expectedReturn Date, today time.Time) (*Borrowing, error)
	Return(ctx context.Context, id uuid.UUID, today time.Time) (*Borrowing, error)
	Get(ctx context.Context, p user.Principal, id uuid.UUID) (*View, error)
	List(ctx context.Context, p user.Principal, params ListParams) ([]*View, error)
}

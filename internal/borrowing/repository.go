// internal/borrowing/repository.go
package borrowing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Repository provides typed access to the borrowing ledger.
type Repository interface {
	Insert(ctx context.Context, b *Borrowing) error
	GetByID(ctx context.Context, id uuid.UUID) (*Borrowing, error)

	// GetView returns the read representation of one borrowing.
	GetView(ctx context.Context, id uuid.UUID) (*View, error)

	// List returns read representations matching the filter, ordered by
	// creation sequence ascending.
	List(ctx context.Context, f Filter) ([]*View, error)

	// MarkReturned sets the actual return date if it is not set yet and
	// reports whether the update happened. False means the borrowing was
	// already returned; a missing id yields ErrNotFound.
	MarkReturned(ctx context.Context, id uuid.UUID, returned Date) (bool, error)
}

const dialectPostgres = "postgres"

// postgresRepository implements Repository on top of Postgres. The list
// query is assembled with goqu so the filter axes compose without string
// concatenation.
type postgresRepository struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

// NewPostgresRepository creates a Postgres-backed borrowing repository.
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{
		db:     db,
		tracer: otel.Tracer("library-service/borrowing"),
	}
}

func (r *postgresRepository) Insert(ctx context.Context, b *Borrowing) error {
	ctx, span := r.tracer.Start(ctx, "borrowing.insert",
		trace.WithAttributes(
			attribute.String("borrowing.id", b.ID.String()),
			attribute.String("book.id", b.BookID.String()),
		),
	)
	defer span.End()

	query := `
		INSERT INTO borrowings (id, borrow_date, expected_return_date, actual_return_date, book_id, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query, b.ID, b.BorrowDate, b.ExpectedReturnDate, b.ActualReturnDate, b.BookID, b.UserID)
	if err != nil {
		return fmt.Errorf("insert borrowing: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Borrowing, error) {
	ctx, span := r.tracer.Start(ctx, "borrowing.get",
		trace.WithAttributes(attribute.String("borrowing.id", id.String())),
	)
	defer span.End()

	b := &Borrowing{}
	query := `
		SELECT id, borrow_date, expected_return_date, actual_return_date, book_id, user_id
		FROM borrowings
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, b, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get borrowing: %w", err)
	}
	return b, nil
}

// viewDataset is the joined select shared by GetView and List. Book columns
// are aliased with a "book." prefix so sqlx scans them into the embedded
// summary.
func viewDataset() *goqu.SelectDataset {
	return goqu.Dialect(dialectPostgres).
		From(goqu.T("borrowings").As("br")).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("br.book_id").Eq(goqu.I("b.id")))).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("br.user_id").Eq(goqu.I("u.id")))).
		Select(
			goqu.I("br.id"),
			goqu.I("br.borrow_date"),
			goqu.I("br.expected_return_date"),
			goqu.I("br.actual_return_date"),
			goqu.I("u.email").As(goqu.C("user_email")),
			goqu.I("b.id").As(goqu.C("book.id")),
			goqu.I("b.title").As(goqu.C("book.title")),
			goqu.I("b.author").As(goqu.C("book.author")),
			goqu.I("b.cover").As(goqu.C("book.cover")),
			goqu.I("b.daily_fee").As(goqu.C("book.daily_fee")),
		)
}

func (r *postgresRepository) GetView(ctx context.Context, id uuid.UUID) (*View, error) {
	ctx, span := r.tracer.Start(ctx, "borrowing.get_view",
		trace.WithAttributes(attribute.String("borrowing.id", id.String())),
	)
	defer span.End()

	query, args, err := viewDataset().
		Where(goqu.I("br.id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build view query: %w", err)
	}

	v := &View{}
	if err := r.db.GetContext(ctx, v, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get borrowing view: %w", err)
	}
	return v, nil
}

func (r *postgresRepository) List(ctx context.Context, f Filter) ([]*View, error) {
	ctx, span := r.tracer.Start(ctx, "borrowing.list",
		trace.WithAttributes(attribute.Bool("filter.active_only", f.ActiveOnly)),
	)
	defer span.End()

	ds := viewDataset().Order(goqu.I("br.seq").Asc())

	where := make([]goqu.Expression, 0, 3)
	if f.ActiveOnly {
		where = append(where, goqu.I("br.actual_return_date").IsNull())
	}
	if f.BorrowDate != nil {
		where = append(where, goqu.I("br.borrow_date").Eq(f.BorrowDate.Time))
	}
	if f.UserID != nil {
		where = append(where, goqu.I("br.user_id").Eq(*f.UserID))
	}
	if len(where) > 0 {
		ds = ds.Where(where...)
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var views []*View
	if err := r.db.SelectContext(ctx, &views, query, args...); err != nil {
		return nil, fmt.Errorf("list borrowings: %w", err)
	}

	span.SetAttributes(attribute.Int("borrowings.count", len(views)))
	return views, nil
}

// MarkReturned guards the terminal transition with a conditional UPDATE:
// once actual_return_date is set, no statement can ever match the row
// again.
func (r *postgresRepository) MarkReturned(ctx context.Context, id uuid.UUID, returned Date) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "borrowing.mark_returned",
		trace.WithAttributes(attribute.String("borrowing.id", id.String())),
	)
	defer span.End()

	query := `
		UPDATE borrowings
		SET actual_return_date = $1
		WHERE id = $2 AND actual_return_date IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, returned, id)
	if err != nil {
		return false, fmt.Errorf("mark returned: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark returned rows affected: %w", err)
	}
	if rows == 1 {
		return true, nil
	}

	// Distinguish an unknown id from a double return.
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM borrowings WHERE id = $1)`, id); err != nil {
		return false, fmt.Errorf("check borrowing exists: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// internal/borrowing/implementation_test.go
package borrowing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/chipapapo/library-service/internal/catalog"
	"github.com/chipapapo/library-service/internal/user"
)

type fixture struct {
	books      catalog.Repository
	users      user.Repository
	borrowings Repository
	service    Service
}

func newFixture() *fixture {
	books := catalog.NewMemoryRepository()
	users := user.NewMemoryRepository()
	borrowings := NewMemoryRepository(books, users)
	return &fixture{
		books:      books,
		users:      users,
		borrowings: borrowings,
		service:    NewService(borrowings, books, users),
	}
}

func (f *fixture) addUser(t *testing.T, email string) uuid.UUID {
	t.Helper()
	u := &user.User{ID: uuid.New(), Email: email, Role: user.RoleOrdinary}
	require.NoError(t, f.users.Insert(context.Background(), u))
	return u.ID
}

func (f *fixture) addBook(t *testing.T, inventory int) uuid.UUID {
	t.Helper()
	b := &catalog.Book{
		ID:        uuid.New(),
		Title:     "Pride and Prejudice",
		Author:    "Jane Austen",
		Cover:     catalog.CoverHard,
		Inventory: inventory,
		DailyFee:  1.50,
	}
	require.NoError(t, f.books.Insert(context.Background(), b))
	return b.ID
}

func (f *fixture) inventory(t *testing.T, bookID uuid.UUID) int {
	t.Helper()
	b, err := f.books.GetByID(context.Background(), bookID)
	require.NoError(t, err)
	return b.Inventory
}

func mustDate(t testing.TB, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestCreateDecrementsInventory(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, "reader@test.com")
	bookID := f.addBook(t, 10)

	today := time.Date(2023, 12, 20, 15, 4, 5, 0, time.UTC)
	b, err := f.service.Create(context.Background(), userID, bookID, mustDate(t, "2023-12-30"), today)
	require.NoError(t, err)

	assert.Equal(t, 9, f.inventory(t, bookID))
	assert.Equal(t, "2023-12-20", b.BorrowDate.String())
	assert.Nil(t, b.ActualReturnDate)
	assert.True(t, IsActive(b))
}

func TestReturnRestoresInventory(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, "reader@test.com")
	bookID := f.addBook(t, 10)

	today := time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC)
	b, err := f.service.Create(context.Background(), userID, bookID, mustDate(t, "2023-12-30"), today)
	require.NoError(t, err)
	require.Equal(t, 9, f.inventory(t, bookID))

	returnDay := time.Date(2023, 12, 28, 0, 0, 0, 0, time.UTC)
	returned, err := f.service.Return(context.Background(), b.ID, returnDay)
	require.NoError(t, err)

	assert.Equal(t, 10, f.inventory(t, bookID))
	require.NotNil(t, returned.ActualReturnDate)
	assert.Equal(t, "2023-12-28", returned.ActualReturnDate.String())
	assert.False(t, IsActive(returned))
}

func TestReturnTwiceRejected(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, "reader@test.com")
	bookID := f.addBook(t, 5)

	today := time.Now()
	b, err := f.service.Create(context.Background(), userID, bookID, DateOf(today), today)
	require.NoError(t, err)

	_, err = f.service.Return(context.Background(), b.ID, today)
	require.NoError(t, err)
	require.Equal(t, 5, f.inventory(t, bookID))

	_, err = f.service.Return(context.Background(), b.ID, today)
	assert.ErrorIs(t, err, ErrAlreadyReturned)

	// The rejected return must not touch inventory.
	assert.Equal(t, 5, f.inventory(t, bookID))
}

func TestCreateRejectsPastReturnDate(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, "reader@test.com")
	bookID := f.addBook(t, 10)

	today := time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC)
	_, err := f.service.Create(context.Background(), userID, bookID, mustDate(t, "2023-12-19"), today)
	assert.ErrorIs(t, err, ErrInvalidRange)

	// No borrowing row and no inventory change.
	assert.Equal(t, 10, f.inventory(t, bookID))
	views, err := f.borrowings.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestCreateSameDayReturnAllowed(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, "reader@test.com")
	bookID := f.addBook(t, 1)

	today := time.Date(2023, 12, 20, 23, 59, 59, 0, time.UTC)
	_, err := f.service.Create(context.Background(), userID, bookID, mustDate(t, "2023-12-20"), today)
	assert.NoError(t, err)
}

func TestCreateRejectsWhenNoInventory(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, "reader@test.com")
	bookID := f.addBook(t, 0)

	_, err := f.service.Create(context.Background(), userID, bookID, DateOf(time.Now()), time.Now())
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestCreateUnknownReferences(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, "reader@test.com")
	bookID := f.addBook(t, 1)

	_, err := f.service.Create(context.Background(), uuid.New(), bookID, DateOf(time.Now()), time.Now())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.service.Create(context.Background(), userID, uuid.New(), DateOf(time.Now()), time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReturnUnknownBorrowing(t *testing.T) {
	f := newFixture()

	_, err := f.service.Return(context.Background(), uuid.New(), time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentCreatesSingleCopy(t *testing.T) {
	f := newFixture()
	bookID := f.addBook(t, 1)

	const workers = 10
	userIDs := make([]uuid.UUID, workers)
	for i := range userIDs {
		userIDs[i] = f.addUser(t, uuid.NewString()+"@test.com")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	notAvailable := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()
			_, err := f.service.Create(context.Background(), userID, bookID, DateOf(time.Now()), time.Now())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, ErrNotAvailable):
				notAvailable++
			}
		}(userIDs[i])
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "exactly one concurrent create may take the last copy")
	assert.Equal(t, workers-1, notAvailable)
	assert.Equal(t, 0, f.inventory(t, bookID))
}

// flakyLedger wraps a Repository so single operations can be forced to
// fail, exercising the compensation paths of the transaction service.
type flakyLedger struct {
	Repository
	insertErr error
	markErr   error
}

func (l *flakyLedger) Insert(ctx context.Context, b *Borrowing) error {
	if l.insertErr != nil {
		return l.insertErr
	}
	return l.Repository.Insert(ctx, b)
}

func (l *flakyLedger) MarkReturned(ctx context.Context, id uuid.UUID, returned Date) (bool, error) {
	if l.markErr != nil {
		return false, l.markErr
	}
	return l.Repository.MarkReturned(ctx, id, returned)
}

func TestCreateInsertFailureRestoresInventory(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, "reader@test.com")
	bookID := f.addBook(t, 3)

	ledger := &flakyLedger{Repository: f.borrowings, insertErr: errors.New("ledger write failed")}
	svc := NewService(ledger, f.books, f.users)

	_, err := svc.Create(context.Background(), userID, bookID, DateOf(time.Now()), time.Now())
	require.Error(t, err)

	// The taken copy went back on the shelf and no borrowing row exists.
	assert.Equal(t, 3, f.inventory(t, bookID))
	views, err := f.borrowings.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestReturnRestockFailureLeavesBorrowingActive(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, "reader@test.com")
	bookID := f.addBook(t, 1)

	b, err := f.service.Create(context.Background(), userID, bookID, DateOf(time.Now()), time.Now())
	require.NoError(t, err)

	// The book disappears from the catalog while on loan.
	require.NoError(t, f.books.Delete(context.Background(), bookID))

	_, err = f.service.Return(context.Background(), b.ID, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)

	// The failed return must leave the ledger unchanged: the borrowing is
	// still active and a later retry is not rejected as a double return.
	got, err := f.borrowings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ActualReturnDate)
	assert.True(t, IsActive(got))
}

func TestReturnMarkFailureCompensatesInventory(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, "reader@test.com")
	bookID := f.addBook(t, 2)

	b, err := f.service.Create(context.Background(), userID, bookID, DateOf(time.Now()), time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, f.inventory(t, bookID))

	ledger := &flakyLedger{Repository: f.borrowings, markErr: errors.New("ledger write failed")}
	svc := NewService(ledger, f.books, f.users)

	_, err = svc.Return(context.Background(), b.ID, time.Now())
	require.Error(t, err)

	// The restock was rolled back and the borrowing is still active.
	assert.Equal(t, 1, f.inventory(t, bookID))
	got, err := f.borrowings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, IsActive(got))
}

func TestListSkipsBorrowingsWithDanglingBook(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, "reader@test.com")
	keptBook := f.addBook(t, 2)
	doomedBook := f.addBook(t, 2)

	kept, err := f.service.Create(context.Background(), userID, keptBook, DateOf(time.Now()), time.Now())
	require.NoError(t, err)
	dangling, err := f.service.Create(context.Background(), userID, doomedBook, DateOf(time.Now()), time.Now())
	require.NoError(t, err)

	require.NoError(t, f.books.Delete(context.Background(), doomedBook))

	// The unresolvable row drops out of the listing instead of failing it.
	views, err := f.service.List(context.Background(),
		user.Principal{ID: userID, Role: user.RoleOrdinary}, ListParams{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, kept.ID, views[0].ID)

	_, err = f.service.Get(context.Background(),
		user.Principal{ID: userID, Role: user.RoleOrdinary}, dangling.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetRestrictedToOwnerForOrdinary(t *testing.T) {
	f := newFixture()
	owner := f.addUser(t, "owner@test.com")
	other := f.addUser(t, "other@test.com")
	bookID := f.addBook(t, 2)

	b, err := f.service.Create(context.Background(), owner, bookID, DateOf(time.Now()), time.Now())
	require.NoError(t, err)

	_, err = f.service.Get(context.Background(), user.Principal{ID: other, Role: user.RoleOrdinary}, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := f.service.Get(context.Background(), user.Principal{ID: owner, Role: user.RoleOrdinary}, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner@test.com", v.UserEmail)

	v, err = f.service.Get(context.Background(), user.Principal{ID: other, Role: user.RoleStaff}, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, v.ID)
}

func TestListOrdinaryNeverSeesForeignBorrowings(t *testing.T) {
	f := newFixture()
	alice := f.addUser(t, "alice@test.com")
	bob := f.addUser(t, "bob@test.com")
	bookID := f.addBook(t, 10)

	_, err := f.service.Create(context.Background(), alice, bookID, DateOf(time.Now()), time.Now())
	require.NoError(t, err)
	_, err = f.service.Create(context.Background(), bob, bookID, DateOf(time.Now()), time.Now())
	require.NoError(t, err)

	// Alice asks for Bob's borrowings explicitly; the parameter is ignored.
	views, err := f.service.List(context.Background(),
		user.Principal{ID: alice, Role: user.RoleOrdinary},
		ListParams{UserID: &bob},
	)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "alice@test.com", views[0].UserEmail)
}

func TestListStaffFiltersByBorrowDate(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, "reader@test.com")
	bookID := f.addBook(t, 10)

	day1 := time.Date(2023, 12, 24, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2023, 12, 25, 10, 0, 0, 0, time.UTC)

	_, err := f.service.Create(context.Background(), userID, bookID, mustDate(t, "2023-12-30"), day1)
	require.NoError(t, err)
	_, err = f.service.Create(context.Background(), userID, bookID, mustDate(t, "2023-12-30"), day2)
	require.NoError(t, err)

	d := mustDate(t, "2023-12-24")
	views, err := f.service.List(context.Background(),
		user.Principal{ID: uuid.New(), Role: user.RoleStaff},
		ListParams{BorrowDate: &d},
	)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "2023-12-24", views[0].BorrowDate.String())
}

func TestListStaffFilterByUnknownUserIsEmpty(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, "reader@test.com")
	bookID := f.addBook(t, 10)

	_, err := f.service.Create(context.Background(), userID, bookID, DateOf(time.Now()), time.Now())
	require.NoError(t, err)

	unknown := uuid.New()
	views, err := f.service.List(context.Background(),
		user.Principal{ID: uuid.New(), Role: user.RoleStaff},
		ListParams{UserID: &unknown},
	)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestListActiveOnly(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, "reader@test.com")
	bookID := f.addBook(t, 10)

	b1, err := f.service.Create(context.Background(), userID, bookID, DateOf(time.Now()), time.Now())
	require.NoError(t, err)
	b2, err := f.service.Create(context.Background(), userID, bookID, DateOf(time.Now()), time.Now())
	require.NoError(t, err)

	_, err = f.service.Return(context.Background(), b1.ID, time.Now())
	require.NoError(t, err)

	p := user.Principal{ID: userID, Role: user.RoleOrdinary}

	views, err := f.service.List(context.Background(), p, ListParams{IsActive: "true"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, b2.ID, views[0].ID)

	// Any other literal means no filtering on that axis.
	views, err = f.service.List(context.Background(), p, ListParams{IsActive: "false"})
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestListOrderedByCreation(t *testing.T) {
	f := newFixture()
	userID := f.addUser(t, "reader@test.com")
	bookID := f.addBook(t, 10)

	var created []uuid.UUID
	for i := 0; i < 4; i++ {
		b, err := f.service.Create(context.Background(), userID, bookID, DateOf(time.Now()), time.Now())
		require.NoError(t, err)
		created = append(created, b.ID)
	}

	views, err := f.service.List(context.Background(),
		user.Principal{ID: userID, Role: user.RoleOrdinary}, ListParams{})
	require.NoError(t, err)
	require.Len(t, views, len(created))
	for i, v := range views {
		assert.Equal(t, created[i], v.ID)
	}
}

// Over any sequence of create and return operations, inventory never goes
// negative and a copy is on the shelf or in exactly one active borrowing.
func TestInventoryConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := newFixture()
		ctx := context.Background()

		userID := uuid.New()
		_ = f.users.Insert(ctx, &user.User{ID: userID, Email: "prop@test.com", Role: user.RoleOrdinary})

		initial := rapid.IntRange(0, 5).Draw(t, "initialInventory")
		book := &catalog.Book{ID: uuid.New(), Title: "t", Author: "a", Cover: catalog.CoverSoft, Inventory: initial}
		_ = f.books.Insert(ctx, book)

		var open []uuid.UUID
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if len(open) > 0 && rapid.Bool().Draw(t, "doReturn") {
				idx := rapid.IntRange(0, len(open)-1).Draw(t, "which")
				if _, err := f.service.Return(ctx, open[idx], time.Now()); err != nil {
					t.Fatalf("return: %v", err)
				}
				open = append(open[:idx], open[idx+1:]...)
			} else {
				b, err := f.service.Create(ctx, userID, book.ID, DateOf(time.Now()), time.Now())
				if err == nil {
					open = append(open, b.ID)
				}
			}

			current, err := f.books.GetByID(ctx, book.ID)
			if err != nil {
				t.Fatalf("get book: %v", err)
			}
			if current.Inventory < 0 {
				t.Fatalf("inventory went negative: %d", current.Inventory)
			}
			if current.Inventory+len(open) != initial {
				t.Fatalf("conservation violated: inventory=%d open=%d initial=%d",
					current.Inventory, len(open), initial)
			}
		}
	})
}

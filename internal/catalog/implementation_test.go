// internal/catalog/implementation_test.go
package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chipapapo/library-service/internal/user"
)

var (
	staff    = user.Principal{ID: uuid.New(), Role: user.RoleStaff}
	ordinary = user.Principal{ID: uuid.New(), Role: user.RoleOrdinary}
)

func newTestService() Service {
	return NewService(NewMemoryRepository())
}

func TestAddBook(t *testing.T) {
	svc := newTestService()

	b, err := svc.AddBook(context.Background(), staff, "Dune", "Frank Herbert", CoverHard, 3, 0.75)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, 3, b.Inventory)

	got, err := svc.GetBook(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
}

func TestAddBookValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.AddBook(ctx, staff, "", "Frank Herbert", CoverHard, 3, 0.75)
	assert.Error(t, err)

	_, err = svc.AddBook(ctx, staff, "Dune", "Frank Herbert", Cover("SPIRAL"), 3, 0.75)
	assert.Error(t, err)

	_, err = svc.AddBook(ctx, staff, "Dune", "Frank Herbert", CoverSoft, -1, 0.75)
	assert.Error(t, err)

	_, err = svc.AddBook(ctx, staff, "Dune", "Frank Herbert", CoverSoft, 1, -0.10)
	assert.Error(t, err)
}

func TestWritesRequireStaff(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	b, err := svc.AddBook(ctx, staff, "Dune", "Frank Herbert", CoverHard, 3, 0.75)
	require.NoError(t, err)

	_, err = svc.AddBook(ctx, ordinary, "Emma", "Jane Austen", CoverSoft, 1, 0.25)
	assert.ErrorIs(t, err, ErrForbidden)

	b.Title = "Dune Messiah"
	assert.ErrorIs(t, svc.UpdateBook(ctx, ordinary, b), ErrForbidden)
	assert.ErrorIs(t, svc.RemoveBook(ctx, ordinary, b.ID), ErrForbidden)

	// Reads stay open to everyone.
	_, err = svc.GetBook(ctx, b.ID)
	assert.NoError(t, err)
	_, err = svc.ListBooks(ctx)
	assert.NoError(t, err)
}

func TestUpdateAndRemoveBook(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	b, err := svc.AddBook(ctx, staff, "Dune", "Frank Herbert", CoverHard, 3, 0.75)
	require.NoError(t, err)

	b.Inventory = 7
	require.NoError(t, svc.UpdateBook(ctx, staff, b))

	got, err := svc.GetBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Inventory)

	require.NoError(t, svc.RemoveBook(ctx, staff, b.ID))
	_, err = svc.GetBook(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDecrementIncrement(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	b := &Book{ID: uuid.New(), Title: "Dune", Author: "Frank Herbert", Cover: CoverHard, Inventory: 1}
	require.NoError(t, repo.Insert(ctx, b))

	taken, err := repo.DecrementInventoryIfAvailable(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, taken)

	// Shelf is empty now; the next take must report failure, not go negative.
	taken, err = repo.DecrementInventoryIfAvailable(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Inventory)

	require.NoError(t, repo.IncrementInventory(ctx, b.ID))
	got, err = repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Inventory)
}

func TestMemoryDecrementUnknownBook(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.DecrementInventoryIfAvailable(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.IncrementInventory(context.Background(), uuid.New()), ErrNotFound)
}

func TestListPreservesInsertionOrder(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	titles := []string{"A", "B", "C"}
	for _, title := range titles {
		_, err := svc.AddBook(ctx, staff, title, "X", CoverSoft, 1, 0.10)
		require.NoError(t, err)
	}

	books, err := svc.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, len(titles))
	for i, b := range books {
		assert.Equal(t, titles[i], b.Title)
	}
}

// internal/catalog/memory.go
package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryRepository is an in-memory Repository used by tests and for
// running the service without Postgres. The mutex serializes the
// read-check-write section of DecrementInventoryIfAvailable, giving the
// same no-oversell guarantee as the conditional UPDATE in Postgres.
type memoryRepository struct {
	mu    sync.RWMutex
	books map[uuid.UUID]*Book
	order []uuid.UUID
}

// NewMemoryRepository creates an empty in-memory book repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		books: make(map[uuid.UUID]*Book),
	}
}

func (r *memoryRepository) Insert(_ context.Context, b *Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *b
	r.books[b.ID] = &cp
	r.order = append(r.order, b.ID)
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memoryRepository) List(_ context.Context) ([]*Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	books := make([]*Book, 0, len(r.order))
	for _, id := range r.order {
		cp := *r.books[id]
		books = append(books, &cp)
	}
	return books, nil
}

func (r *memoryRepository) Update(_ context.Context, b *Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.books[b.ID]
	if !ok {
		return ErrNotFound
	}
	cp := *b
	cp.CreatedAt = current.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	r.books[b.ID] = &cp
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.books[id]; !ok {
		return ErrNotFound
	}
	delete(r.books, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *memoryRepository) DecrementInventoryIfAvailable(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.books[id]
	if !ok {
		return false, ErrNotFound
	}
	if b.Inventory <= 0 {
		return false, nil
	}
	b.Inventory--
	b.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *memoryRepository) IncrementInventory(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.books[id]
	if !ok {
		return ErrNotFound
	}
	b.Inventory++
	b.UpdatedAt = time.Now().UTC()
	return nil
}

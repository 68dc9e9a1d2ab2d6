package book

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo keeps books in process memory. It backs the CLI when no database
// is configured and the handler tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	books map[string]Book
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		books: make(map[string]Book),
		now:   time.Now,
	}
}

func (r *MemoryRepo) Get(ctx context.Context, isbn string) (Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.books[isbn]
	if !ok {
		return Book{}, ErrNotFound
	}
	return clone(b), nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Book, 0, len(r.books))
	for _, b := range r.books {
		out = append(out, clone(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ISBN < out[j].ISBN
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) Create(ctx context.Context, b Book) (Book, error) {
	if err := ValidatePrices(b.SellPrice, b.HighestPrice); err != nil {
		return Book{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.books[b.ISBN]; ok {
		return Book{}, ErrDuplicate
	}
	now := r.now()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Authors == nil {
		b.Authors = []string{}
	}
	if b.Categories == nil {
		b.Categories = []string{}
	}
	r.books[b.ISBN] = clone(b)
	return b, nil
}

func (r *MemoryRepo) Update(ctx context.Context, isbn string, u PriceUpdate) (Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.books[isbn]
	if !ok {
		return Book{}, ErrNotFound
	}
	b = u.Apply(b)
	if err := ValidatePrices(b.SellPrice, b.HighestPrice); err != nil {
		return Book{}, err
	}
	b.UpdatedAt = r.now()
	r.books[isbn] = b
	return clone(b), nil
}

func (r *MemoryRepo) Delete(ctx context.Context, isbn string) (Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.books[isbn]
	if !ok {
		return Book{}, ErrNotFound
	}
	delete(r.books, isbn)
	return b, nil
}

func clone(b Book) Book {
	b.Authors = append([]string{}, b.Authors...)
	b.Categories = append([]string{}, b.Categories...)
	if b.PageCount != nil {
		n := *b.PageCount
		b.PageCount = &n
	}
	if b.LastPriceCheck != nil {
		t := *b.LastPriceCheck
		b.LastPriceCheck = &t
	}
	return b
}

package book

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Service provides book-related business logic.
type Service struct {
	repo     Repository
	resolver Resolver
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new book service.
func NewService(repo Repository, resolver Resolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		resolver: resolver,
		logger:   logger.With("component", "book_service"),
		now:      time.Now,
	}
}

// List returns every tracked book, newest first.
func (s *Service) List(ctx context.Context) ([]Book, error) {
	return s.repo.List(ctx)
}

// Get returns a book by its ISBN.
func (s *Service) Get(ctx context.Context, isbn string) (Book, error) {
	isbn, err := NormalizeISBN(isbn)
	if err != nil {
		return Book{}, err
	}
	return s.repo.Get(ctx, isbn)
}

// Exists reports whether a book is already tracked.
func (s *Service) Exists(ctx context.Context, isbn string) (bool, error) {
	isbn, err := NormalizeISBN(isbn)
	if err != nil {
		return false, err
	}
	_, err = s.repo.Get(ctx, isbn)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create resolves metadata and prices for a new ISBN and stores the record.
// An ISBN that is already stored fails with ErrDuplicate before any external call.
func (s *Service) Create(ctx context.Context, isbn string) (Book, error) {
	isbn, err := NormalizeISBN(isbn)
	if err != nil {
		return Book{}, err
	}
	exists, err := s.Exists(ctx, isbn)
	if err != nil {
		return Book{}, err
	}
	if exists {
		return Book{}, ErrDuplicate
	}

	b, err := s.resolver.Resolve(ctx, isbn)
	if err != nil {
		return Book{}, err
	}
	created, err := s.repo.Create(ctx, b)
	if err != nil {
		return Book{}, err
	}
	s.logger.Info("book created", "isbn", isbn, "source", created.Source, "priced", created.SellPrice.Valid)
	return created, nil
}

// RefreshPrice re-runs price resolution for a stored book and writes the price
// fields. Metadata is never touched.
func (s *Service) RefreshPrice(ctx context.Context, isbn string) (Prices, error) {
	isbn, err := NormalizeISBN(isbn)
	if err != nil {
		return Prices{}, err
	}
	if _, err := s.repo.Get(ctx, isbn); err != nil {
		return Prices{}, err
	}

	prices, err := s.resolver.ResolvePrices(ctx, isbn)
	if err != nil {
		return Prices{}, err
	}
	if _, err := s.repo.Update(ctx, isbn, UpdateFromPrices(prices)); err != nil {
		return Prices{}, err
	}
	s.logger.Info("price refreshed", "isbn", isbn, "found", prices.Found())
	return prices, nil
}

// PreviewPrices resolves prices with every vendor quote without storing anything.
func (s *Service) PreviewPrices(ctx context.Context, isbn string) (Prices, error) {
	isbn, err := NormalizeISBN(isbn)
	if err != nil {
		return Prices{}, err
	}
	return s.resolver.ResolvePrices(ctx, isbn)
}

// UpdatePrices applies a manual price correction.
func (s *Service) UpdatePrices(ctx context.Context, isbn string, u PriceUpdate) (Book, error) {
	isbn, err := NormalizeISBN(isbn)
	if err != nil {
		return Book{}, err
	}
	existing, err := s.repo.Get(ctx, isbn)
	if err != nil {
		return Book{}, err
	}
	merged := u.Apply(existing)
	if err := ValidatePrices(merged.SellPrice, merged.HighestPrice); err != nil {
		return Book{}, err
	}
	if u.LastPriceCheck == nil {
		now := s.now()
		u.LastPriceCheck = &now
	}
	return s.repo.Update(ctx, isbn, u)
}

// Delete removes a book and returns what was stored.
func (s *Service) Delete(ctx context.Context, isbn string) (Book, error) {
	isbn, err := NormalizeISBN(isbn)
	if err != nil {
		return Book{}, err
	}
	return s.repo.Delete(ctx, isbn)
}

// RefreshStale refreshes every book whose last price check is missing or older
// than maxAge. Failures are logged and skipped; the count of refreshed books is
// returned.
func (s *Service) RefreshStale(ctx context.Context, maxAge time.Duration) (int, error) {
	books, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-maxAge)
	refreshed := 0
	for _, b := range books {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}
		if b.LastPriceCheck != nil && b.LastPriceCheck.After(cutoff) {
			continue
		}
		if _, err := s.RefreshPrice(ctx, b.ISBN); err != nil {
			s.logger.Warn("stale price refresh failed", "isbn", b.ISBN, "error", err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

package book

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=book

// Repository defines the contract for book data storage.
type Repository interface {
	Get(ctx context.Context, isbn string) (Book, error)
	List(ctx context.Context) ([]Book, error)
	Create(ctx context.Context, b Book) (Book, error)
	Update(ctx context.Context, isbn string, u PriceUpdate) (Book, error)
	Delete(ctx context.Context, isbn string) (Book, error)
}

// Resolver produces book records and prices from external sources.
type Resolver interface {
	Resolve(ctx context.Context, isbn string) (Book, error)
	ResolvePrices(ctx context.Context, isbn string) (Prices, error)
}

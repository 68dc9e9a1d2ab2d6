package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// PriceOrderConstraint names the CHECK that keeps highest_price >= sell_price.
const PriceOrderConstraint = "books_price_order"

const bookColumns = `isbn, title, image_url, description, authors, categories,
		       published_date, page_count, source, sell_price, highest_price,
		       high_payout_company, last_price_check, created_at, updated_at`

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	err := row.Scan(
		&b.ISBN, &b.Title, &b.ImageURL, &b.Description, &b.Authors, &b.Categories,
		&b.PublishedDate, &b.PageCount, &b.Source, &b.SellPrice, &b.HighestPrice,
		&b.HighPayoutCompany, &b.LastPriceCheck, &b.CreatedAt, &b.UpdatedAt,
	)
	if b.Authors == nil {
		b.Authors = []string{}
	}
	if b.Categories == nil {
		b.Categories = []string{}
	}
	return b, err
}

func (r *PostgresRepo) Get(ctx context.Context, isbn string) (Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE isbn = $1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, isbn))
	if err != nil {
		return Book{}, translate(err)
	}
	return b, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books ORDER BY created_at DESC, isbn`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(timeoutCtx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Create(ctx context.Context, b Book) (Book, error) {
	query := `
		INSERT INTO books (isbn, title, image_url, description, authors, categories,
		                   published_date, page_count, source, sell_price, highest_price,
		                   high_payout_company, last_price_check, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING ` + bookColumns

	authors, categories := b.Authors, b.Categories
	if authors == nil {
		authors = []string{}
	}
	if categories == nil {
		categories = []string{}
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	created, err := scanBook(r.db.QueryRow(timeoutCtx, query,
		b.ISBN, b.Title, b.ImageURL, b.Description, authors, categories,
		b.PublishedDate, b.PageCount, b.Source, b.SellPrice, b.HighestPrice,
		b.HighPayoutCompany, b.LastPriceCheck,
	))
	if err != nil {
		return Book{}, translate(err)
	}
	return created, nil
}

// Update only writes the price columns; metadata columns are not reachable from here.
func (r *PostgresRepo) Update(ctx context.Context, isbn string, u PriceUpdate) (Book, error) {
	query := `
		UPDATE books SET
			sell_price = COALESCE($2, sell_price),
			highest_price = COALESCE($3, highest_price),
			high_payout_company = COALESCE($4, high_payout_company),
			last_price_check = COALESCE($5, last_price_check),
			updated_at = NOW()
		WHERE isbn = $1
		RETURNING ` + bookColumns

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	updated, err := scanBook(r.db.QueryRow(timeoutCtx, query,
		isbn, u.SellPrice, u.HighestPrice, u.HighPayoutCompany, u.LastPriceCheck,
	))
	if err != nil {
		return Book{}, translate(err)
	}
	return updated, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, isbn string) (Book, error) {
	query := `DELETE FROM books WHERE isbn = $1 RETURNING ` + bookColumns

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	deleted, err := scanBook(r.db.QueryRow(timeoutCtx, query, isbn))
	if err != nil {
		return Book{}, translate(err)
	}
	return deleted, nil
}

// translate maps driver errors onto the package's storage errors.
func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicate
		case pgCheckViolation:
			if pgErr.ConstraintName == PriceOrderConstraint {
				return ErrInvalidPrices
			}
		}
	}
	return fmt.Errorf("books: %w", err)
}

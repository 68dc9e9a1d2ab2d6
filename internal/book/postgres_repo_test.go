package book

import (
	"context"
	"testing"
	"time"

	"bookresale/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBooksTable(t *testing.T) *PostgresRepo {
	db := testutil.Postgres(t)
	_, err := db.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS books (
			isbn TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			authors TEXT[] NOT NULL DEFAULT '{}',
			categories TEXT[] NOT NULL DEFAULT '{}',
			published_date TEXT NOT NULL DEFAULT '',
			page_count INTEGER,
			source TEXT NOT NULL DEFAULT 'none',
			sell_price NUMERIC(10,2),
			highest_price NUMERIC(10,2),
			high_payout_company TEXT NOT NULL DEFAULT '',
			last_price_check TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT books_price_order CHECK (sell_price IS NULL OR highest_price IS NULL OR highest_price >= sell_price)
		)`)
	require.NoError(t, err)
	_, err = db.Exec(context.Background(), `TRUNCATE books`)
	require.NoError(t, err)
	return NewPostgresRepo(db, 2*time.Second)
}

func TestPostgresRepo_Lifecycle(t *testing.T) {
	repo := setupBooksTable(t)
	ctx := context.Background()
	pages := 256
	checked := time.Now().UTC().Truncate(time.Microsecond)

	created, err := repo.Create(ctx, Book{
		ISBN:              "9783446264328",
		Title:             "Tschick",
		Authors:           []string{"Wolfgang Herrndorf"},
		PageCount:         &pages,
		Source:            "google",
		SellPrice:         decimal.NewNullDecimal(dec("1.20")),
		HighestPrice:      decimal.NewNullDecimal(dec("3.40")),
		HighPayoutCompany: "rebuy",
		LastPriceCheck:    &checked,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{}, created.Categories)
	assert.True(t, created.SellPrice.Decimal.Equal(dec("1.2")))
	require.NotNil(t, created.PageCount)
	assert.Equal(t, 256, *created.PageCount)

	_, err = repo.Create(ctx, Book{ISBN: "9783446264328", Source: "none"})
	assert.ErrorIs(t, err, ErrDuplicate)

	high := dec("5.00")
	updated, err := repo.Update(ctx, "9783446264328", PriceUpdate{HighestPrice: &high})
	require.NoError(t, err)
	assert.Equal(t, "Tschick", updated.Title)
	assert.True(t, updated.SellPrice.Decimal.Equal(dec("1.2")))
	assert.True(t, updated.HighestPrice.Decimal.Equal(high))

	low := dec("0.50")
	_, err = repo.Update(ctx, "9783446264328", PriceUpdate{HighestPrice: &low})
	assert.ErrorIs(t, err, ErrInvalidPrices)

	books, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)

	_, err = repo.Delete(ctx, "9783446264328")
	require.NoError(t, err)

	_, err = repo.Get(ctx, "9783446264328")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Update(ctx, "9783446264328", PriceUpdate{HighestPrice: &high})
	assert.ErrorIs(t, err, ErrNotFound)
}

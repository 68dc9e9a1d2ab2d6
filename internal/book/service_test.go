package book

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *MockRepository, *MockResolver) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	resolver := NewMockResolver(ctrl)
	return NewService(repo, resolver, nil), repo, resolver
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves and stores", func(t *testing.T) {
		svc, repo, resolver := newTestService(t)
		resolved := Book{
			ISBN:              "9783446264328",
			Title:             "Tschick",
			Authors:           []string{"Wolfgang Herrndorf"},
			Source:            "google",
			SellPrice:         decimal.NewNullDecimal(dec("1.20")),
			HighestPrice:      decimal.NewNullDecimal(dec("3.40")),
			HighPayoutCompany: "rebuy",
		}

		gomock.InOrder(
			repo.EXPECT().Get(gomock.Any(), "9783446264328").Return(Book{}, ErrNotFound),
			resolver.EXPECT().Resolve(gomock.Any(), "9783446264328").Return(resolved, nil),
			repo.EXPECT().Create(gomock.Any(), resolved).Return(resolved, nil),
		)

		got, err := svc.Create(ctx, "9783446264328")
		require.NoError(t, err)
		assert.Equal(t, "Tschick", got.Title)
	})

	t.Run("surrounding whitespace is trimmed before lookup and storage", func(t *testing.T) {
		svc, repo, resolver := newTestService(t)
		resolved := Book{ISBN: "9780140449136", Source: "openlibrary"}

		gomock.InOrder(
			repo.EXPECT().Get(gomock.Any(), "9780140449136").Return(Book{}, ErrNotFound),
			resolver.EXPECT().Resolve(gomock.Any(), "9780140449136").Return(resolved, nil),
			repo.EXPECT().Create(gomock.Any(), resolved).Return(resolved, nil),
		)

		got, err := svc.Create(ctx, "  9780140449136 \n")
		require.NoError(t, err)
		assert.Equal(t, "9780140449136", got.ISBN)
	})

	t.Run("duplicate makes no external call", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		repo.EXPECT().Get(gomock.Any(), "123").Return(Book{ISBN: "123"}, nil)

		_, err := svc.Create(ctx, "123")
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("blank isbn rejected before any call", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, err := svc.Create(ctx, "   ")
		assert.ErrorIs(t, err, ErrInvalidISBN)
	})

	t.Run("storage conflict from a racing create", func(t *testing.T) {
		svc, repo, resolver := newTestService(t)
		repo.EXPECT().Get(gomock.Any(), "123").Return(Book{}, ErrNotFound)
		resolver.EXPECT().Resolve(gomock.Any(), "123").Return(Book{ISBN: "123"}, nil)
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(Book{}, ErrDuplicate)

		_, err := svc.Create(ctx, "123")
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("storage failure is not a conflict", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		repo.EXPECT().Get(gomock.Any(), "123").Return(Book{}, errors.New("connection refused"))

		_, err := svc.Create(ctx, "123")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrDuplicate))
		assert.False(t, errors.Is(err, ErrNotFound))
	})
}

func TestService_RefreshPrice(t *testing.T) {
	ctx := context.Background()
	checked := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("writes only price fields", func(t *testing.T) {
		svc, repo, resolver := newTestService(t)
		stored := Book{ISBN: "123", Title: "Kept", Description: "kept too"}

		repo.EXPECT().Get(gomock.Any(), "123").Return(stored, nil)
		resolver.EXPECT().ResolvePrices(gomock.Any(), "123").Return(Prices{
			SellPrice:         decimal.NewNullDecimal(dec("2.00")),
			HighestPrice:      decimal.NewNullDecimal(dec("5.00")),
			HighPayoutCompany: "momox",
			LastPriceCheck:    checked,
		}, nil)
		repo.EXPECT().Update(gomock.Any(), "123", gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, u PriceUpdate) (Book, error) {
				require.NotNil(t, u.SellPrice)
				require.NotNil(t, u.HighestPrice)
				require.NotNil(t, u.HighPayoutCompany)
				assert.True(t, u.SellPrice.Equal(dec("2")))
				assert.True(t, u.HighestPrice.Equal(dec("5")))
				assert.Equal(t, "momox", *u.HighPayoutCompany)
				assert.Equal(t, checked, *u.LastPriceCheck)
				return u.Apply(stored), nil
			})

		prices, err := svc.RefreshPrice(ctx, "123")
		require.NoError(t, err)
		assert.True(t, prices.Found())
	})

	t.Run("no offers only moves the check time", func(t *testing.T) {
		svc, repo, resolver := newTestService(t)

		repo.EXPECT().Get(gomock.Any(), "123").Return(Book{ISBN: "123"}, nil)
		resolver.EXPECT().ResolvePrices(gomock.Any(), "123").Return(Prices{LastPriceCheck: checked}, nil)
		repo.EXPECT().Update(gomock.Any(), "123", PriceUpdate{LastPriceCheck: &checked}).Return(Book{ISBN: "123"}, nil)

		prices, err := svc.RefreshPrice(ctx, "123")
		require.NoError(t, err)
		assert.False(t, prices.Found())
	})

	t.Run("unknown isbn", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		repo.EXPECT().Get(gomock.Any(), "404").Return(Book{}, ErrNotFound)

		_, err := svc.RefreshPrice(ctx, "404")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestService_UpdatePrices(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects highest below sell after merge", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		repo.EXPECT().Get(gomock.Any(), "123").Return(Book{
			ISBN:         "123",
			SellPrice:    decimal.NewNullDecimal(dec("4.00")),
			HighestPrice: decimal.NewNullDecimal(dec("6.00")),
		}, nil)

		low := dec("3.00")
		_, err := svc.UpdatePrices(ctx, "123", PriceUpdate{HighestPrice: &low})
		assert.ErrorIs(t, err, ErrInvalidPrices)
	})

	t.Run("stamps check time when absent", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return fixed }

		repo.EXPECT().Get(gomock.Any(), "123").Return(Book{ISBN: "123"}, nil)
		repo.EXPECT().Update(gomock.Any(), "123", gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, u PriceUpdate) (Book, error) {
				require.NotNil(t, u.LastPriceCheck)
				assert.Equal(t, fixed, *u.LastPriceCheck)
				return Book{ISBN: "123"}, nil
			})

		sell := dec("1.00")
		_, err := svc.UpdatePrices(ctx, "123", PriceUpdate{SellPrice: &sell})
		require.NoError(t, err)
	})
}

func TestService_Exists(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	repo.EXPECT().Get(gomock.Any(), "1").Return(Book{ISBN: "1"}, nil)
	repo.EXPECT().Get(gomock.Any(), "2").Return(Book{}, ErrNotFound)

	ok, err := svc.Exists(ctx, "1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(ctx, "2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Exists(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidISBN)
}

func TestService_RefreshStale(t *testing.T) {
	ctx := context.Background()
	svc, repo, resolver := newTestService(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	fresh := now.Add(-time.Hour)
	stale := now.Add(-48 * time.Hour)
	books := []Book{
		{ISBN: "fresh", LastPriceCheck: &fresh},
		{ISBN: "stale", LastPriceCheck: &stale},
		{ISBN: "never"},
		{ISBN: "broken"},
	}

	repo.EXPECT().List(gomock.Any()).Return(books, nil)
	for _, isbn := range []string{"stale", "never"} {
		repo.EXPECT().Get(gomock.Any(), isbn).Return(Book{ISBN: isbn}, nil)
		resolver.EXPECT().ResolvePrices(gomock.Any(), isbn).Return(Prices{LastPriceCheck: now}, nil)
		repo.EXPECT().Update(gomock.Any(), isbn, gomock.Any()).Return(Book{ISBN: isbn}, nil)
	}
	repo.EXPECT().Get(gomock.Any(), "broken").Return(Book{ISBN: "broken"}, nil)
	resolver.EXPECT().ResolvePrices(gomock.Any(), "broken").Return(Prices{}, errors.New("boom"))

	n, err := svc.RefreshStale(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

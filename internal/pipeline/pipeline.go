// Package pipeline resolves an ISBN into a complete book record by running the
// metadata resolver and the price aggregator side by side.
package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"bookresale/internal/book"
	"bookresale/internal/extract"
	"bookresale/internal/price"
)

type MetadataResolver interface {
	Resolve(ctx context.Context, isbn string) extract.Metadata
}

type PriceResolver interface {
	Resolve(ctx context.Context, isbn string) price.Result
}

// Pipeline implements book.Resolver.
type Pipeline struct {
	metadata MetadataResolver
	prices   PriceResolver
	logger   *slog.Logger
}

var _ book.Resolver = (*Pipeline)(nil)

func New(metadata MetadataResolver, prices PriceResolver, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		metadata: metadata,
		prices:   prices,
		logger:   logger.With("component", "pipeline"),
	}
}

// Resolve returns a record for isbn. Upstream failures never surface here;
// only a blank ISBN is an error.
func (p *Pipeline) Resolve(ctx context.Context, isbn string) (book.Book, error) {
	isbn, err := book.NormalizeISBN(isbn)
	if err != nil {
		return book.Book{}, err
	}

	var (
		meta extract.Metadata
		res  price.Result
		g    errgroup.Group
	)
	g.Go(func() error {
		meta = p.metadata.Resolve(ctx, isbn)
		return nil
	})
	g.Go(func() error {
		res = p.prices.Resolve(ctx, isbn)
		return nil
	})
	_ = g.Wait()

	b := merge(isbn, meta, res)
	p.logger.Info("isbn resolved",
		"isbn", isbn,
		"source", b.Source,
		"priced", res.Found(),
	)
	return b, nil
}

// ResolvePrices runs only the price side, for refreshes and previews.
func (p *Pipeline) ResolvePrices(ctx context.Context, isbn string) (book.Prices, error) {
	isbn, err := book.NormalizeISBN(isbn)
	if err != nil {
		return book.Prices{}, err
	}
	return toPrices(p.prices.Resolve(ctx, isbn)), nil
}

func merge(isbn string, m extract.Metadata, res price.Result) book.Book {
	checked := res.CheckedAt
	source := m.Source
	if source == "" {
		source = extract.SourceNone
	}
	authors, categories := m.Authors, m.Categories
	if authors == nil {
		authors = []string{}
	}
	if categories == nil {
		categories = []string{}
	}
	return book.Book{
		ISBN:              isbn,
		Title:             m.Title,
		ImageURL:          m.ImageURL,
		Description:       m.Description,
		Authors:           authors,
		Categories:        categories,
		PublishedDate:     m.PublishedDate,
		PageCount:         m.PageCount,
		Source:            string(source),
		SellPrice:         res.SellPrice,
		HighestPrice:      res.HighestPrice,
		HighPayoutCompany: res.HighPayoutCompany,
		LastPriceCheck:    &checked,
	}
}

func toPrices(res price.Result) book.Prices {
	p := book.Prices{
		SellPrice:         res.SellPrice,
		HighestPrice:      res.HighestPrice,
		HighPayoutCompany: res.HighPayoutCompany,
		LastPriceCheck:    res.CheckedAt,
	}
	for _, q := range res.Quotes {
		p.Quotes = append(p.Quotes, book.Quote{Vendor: q.Vendor, Price: q.Price})
	}
	return p
}

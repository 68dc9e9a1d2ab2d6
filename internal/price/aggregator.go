package price

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"bookresale/internal/deadline"
	"bookresale/internal/extract"
)

// Shape tells the extraction engine how to read a vendor payload.
type Shape string

const (
	ShapeConditionJSON Shape = "condition_json"
	ShapeMarkup        Shape = "markup"
)

// Vendor is one external buy-back offer source.
type Vendor interface {
	Name() string
	Shape() Shape
	Lookup(ctx context.Context, isbn string) ([]byte, error)
}

// Pacer is implemented by vendors behind a rate limited upstream. Pace blocks
// until a request may be sent; the vendor timeout starts after it returns.
type Pacer interface {
	Pace(ctx context.Context) (context.Context, error)
}

// VendorQuote is one vendor's single best offer for one ISBN.
type VendorQuote struct {
	Vendor string          `json:"vendor"`
	Price  decimal.Decimal `json:"price"`
}

// Result is the aggregate over every vendor that answered in time.
type Result struct {
	SellPrice         decimal.NullDecimal
	HighestPrice      decimal.NullDecimal
	HighPayoutCompany string
	Quotes            []VendorQuote
	CheckedAt         time.Time
}

// Found reports whether at least one vendor produced a quote.
func (r Result) Found() bool {
	return len(r.Quotes) > 0
}

// Aggregate reduces quotes, given in registry order, to sell/highest prices.
// Ties on the highest price go to the earliest vendor.
func Aggregate(quotes []VendorQuote) Result {
	if len(quotes) == 0 {
		return Result{}
	}
	low, high := quotes[0], quotes[0]
	for _, q := range quotes[1:] {
		if q.Price.GreaterThan(high.Price) {
			high = q
		}
		if q.Price.LessThan(low.Price) {
			low = q
		}
	}
	return Result{
		SellPrice:         decimal.NewNullDecimal(low.Price),
		HighestPrice:      decimal.NewNullDecimal(high.Price),
		HighPayoutCompany: high.Vendor,
		Quotes:            quotes,
	}
}

type Aggregator struct {
	vendors []Vendor
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewAggregator keeps vendors in the given order; that order decides ties.
func NewAggregator(vendors []Vendor, timeout time.Duration, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		vendors: vendors,
		timeout: timeout,
		logger:  logger.With("component", "price_aggregator"),
		now:     time.Now,
	}
}

// Resolve asks every vendor concurrently. A vendor that fails, times out or
// answers garbage is left out; an empty aggregate is a valid outcome.
func (a *Aggregator) Resolve(ctx context.Context, isbn string) Result {
	checkedAt := a.now()
	slots := make([]*VendorQuote, len(a.vendors))

	var g errgroup.Group
	for i, v := range a.vendors {
		g.Go(func() error {
			q, ok := a.quote(ctx, v, isbn)
			if ok {
				slots[i] = &q
			}
			return nil
		})
	}
	_ = g.Wait()

	quotes := make([]VendorQuote, 0, len(slots))
	for _, q := range slots {
		if q != nil {
			quotes = append(quotes, *q)
		}
	}

	res := Aggregate(quotes)
	res.CheckedAt = checkedAt
	if res.Found() {
		a.logger.Info("prices resolved",
			"isbn", isbn,
			"quotes", len(quotes),
			"vendors", len(a.vendors),
			"sell_price", res.SellPrice.Decimal.String(),
			"highest_price", res.HighestPrice.Decimal.String(),
			"high_payout_company", res.HighPayoutCompany,
		)
	} else {
		a.logger.Info("no price available", "isbn", isbn, "vendors", len(a.vendors))
	}
	return res
}

func (a *Aggregator) quote(ctx context.Context, v Vendor, isbn string) (VendorQuote, bool) {
	log := a.logger.With("vendor", v.Name(), "isbn", isbn)

	if p, ok := v.(Pacer); ok {
		paced, err := p.Pace(ctx)
		if err != nil {
			log.Warn("vendor not called", "error", err)
			return VendorQuote{}, false
		}
		ctx = paced
	}

	payload, err := deadline.Call(ctx, a.timeout, func(ctx context.Context) ([]byte, error) {
		return v.Lookup(ctx, isbn)
	})
	if err != nil {
		log.Warn("vendor unavailable", "error", err)
		return VendorQuote{}, false
	}

	q, ok := Normalize(v, payload)
	if !ok {
		log.Debug("vendor returned no usable price")
	}
	return q, ok
}

// Normalize turns a vendor payload into a quote according to the vendor's shape.
func Normalize(v Vendor, payload []byte) (VendorQuote, bool) {
	switch v.Shape() {
	case ShapeConditionJSON:
		cq, ok := extract.ParseConditionQuote(payload, v.Name())
		if !ok {
			return VendorQuote{}, false
		}
		return VendorQuote{Vendor: cq.VendorName, Price: cq.Best}, true
	case ShapeMarkup:
		ex, ok := extract.ExtractPriceFromHTML(payload)
		if !ok {
			return VendorQuote{}, false
		}
		return VendorQuote{Vendor: v.Name(), Price: ex.Range.High}, true
	default:
		return VendorQuote{}, false
	}
}

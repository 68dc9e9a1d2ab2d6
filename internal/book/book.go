package book

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no book exists for an ISBN.
	ErrNotFound = errors.New("book not found")
	// ErrDuplicate is returned when creating a book whose ISBN is already stored.
	ErrDuplicate = errors.New("book already exists")
	// ErrInvalidISBN is returned for a missing or blank ISBN.
	ErrInvalidISBN = errors.New("isbn is required")
	// ErrInvalidPrices is returned when a write would put highest price below sell price.
	ErrInvalidPrices = errors.New("highest price must not be lower than sell price")
)

// Book is a tracked secondhand book with its metadata and latest price check.
type Book struct {
	ISBN              string              `json:"isbn"`
	Title             string              `json:"title,omitempty"`
	ImageURL          string              `json:"image_url,omitempty"`
	Description       string              `json:"description,omitempty"`
	Authors           []string            `json:"authors"`
	Categories        []string            `json:"categories"`
	PublishedDate     string              `json:"published_date,omitempty"`
	PageCount         *int                `json:"page_count,omitempty"`
	Source            string              `json:"source"`
	SellPrice         decimal.NullDecimal `json:"sell_price"`
	HighestPrice      decimal.NullDecimal `json:"highest_price"`
	HighPayoutCompany string              `json:"high_payout_company,omitempty"`
	LastPriceCheck    *time.Time          `json:"last_price_check,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// Quote is one vendor offer, exposed only through price previews.
type Quote struct {
	Vendor string          `json:"vendor"`
	Price  decimal.Decimal `json:"price"`
}

// Prices is the outcome of one price resolution.
type Prices struct {
	SellPrice         decimal.NullDecimal `json:"sell_price"`
	HighestPrice      decimal.NullDecimal `json:"highest_price"`
	HighPayoutCompany string              `json:"high_payout_company,omitempty"`
	LastPriceCheck    time.Time           `json:"last_price_check"`
	Quotes            []Quote             `json:"quotes,omitempty"`
}

// Found reports whether any vendor made an offer.
func (p Prices) Found() bool {
	return p.SellPrice.Valid || p.HighestPrice.Valid
}

// PriceUpdate carries the price fields to overwrite. Nil fields are left as stored.
type PriceUpdate struct {
	SellPrice         *decimal.Decimal
	HighestPrice      *decimal.Decimal
	HighPayoutCompany *string
	LastPriceCheck    *time.Time
}

// UpdateFromPrices builds the write for a refresh. When nothing was found only
// the check time moves; the previous offer stays visible.
func UpdateFromPrices(p Prices) PriceUpdate {
	checked := p.LastPriceCheck
	u := PriceUpdate{LastPriceCheck: &checked}
	if !p.Found() {
		return u
	}
	if p.SellPrice.Valid {
		sell := p.SellPrice.Decimal
		u.SellPrice = &sell
	}
	if p.HighestPrice.Valid {
		high := p.HighestPrice.Decimal
		u.HighestPrice = &high
	}
	company := p.HighPayoutCompany
	u.HighPayoutCompany = &company
	return u
}

// Apply returns b with the update's non-nil fields written over it.
func (u PriceUpdate) Apply(b Book) Book {
	if u.SellPrice != nil {
		b.SellPrice = decimal.NewNullDecimal(*u.SellPrice)
	}
	if u.HighestPrice != nil {
		b.HighestPrice = decimal.NewNullDecimal(*u.HighestPrice)
	}
	if u.HighPayoutCompany != nil {
		b.HighPayoutCompany = *u.HighPayoutCompany
	}
	if u.LastPriceCheck != nil {
		t := *u.LastPriceCheck
		b.LastPriceCheck = &t
	}
	return b
}

// ValidateISBN rejects blank ISBNs. Anything else is passed to the providers
// as given.
func ValidateISBN(isbn string) error {
	if strings.TrimSpace(isbn) == "" {
		return ErrInvalidISBN
	}
	return nil
}

// NormalizeISBN trims surrounding whitespace so the stored key matches what
// the providers are asked for, and rejects what is left if it is blank.
func NormalizeISBN(isbn string) (string, error) {
	isbn = strings.TrimSpace(isbn)
	if err := ValidateISBN(isbn); err != nil {
		return "", err
	}
	return isbn, nil
}

// ValidatePrices enforces highest >= sell when both are present.
func ValidatePrices(sell, highest decimal.NullDecimal) error {
	if sell.Valid && highest.Valid && highest.Decimal.LessThan(sell.Decimal) {
		return ErrInvalidPrices
	}
	return nil
}

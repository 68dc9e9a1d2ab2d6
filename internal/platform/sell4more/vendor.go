// Package sell4more talks to the sell4more buy-back comparison service, which
// fronts several resale vendors behind one product API and one search page.
package sell4more

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"bookresale/internal/platform/fetch"
	"bookresale/internal/price"
)

const (
	DefaultAPIBaseURL = "https://api.sell4more.de:8443"
	DefaultWebBaseURL = "https://app.sell4more.de"
	WebVendorName     = "sell4more"
)

// DefaultVendors is the reference registry, in tie-break order.
var DefaultVendors = []string{
	"buchmaxe",
	"konsolenbude",
	"sellorado",
	"rebuy",
	"studibuch",
	"momox",
}

// APIVendor quotes one vendor through the product API, which answers with
// prices per condition grade.
type APIVendor struct {
	fetcher *fetch.Client
	baseURL string
	vendor  string
}

func NewAPIVendor(fetcher *fetch.Client, baseURL, vendor string) *APIVendor {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &APIVendor{fetcher: fetcher, baseURL: baseURL, vendor: vendor}
}

func (v *APIVendor) Name() string { return v.vendor }
func (v *APIVendor) Shape() price.Shape { return price.ShapeConditionJSON }

func (v *APIVendor) Pace(ctx context.Context) (context.Context, error) {
	return v.fetcher.Reserve(ctx)
}

func (v *APIVendor) Lookup(ctx context.Context, isbn string) ([]byte, error) {
	q := url.Values{}
	q.Set("ean", isbn)
	q.Set("vendor", v.vendor)
	u := fmt.Sprintf("%s/api/product?%s", v.baseURL, q.Encode())

	body, err := v.fetcher.Get(ctx, u, http.Header{"Accept": {"application/json"}})
	if err != nil {
		return nil, fmt.Errorf("%s quote %s: %w", v.vendor, isbn, err)
	}
	return body, nil
}

// WebVendor scrapes the public search page, which renders the aggregated
// buy-back range as markup.
type WebVendor struct {
	fetcher *fetch.Client
	baseURL string
}

func NewWebVendor(fetcher *fetch.Client, baseURL string) *WebVendor {
	if baseURL == "" {
		baseURL = DefaultWebBaseURL
	}
	return &WebVendor{fetcher: fetcher, baseURL: baseURL}
}

func (v *WebVendor) Name() string { return WebVendorName }
func (v *WebVendor) Shape() price.Shape { return price.ShapeMarkup }

func (v *WebVendor) Pace(ctx context.Context) (context.Context, error) {
	return v.fetcher.Reserve(ctx)
}

func (v *WebVendor) Lookup(ctx context.Context, isbn string) ([]byte, error) {
	u := fmt.Sprintf("%s/search/%s", v.baseURL, url.PathEscape(isbn))

	body, err := v.fetcher.Get(ctx, u, http.Header{
		"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
		"Accept-Language": {"de-DE,de;q=0.9,en;q=0.5"},
	})
	if err != nil {
		return nil, fmt.Errorf("%s search %s: %w", WebVendorName, isbn, err)
	}
	return body, nil
}

// Registry builds the vendor list for the price aggregator: one API vendor per
// name, in the given order, optionally followed by the search page scraper.
func Registry(fetcher *fetch.Client, apiBaseURL, webBaseURL string, names []string, withScraper bool) []price.Vendor {
	vendors := make([]price.Vendor, 0, len(names)+1)
	for _, name := range names {
		vendors = append(vendors, NewAPIVendor(fetcher, apiBaseURL, name))
	}
	if withScraper {
		vendors = append(vendors, NewWebVendor(fetcher, webBaseURL))
	}
	return vendors
}

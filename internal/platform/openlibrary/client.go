package openlibrary

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"bookresale/internal/extract"
	"bookresale/internal/platform/fetch"
)

const DefaultBaseURL = "https://openlibrary.org"

type Client struct {
	fetcher *fetch.Client
	baseURL string
}

func NewClient(fetcher *fetch.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{fetcher: fetcher, baseURL: baseURL}
}

func (c *Client) Source() extract.Source {
	return extract.SourceOpenLibrary
}

// Pace waits for the shared rate limiter before a lookup.
func (c *Client) Pace(ctx context.Context) (context.Context, error) {
	return c.fetcher.Reserve(ctx)
}

// Lookup returns the raw api/books?jscmd=data payload for isbn. The body is
// keyed by "ISBN:<isbn>" and is an empty object when the book is unknown.
func (c *Client) Lookup(ctx context.Context, isbn string) ([]byte, error) {
	u := fmt.Sprintf("%s/api/books?bibkeys=%s&jscmd=data&format=json",
		c.baseURL, url.QueryEscape("ISBN:"+isbn))

	body, err := c.fetcher.Get(ctx, u, http.Header{"Accept": {"application/json"}})
	if err != nil {
		return nil, fmt.Errorf("openlibrary lookup %s: %w", isbn, err)
	}
	return body, nil
}

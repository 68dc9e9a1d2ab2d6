package googlebooks

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"bookresale/internal/extract"
	"bookresale/internal/platform/fetch"
)

const DefaultBaseURL = "https://www.googleapis.com"

type Client struct {
	fetcher *fetch.Client
	baseURL string
	apiKey  string
}

// NewClient builds a Books API v1 client. apiKey is optional; anonymous
// requests share a much smaller quota.
func NewClient(fetcher *fetch.Client, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{fetcher: fetcher, baseURL: baseURL, apiKey: apiKey}
}

func (c *Client) Source() extract.Source {
	return extract.SourceGoogle
}

// Pace waits for the shared rate limiter before a lookup.
func (c *Client) Pace(ctx context.Context) (context.Context, error) {
	return c.fetcher.Reserve(ctx)
}

// Lookup returns the raw volumes search payload for an exact ISBN match.
func (c *Client) Lookup(ctx context.Context, isbn string) ([]byte, error) {
	q := url.Values{}
	q.Set("q", "isbn:"+isbn)
	q.Set("maxResults", "1")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	u := fmt.Sprintf("%s/books/v1/volumes?%s", c.baseURL, q.Encode())

	body, err := c.fetcher.Get(ctx, u, http.Header{"Accept": {"application/json"}})
	if err != nil {
		return nil, fmt.Errorf("google books lookup %s: %w", isbn, err)
	}
	return body, nil
}

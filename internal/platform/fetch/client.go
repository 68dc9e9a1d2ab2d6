package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// maxBodyBytes caps upstream payloads; vendor search pages are the largest.
const maxBodyBytes = 4 << 20

// StatusError reports a non-200 answer from an upstream service.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// Retryable reports whether the upstream asked us to come back later.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Config struct {
	UserAgent  string
	RPS        int
	MaxRetries int
	Timeout    time.Duration
}

// Client performs rate limited GET requests against one upstream host.
type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

func NewClient(cfg Config) *Client {
	rps := cfg.RPS
	if rps <= 0 {
		rps = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent:  cfg.UserAgent,
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
		maxRetries: cfg.MaxRetries,
		backoff:    time.Second,
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

type reservationKey struct{}

type reservation struct {
	client *Client
	spent  atomic.Bool
}

// Reserve blocks until the limiter grants a request slot and returns a context
// holding it. The next request c sends with that context, or one derived from
// it, spends the slot instead of queueing again.
func (c *Client) Reserve(ctx context.Context) (context.Context, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return ctx, err
	}
	return context.WithValue(ctx, reservationKey{}, &reservation{client: c}), nil
}

func (c *Client) wait(ctx context.Context) error {
	if r, ok := ctx.Value(reservationKey{}).(*reservation); ok && r.client == c && r.spent.CompareAndSwap(false, true) {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// Get fetches url and returns the raw body. Only 429 and 5xx answers are
// retried, and never past the deadline carried by ctx.
func (c *Client) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Backoff: 1s, 2s, 4s...
			backoff := time.Duration(1<<uint(i-1)) * c.backoff
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		body, err := c.do(ctx, url, header)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if se, ok := err.(*StatusError); ok && !se.Retryable() {
			return nil, err
		}
	}
	if c.maxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ue, ok := err.(*neturl.Error); ok {
			ue.URL = redactURL(ue.URL)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{URL: redactURL(url), StatusCode: resp.StatusCode}
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// redactURL hides API keys before a URL ends up in an error or a log line.
func redactURL(raw string) string {
	u, err := neturl.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if !q.Has("key") {
		return raw
	}
	q.Set("key", "***")
	u.RawQuery = q.Encode()
	return u.String()
}

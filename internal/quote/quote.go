// Package quote fetches the supplementary quote appended to some replies.
package quote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultURL serves {"quote": "..."}.
const DefaultURL = "https://api.kanye.rest/"

// Fallback is returned whenever a quote cannot be fetched.
const Fallback = "Kanye is beyond words."

// Client fetches quotes. Fetch never fails.
type Client struct {
	http   *resty.Client
	url    string
	logger *slog.Logger
}

// New creates a client for url.
func New(url string, logger *slog.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:   resty.New().SetTimeout(10 * time.Second),
		url:    url,
		logger: logger,
	}
}

type quoteResponse struct {
	Quote string `json:"quote"`
}

// Fetch returns a quote, or Fallback on any failure.
func (c *Client) Fetch(ctx context.Context) string {
	q, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn("failed to fetch quote", "error", err)
		return Fallback
	}
	if q == "" {
		return Fallback
	}
	return q
}

func (c *Client) fetch(ctx context.Context) (string, error) {
	var out quoteResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(c.url)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode())
	}
	return out.Quote, nil
}

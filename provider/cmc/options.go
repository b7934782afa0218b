package cmc

import (
	"log/slog"
	"net/http"

	"github.com/JeremyNoori/xdc-risk-monitor/retry"
)

type Option func(c *Client)

// WithBaseURL specifies the provider base endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient specifies the underlying HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithRetryPolicy specifies the backoff policy for required calls
func WithRetryPolicy(p *retry.Policy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithLogger specifies the logger for the client
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

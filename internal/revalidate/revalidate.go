// Package revalidate notifies the presentation layer's cache-invalidation
// endpoint after a successful publish.
package revalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dailywrap/pipeline/internal/retry"
)

// Client posts invalidated paths to the revalidation endpoint. Calls are
// best-effort from the pipeline's perspective; the caller decides whether a
// failure matters.
type Client struct {
	url         string
	secret      string
	client      *http.Client
	retryConfig retry.Config
}

// New builds a client for the endpoint. An empty url disables the client;
// Invalidate becomes a no-op.
func New(url, secret string) *Client {
	return &Client{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 30 * time.Second},
		retryConfig: retry.Config{
			MaxRetries: 2,
			BaseDelay:  1 * time.Second,
		},
	}
}

type revalidatePayload struct {
	Paths []string `json:"paths"`
}

// Invalidate posts the logical paths to revalidate, authenticated with the
// shared-secret bearer token.
func (c *Client) Invalidate(ctx context.Context, paths []string) error {
	if c.url == "" {
		return nil
	}

	body, err := json.Marshal(revalidatePayload{Paths: paths})
	if err != nil {
		return fmt.Errorf("revalidate: marshal payload: %w", err)
	}

	return retry.WithBackoff(ctx, c.retryConfig, func(ctx context.Context) error {
		return c.post(ctx, body)
	})
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("revalidate: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("revalidate: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("revalidate: unexpected status %d", resp.StatusCode)
	}
	return nil
}

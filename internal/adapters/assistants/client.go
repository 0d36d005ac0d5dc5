package assistants

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/advisim/advisim/internal/adapters/retry"
)

// client is a thin JSON HTTP client for an assistants-style API. Requests
// carry the bearer token and are retried per the shared backoff policy.
type client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	retryConfig retry.BackoffConfig
}

func newClient(baseURL, apiKey string) *client {
	return &client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:     baseURL,
		apiKey:      apiKey,
		retryConfig: retry.HTTPConfig(),
	}
}

func (c *client) do(ctx context.Context, method, endpoint string, payload, response any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var respBody []byte

	err := retry.WithBackoffHTTP(ctx, c.retryConfig, func() (int, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
		if err != nil {
			return 0, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp.StatusCode, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
		}
		return resp.StatusCode, nil
	})
	if err != nil {
		return err
	}

	if response != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, response); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *client) postJSON(ctx context.Context, endpoint string, payload, response any) error {
	return c.do(ctx, http.MethodPost, endpoint, payload, response)
}

func (c *client) getJSON(ctx context.Context, endpoint string, response any) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, response)
}

func (c *client) delete(ctx context.Context, endpoint string) error {
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	// MaxConcurrentRequests limits concurrent API requests to avoid overwhelming the API
	MaxConcurrentRequests = 5
	// DefaultTimeoutSeconds is the timeout applied to the shared http.Client
	DefaultTimeoutSeconds = 30
)

// HTTPClient interface for HTTP operations (allows mocking in tests).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// BaseClient contains the fields and request plumbing shared by the GitHub and
// Airtable clients.
type BaseClient struct {
	BaseURL    string
	Token      string
	HTTPClient HTTPClient
	// Headers are added to every request after the bearer token.
	Headers map[string]string
}

// NewBaseClient creates a new base client.
func NewBaseClient(config ClientConfig, httpClient HTTPClient) *BaseClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BaseClient{
		BaseURL:    config.BaseURL,
		Token:      config.Token,
		HTTPClient: httpClient,
		Headers:    map[string]string{},
	}
}

// DoJSON sends body (when non-nil) as JSON and decodes a 2xx response into result
// (when non-nil). Any other status becomes a *StatusError.
func (c *BaseClient) DoJSON(ctx context.Context, method, url string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	resp, err := c.Do(ctx, method, url, reader)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// DoRaw performs a GET and returns the whole response body.
func (c *BaseClient) DoRaw(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

// Do performs an authenticated request. The caller owns the body of a successful
// response; non-2xx responses are drained, closed and reported as *StatusError.
func (c *BaseClient) Do(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: string(data)}
	}

	return resp, nil
}

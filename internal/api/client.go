// Package api holds the transport pieces shared by the GitHub and Airtable clients.
package api

import (
	"fmt"
	"net/http"
	"time"
)

// ClientConfig holds common configuration for API clients.
type ClientConfig struct {
	BaseURL string
	Token   string
}

// StatusError reports a response whose status code is outside 2xx.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: API returned status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// NewHTTPClient returns the http.Client shared by every API client of a process.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeoutSeconds * time.Second,
	}
}

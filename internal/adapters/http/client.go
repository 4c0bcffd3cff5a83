package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ClareAI/astra-dialer-service/pkg/logger"
	"go.uber.org/zap"
)

// DefaultBaseURL is the call-control API root used when no override is configured.
const DefaultBaseURL = "https://api.videosdk.live/v2"

// APIError is returned for any non-2xx response from the call-control API.
// Retry decisions key off StatusCode; the message keeps the platform's
// "API request failed [<code>]" wording so existing log tooling still matches.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed [%d]: %s", e.StatusCode, e.Body)
}

// IsServerError reports whether the error is an APIError in the 5xx range.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode <= 599
}

// AsAPIError unwraps err into an *APIError if it is one.
func AsAPIError(err error) (*APIError, bool) {
	apiErr, ok := err.(*APIError)
	return apiErr, ok
}

// Client is the shared transport for the call-control API adapters.
// The Authorization header carries the raw token, not a Bearer scheme.
type Client struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
}

// NewClient creates a call-control API client. An empty baseURL falls back to
// the platform default.
func NewClient(baseURL, authToken string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:   baseURL,
		AuthToken: authToken,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// doJSON performs an API request and decodes the JSON response into out
// (skipped when out is nil). Non-2xx responses return *APIError.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, payload interface{}, out interface{}) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %v", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", c.AuthToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Base().Warn("call-control API error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %v", err)
	}
	return nil
}

// PageInfo is the pagination block returned by list endpoints.
type PageInfo struct {
	CurrentPage int `json:"currentPage"`
	PerPage     int `json:"perPage"`
	LastPage    int `json:"lastPage"`
	Total       int `json:"total"`
}

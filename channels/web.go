package channels

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultWebTimeout = 30 * time.Second

// WebClient is the production HTTPClient built on net/http.
type WebClient struct {
	httpClient *http.Client
}

type WebOption func(*WebClient)

func WithTimeout(timeout time.Duration) WebOption {
	return func(c *WebClient) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func WithHTTPClient(h *http.Client) WebOption {
	return func(c *WebClient) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func NewWebClient(opts ...WebOption) *WebClient {
	c := &WebClient{
		httpClient: &http.Client{Timeout: defaultWebTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *WebClient) Send(ctx context.Context, method, url string, headers map[string]string, body string) (int, string, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, string(raw), nil
}

var _ HTTPClient = (*WebClient)(nil)

package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
)

// Client posts JSON bodies to the daemon. Requests are never retried.
type Client struct {
	httpClient *http.Client
	userAgent  string
	calls      atomic.Int64
}

func New(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "coinctl/1.0",
	}
}

// Calls reports how many requests reached the transport.
func (c *Client) Calls() int64 {
	return c.calls.Load()
}

func (c *Client) Do(ctx context.Context, req *http.Request) ([]byte, error) {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.calls.Add(1)
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, mapNetError(ctx, err)
	}
	buf, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, mapNetError(ctx, readErr)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, clierr.New(clierr.CodeAuth, fmt.Sprintf("daemon rejected credentials (status %d)", resp.StatusCode))
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, clierr.New(clierr.CodeUnavailable, fmt.Sprintf("daemon unavailable (status %d)", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, clierr.New(clierr.CodeUnavailable, fmt.Sprintf("daemon returned unexpected status %d", resp.StatusCode))
	}
	if len(bytes.TrimSpace(buf)) == 0 {
		return nil, clierr.New(clierr.CodeDecode, "daemon returned empty response")
	}
	return buf, nil
}

func (c *Client) PostJSON(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.Do(ctx, req)
}

func mapNetError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return clierr.Wrap(clierr.CodeTimeout, "daemon request timed out", err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return clierr.Wrap(clierr.CodeTimeout, "daemon request timed out", err)
	}
	return clierr.Wrap(clierr.CodeUnavailable, "daemon request failed", err)
}

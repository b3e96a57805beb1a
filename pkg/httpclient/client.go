// Package httpclient implements the outbound HTTP collaborator used by
// api_call nodes.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/flowd-io/flowd/pkg/protocol"
)

const defaultTimeout = 30 * time.Second

// Client performs outbound HTTP calls with a per-request timeout.
type Client struct {
	client *http.Client
}

// NewClient creates a caller backed by a shared http.Client. Per-call
// timeouts are applied through the request context, not the client.
func NewClient() *Client {
	return &Client{
		client: &http.Client{},
	}
}

// Call executes a single HTTP request and returns the response regardless
// of status code. Only transport-level failures return an error.
func (c *Client) Call(ctx context.Context, req protocol.CallRequest) (*protocol.CallResponse, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if req.Body != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return &protocol.CallResponse{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
		Headers:    headers,
	}, nil
}

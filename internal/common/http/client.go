// Package http wraps the stdlib client with the timeout policy applied to
// every call the portal relays to the municipal backend. One wrapper, one
// timeout; per-request deadlines come from the caller's context.
package http

import (
	"context"
	"net/http"
	"time"
)

// Client is the timeout-bound HTTP client shared by the backend relay.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// DoWithContext binds the request to ctx so a cancelled citizen request also
// cancels the relayed backend call.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	return c.httpClient.Do(req)
}

package httpclient

import (
	"net/http"
	"time"
)

// Client is a thin wrapper around http.Client shared by the outbound
// API clients so timeouts are set in one place.
type Client struct {
	httpClient *http.Client
}

func New(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

package orders

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPChecker queries the shop backend's REST orders resource:
// GET {base}/orders/{id} answers 200 for a known order and 404 otherwise.
type HTTPChecker struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPChecker(baseURL, token string) *HTTPChecker {
	return &HTTPChecker{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPChecker) OrderExists(ctx context.Context, orderID string) (bool, error) {
	// PathEscape keeps dot segments, which would address a different resource.
	if orderID == "." || orderID == ".." {
		return false, nil
	}
	u := c.baseURL + "/orders/" + url.PathEscape(orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("order lookup: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("order lookup: unexpected status %s", resp.Status)
	}
}

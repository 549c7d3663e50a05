package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrProviderUnavailable is returned when the daily item service
// cannot be reached or answers with an error. Callers treat the item
// label as best-effort metadata and recover with an empty label.
var ErrProviderUnavailable = errors.New("daily item provider unavailable")

// DailyItem is the payload served by the daily item service.
type DailyItem struct {
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
}

// ItemProvider supplies the display item for new bids.
type ItemProvider interface {
	DailyItem(ctx context.Context) (*DailyItem, error)
}

// Client is an HTTP client for the daily item service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a daily item client. The timeout bounds the whole
// request so bid placement never waits on a stuck provider.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// DailyItem fetches today's item from the provider.
func (c *Client) DailyItem(ctx context.Context) (*DailyItem, error) {
	if c.baseURL == "" {
		return nil, ErrProviderUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/daily", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var item DailyItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	return &item, nil
}

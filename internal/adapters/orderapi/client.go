// Package orderapi provides the remote order API client.
// Clean Architecture: Adapter implementing ports.RemoteOrderClient
// against the store backend's order endpoints.
package orderapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yogateria/supportbot/internal/domain/entities"
)

// Client calls the store's order lookup endpoints. Requests carry the
// publishable API key header the storefront uses.
type Client struct {
	baseURL string
	pubKey  string
	client  *http.Client
	log     *zap.SugaredLogger
}

// NewClient creates a remote order client.
func NewClient(baseURL, publishableKey string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		pubKey:  publishableKey,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log.Sugar(),
	}
}

type orderResponse struct {
	Order *entities.Order `json:"order"`
}

type ordersResponse struct {
	Orders []entities.Order `json:"orders"`
}

func (c *Client) get(ctx context.Context, path string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.pubKey != "" {
		req.Header.Set("x-publishable-api-key", c.pubKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calling order API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
	}
	return resp.StatusCode, nil
}

// OrderByRef fetches one order. Internal IDs resolve directly; a direct
// miss falls back to the display-id query, scoped to the owner's email
// when one is known. Returns nil when the order cannot be found.
func (c *Client) OrderByRef(ctx context.Context, ref, email string) (*entities.Order, error) {
	var direct orderResponse
	status, err := c.get(ctx, "/"+url.PathEscape(ref), &direct)
	if err != nil {
		return nil, err
	}
	if status == http.StatusOK && direct.Order != nil {
		return direct.Order, nil
	}

	q := url.Values{}
	q.Set("display_id", ref)
	if email != "" {
		q.Set("email", email)
	}
	var byDisplay ordersResponse
	status, err = c.get(ctx, "?"+q.Encode(), &byDisplay)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || len(byDisplay.Orders) == 0 {
		c.log.Debugw("order not found", "ref", ref, "status", status)
		return nil, nil
	}
	return &byDisplay.Orders[0], nil
}

// OrdersByEmail fetches all orders belonging to an email address.
func (c *Client) OrdersByEmail(ctx context.Context, email string) ([]entities.Order, error) {
	q := url.Values{}
	q.Set("email", email)
	var resp ordersResponse
	status, err := c.get(ctx, "?"+q.Encode(), &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("order API returned status %d", status)
	}
	return resp.Orders, nil
}

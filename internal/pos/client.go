package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public POS exchange API.
const DefaultBaseURL = "https://api.ytimes.ru/ex"

var (
	// ErrNotConfigured is returned by every call when no API key is set.
	ErrNotConfigured = errors.New("pos: api key not configured")
	// ErrShopNotConfigured is returned when a call needs the storefront guid.
	ErrShopNotConfigured = errors.New("pos: shop guid not configured")
	// ErrEmptyOrderResponse is returned when /order/save succeeds without rows.
	ErrEmptyOrderResponse = errors.New("pos: order/save returned no order")
)

// APIError is a transport-level or application-level POS failure.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("pos api error (%d): %s", e.StatusCode, e.Message)
	}
	return "pos api error: " + e.Message
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Rows    json.RawMessage `json:"rows"`
}

// Client talks to the POS exchange API for a single storefront.
type Client struct {
	baseURL  string
	apiKey   string
	shopGUID string
	http     *http.Client
}

// NewClient returns a Client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, apiKey, shopGUID string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		shopGUID: shopGUID,
		http:     &http.Client{Timeout: timeout},
	}
}

// ShopGUID returns the configured storefront guid.
func (c *Client) ShopGUID() string { return c.shopGUID }

// ListShops returns the storefronts of the account.
func (c *Client) ListShops(ctx context.Context) ([]Shop, error) {
	var rows []Shop
	if err := c.do(ctx, http.MethodGet, "/shop/list", nil, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// MenuGroups returns the flat v2 menu group tree of the storefront.
func (c *Client) MenuGroups(ctx context.Context) ([]Group, error) {
	q, err := c.shopQuery()
	if err != nil {
		return nil, err
	}
	var rows []Group
	if err := c.do(ctx, http.MethodGet, "/menu/v2/group/list", q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// MenuItems returns the full item catalog grouped by top-level menu.
func (c *Client) MenuItems(ctx context.Context) ([]MenuGroup, error) {
	q, err := c.shopQuery()
	if err != nil {
		return nil, err
	}
	var rows []MenuGroup
	if err := c.do(ctx, http.MethodGet, "/menu/item/list", q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Supplements returns the modifier catalog.
func (c *Client) Supplements(ctx context.Context) ([]SupplementCategory, error) {
	q, err := c.shopQuery()
	if err != nil {
		return nil, err
	}
	var rows []SupplementCategory
	if err := c.do(ctx, http.MethodGet, "/menu/supplement/list", q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// SaveOrder submits an order. It is never retried here: req.GUID is the
// idempotency key and the caller owns the retry decision.
func (c *Client) SaveOrder(ctx context.Context, req OrderRequest) (*SavedOrder, error) {
	if req.ShopGUID == "" {
		return nil, ErrShopNotConfigured
	}
	var rows []SavedOrder
	if err := c.do(ctx, http.MethodPost, "/order/save", nil, req, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyOrderResponse
	}
	return &rows[0], nil
}

func (c *Client) shopQuery() (url.Values, error) {
	if c.shopGUID == "" {
		return nil, ErrShopNotConfigured
	}
	return url.Values{"shopGuid": {c.shopGUID}}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, rows any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json;charset=UTF-8")
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("request %s: %v", path, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("read %s response: %v", path, err)}
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: string(raw)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed %s response: %v", path, err)}
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "unknown api error"
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if rows == nil || len(env.Rows) == 0 || string(env.Rows) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Rows, rows); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed %s rows: %v", path, err)}
	}
	return nil
}

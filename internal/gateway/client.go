// Package gateway is a client for the redirect payment gateway
// (YooKassa v3 payments API).
package gateway

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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the public payments API.
const DefaultBaseURL = "https://api.yookassa.ru/v3"

const maxDescription = 255

// Payment statuses reported by the gateway.
const (
	StatusPending           = "pending"
	StatusWaitingForCapture = "waiting_for_capture"
	StatusSucceeded         = "succeeded"
	StatusCanceled          = "canceled"
)

// ErrNotConfigured is returned when shop id or secret key is missing.
var ErrNotConfigured = errors.New("gateway: credentials not configured")

// APIError is a non-200 answer or a transport failure.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway api error (%d): %s", e.StatusCode, e.Message)
	}
	return "gateway api error: " + e.Message
}

// Amount is a money value in a currency. Value goes over the wire as a
// string with two decimals.
type Amount struct {
	Value    decimal.Decimal
	Currency string
}

type wireAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireAmount{Value: a.Value.StringFixed(2), Currency: a.Currency})
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var w wireAmount
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	v, err := decimal.NewFromString(w.Value)
	if err != nil {
		return fmt.Errorf("amount value: %w", err)
	}
	a.Value, a.Currency = v, w.Currency
	return nil
}

// Confirmation describes how the payer confirms the payment.
type Confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

// Payment is the gateway payment object.
type Payment struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Paid         bool              `json:"paid"`
	Amount       Amount            `json:"amount"`
	Description  string            `json:"description,omitempty"`
	Confirmation *Confirmation     `json:"confirmation,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// CreateRequest is the input of CreatePayment.
type CreateRequest struct {
	Amount      decimal.Decimal
	Description string
	ReturnURL   string
	Metadata    map[string]string
}

type createBody struct {
	Amount       Amount            `json:"amount"`
	Confirmation Confirmation      `json:"confirmation"`
	Description  string            `json:"description"`
	Capture      bool              `json:"capture"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Client calls the gateway with HTTP basic auth.
type Client struct {
	baseURL   string
	shopID    string
	secretKey string
	currency  string
	http      *http.Client
	newKey    func() string
}

// NewClient returns a Client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, shopID, secretKey, currency string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if currency == "" {
		currency = "RUB"
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		shopID:    strings.TrimSpace(shopID),
		secretKey: strings.TrimSpace(secretKey),
		currency:  currency,
		http:      &http.Client{Timeout: timeout},
		newKey:    uuid.NewString,
	}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c != nil && c.shopID != "" && c.secretKey != ""
}

// Description returns the payment description for total, capped at the
// gateway limit.
func Description(total decimal.Decimal) string {
	d := fmt.Sprintf("Заказ на %s ₽", total.StringFixed(2))
	if r := []rune(d); len(r) > maxDescription {
		d = string(r[:maxDescription])
	}
	return d
}

// CreatePayment creates an auto-captured redirect payment. Each call uses a
// fresh Idempotence-Key.
func (c *Client) CreatePayment(ctx context.Context, req CreateRequest) (*Payment, error) {
	desc := req.Description
	if r := []rune(desc); len(r) > maxDescription {
		desc = string(r[:maxDescription])
	}
	body := createBody{
		Amount:       Amount{Value: req.Amount, Currency: c.currency},
		Confirmation: Confirmation{Type: "redirect", ReturnURL: req.ReturnURL},
		Description:  desc,
		Capture:      true,
		Metadata:     req.Metadata,
	}
	var p Payment
	if err := c.do(ctx, http.MethodPost, "/payments", body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPayment fetches a payment by gateway id.
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var p Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.SetBasicAuth(c.shopID, c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotence-Key", c.newKey())
	}

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
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed %s response: %v", path, err)}
	}
	return nil
}

package payments

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/pos-orderflow/internal/orders"
)

// DefaultTTL is how long an unfinished pending payment stays readable.
const DefaultTTL = 48 * time.Hour

// PendingPayment is a priced cart snapshot waiting for its payment to
// complete. Items and Total never change after Put.
type PendingPayment struct {
	Token            string
	OwnerID          int64
	Items            []orders.CartItem
	Total            decimal.Decimal
	Client           orders.ClientInfo
	Comment          string
	CreatedAt        time.Time
	ExpiresAt        time.Time
	GatewayReference string
	ClaimedAt        *time.Time
}

// Expired reports whether the record is past its expiry at now.
func (p *PendingPayment) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

// NewToken returns a fresh 32 hex character payment token.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// record is the storage shape shared by both backends: money and nested
// values are kept as strings.
type record struct {
	Token            string    `dynamodbav:"payment_token"` // PK
	OwnerID          int64     `dynamodbav:"owner_id"`
	ItemsJSON        string    `dynamodbav:"items_json"`
	Total            string    `dynamodbav:"total"`
	ClientJSON       string    `dynamodbav:"client_json"`
	Comment          string    `dynamodbav:"comment"`
	CreatedAt        time.Time `dynamodbav:"created_at"`
	ExpiresAt        int64     `dynamodbav:"expires_at"` // TTL epoch seconds
	GatewayReference string    `dynamodbav:"gateway_reference,omitempty"`
	ClaimedAt        int64     `dynamodbav:"claimed_at,omitempty"` // epoch millis
}

func toRecord(p PendingPayment) (record, error) {
	items, err := json.Marshal(p.Items)
	if err != nil {
		return record{}, fmt.Errorf("marshal items: %w", err)
	}
	client, err := json.Marshal(p.Client)
	if err != nil {
		return record{}, fmt.Errorf("marshal client: %w", err)
	}
	r := record{
		Token:            p.Token,
		OwnerID:          p.OwnerID,
		ItemsJSON:        string(items),
		Total:            p.Total.String(),
		ClientJSON:       string(client),
		Comment:          p.Comment,
		CreatedAt:        p.CreatedAt.UTC(),
		ExpiresAt:        p.ExpiresAt.Unix(),
		GatewayReference: p.GatewayReference,
	}
	if p.ClaimedAt != nil {
		r.ClaimedAt = p.ClaimedAt.UnixMilli()
	}
	return r, nil
}

func (r record) toPending() (*PendingPayment, error) {
	p := &PendingPayment{
		Token:            r.Token,
		OwnerID:          r.OwnerID,
		Comment:          r.Comment,
		CreatedAt:        r.CreatedAt,
		ExpiresAt:        time.Unix(r.ExpiresAt, 0).UTC(),
		GatewayReference: r.GatewayReference,
	}
	if err := json.Unmarshal([]byte(r.ItemsJSON), &p.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if r.ClientJSON != "" {
		if err := json.Unmarshal([]byte(r.ClientJSON), &p.Client); err != nil {
			return nil, fmt.Errorf("unmarshal client: %w", err)
		}
	}
	total, err := decimal.NewFromString(r.Total)
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	p.Total = total
	if r.ClaimedAt != 0 {
		at := time.UnixMilli(r.ClaimedAt).UTC()
		p.ClaimedAt = &at
	}
	return p, nil
}

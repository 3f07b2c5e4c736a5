package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/pos-orderflow/internal/pos"
)

// Status is the POS-side lifecycle of a submitted order.
type Status string

// Order statuses. CREATED may move to ACCEPTED or CANCELLED; both are final.
const (
	StatusCreated   Status = pos.StatusCreated
	StatusAccepted  Status = pos.StatusAccepted
	StatusCancelled Status = pos.StatusCancelled
)

// ParseStatus maps a POS status string onto a known Status.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusCreated, StatusAccepted, StatusCancelled:
		return st, true
	}
	return "", false
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusCancelled
}

// Type is the fulfilment tag sent with an order.
type Type string

// Order types.
const (
	TypeToGo     Type = pos.OrderTypeToGo
	TypeDineIn   Type = pos.OrderTypeDineIn
	TypeDelivery Type = pos.OrderTypeDelivery
	TypePreOrder Type = pos.OrderTypePreOrder
)

// Valid reports whether t is a known order type.
func (t Type) Valid() bool {
	switch t {
	case TypeToGo, TypeDineIn, TypeDelivery, TypePreOrder:
		return true
	}
	return false
}

// CartItem is one cart line. UnitPrice already includes any client discount.
type CartItem struct {
	ItemID    string          `json:"menuItemGuid"`
	TypeID    string          `json:"menuTypeGuid,omitempty"`
	Modifiers map[string]int  `json:"supplementList"`
	UnitPrice decimal.Decimal `json:"priceWithDiscount"`
	Quantity  int             `json:"quantity"`
}

// MarshalJSON writes UnitPrice as a JSON number, the mini-app's format.
func (it CartItem) MarshalJSON() ([]byte, error) {
	type plain CartItem
	return json.Marshal(struct {
		plain
		UnitPrice json.Number `json:"priceWithDiscount"`
	}{plain(it), pos.JSONNumber(it.UnitPrice)})
}

// Subtotal is UnitPrice × Quantity.
func (it CartItem) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Total sums the subtotals of items.
func Total(items []CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}

// ClientInfo is the free-form contact block collected by the mini-app.
type ClientInfo struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Order is a ledger row: one per successful POS submission.
type Order struct {
	OrderID    string          `json:"order_id"`
	OwnerID    int64           `json:"owner_id"`
	Items      []CartItem      `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     Status          `json:"status"`
	POSOrderID string          `json:"pos_order_id"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

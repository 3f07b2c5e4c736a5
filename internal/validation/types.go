package validation

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/pos-orderflow/internal/orders"
)

// CartLine is one cart line as sent by the mini-app.
type CartLine struct {
	MenuItemGUID      string          `json:"menuItemGuid" validate:"required"`
	MenuTypeGUID      string          `json:"menuTypeGuid,omitempty"`
	SupplementList    map[string]int  `json:"supplementList,omitempty" validate:"omitempty,dive,keys,required,endkeys,gte=0"`
	PriceWithDiscount decimal.Decimal `json:"priceWithDiscount" validate:"gte=0"`
	Quantity          *int            `json:"quantity,omitempty" validate:"omitempty,min=1"` // defaults to 1
}

// ClientBlock is the optional contact data of the customer.
type ClientBlock struct {
	Name  string `json:"name,omitempty" validate:"max=200"`
	Phone string `json:"phone,omitempty" validate:"max=32"`
	Email string `json:"email,omitempty" validate:"max=254"`
}

// CheckoutRequest is the payload for POST /api/payment/prepare and
// POST /api/payment/create-inapp.
type CheckoutRequest struct {
	Items          []CartLine       `json:"items" validate:"required,min=1,dive"`
	TelegramUserID int64            `json:"telegramUserId" validate:"gte=0"`
	Client         ClientBlock      `json:"client"`
	Comment        string           `json:"comment" validate:"max=1000"`
	Total          *decimal.Decimal `json:"total,omitempty"` // optional; must match the items when present
}

// OrderRequest is the payload for POST /api/order.
type OrderRequest struct {
	CheckoutRequest
	Type      string           `json:"type,omitempty" validate:"omitempty,oneof=TOGO IN DELIVERY PRE_ORDER"`
	PaidValue *decimal.Decimal `json:"paidValue,omitempty" validate:"omitempty,gte=0"`
}

// OrderFromPaymentRequest is the payload for POST /api/order-from-payment.
type OrderFromPaymentRequest struct {
	PaymentToken string           `json:"payment_token" validate:"required,max=64"`
	PaidAmount   *decimal.Decimal `json:"paid_amount,omitempty" validate:"omitempty,gt=0"`

	// TelegramID overrides the stored owner when non-zero.
	TelegramID int64 `json:"telegram_id,omitempty" validate:"gte=0"`
}

// CartItems converts the lines into domain cart items.
func (r CheckoutRequest) CartItems() []orders.CartItem {
	out := make([]orders.CartItem, 0, len(r.Items))
	for _, l := range r.Items {
		qty := 1
		if l.Quantity != nil {
			qty = *l.Quantity
		}
		mods := l.SupplementList
		if mods == nil {
			mods = map[string]int{}
		}
		out = append(out, orders.CartItem{
			ItemID:    l.MenuItemGUID,
			TypeID:    l.MenuTypeGUID,
			Modifiers: mods,
			UnitPrice: l.PriceWithDiscount,
			Quantity:  qty,
		})
	}
	return out
}

// ClientInfo returns the trimmed contact block.
func (r CheckoutRequest) ClientInfo() orders.ClientInfo {
	return orders.ClientInfo{
		Name:  strings.TrimSpace(r.Client.Name),
		Phone: strings.TrimSpace(r.Client.Phone),
		Email: strings.TrimSpace(r.Client.Email),
	}
}

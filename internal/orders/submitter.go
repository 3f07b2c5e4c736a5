package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/pos-orderflow/internal/pos"
)

var (
	// ErrNoItems is returned when a submission carries an empty cart.
	ErrNoItems = errors.New("order has no items")
	// ErrInvalidType is returned for an unknown order type tag.
	ErrInvalidType = errors.New("unknown order type")
	// ErrLedgerWrite marks a submission that reached the POS but could not be
	// recorded locally. Submit returns the order alongside it.
	ErrLedgerWrite = errors.New("order submitted but ledger write failed")
)

// POSClient is the order-creation surface of the POS.
type POSClient interface {
	SaveOrder(ctx context.Context, req pos.OrderRequest) (*pos.SavedOrder, error)
}

// SubmitRequest is a resolved cart ready for the POS.
type SubmitRequest struct {
	OwnerID int64
	Items   []CartItem
	Total   decimal.Decimal
	Client  *ClientInfo
	Comment string
	Type    Type
	// PaidAmount is nil when the customer pays on pickup.
	PaidAmount *decimal.Decimal
}

// Submitter turns carts into POS orders and records them in the ledger.
type Submitter struct {
	pos      POSClient
	ledger   Ledger
	shopGUID string
	newKey   func() string
	nowFunc  func() time.Time
}

// NewSubmitter returns a Submitter for the given storefront.
func NewSubmitter(client POSClient, ledger Ledger, shopGUID string) *Submitter {
	return &Submitter{
		pos:      client,
		ledger:   ledger,
		shopGUID: shopGUID,
		newKey:   uuid.NewString,
		nowFunc:  time.Now,
	}
}

// Submit calls the POS exactly once with a fresh idempotency key. On success
// it writes one ledger row; on POS failure it writes nothing and returns the
// POS error wrapped.
func (s *Submitter) Submit(ctx context.Context, req SubmitRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}
	if req.Type == "" {
		req.Type = TypeToGo
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, req.Type)
	}
	if s.shopGUID == "" {
		return nil, pos.ErrShopNotConfigured
	}

	key := s.newKey()
	posReq := pos.OrderRequest{
		GUID:      key,
		ShopGUID:  s.shopGUID,
		Type:      string(req.Type),
		ItemList:  buildItemList(req.Items),
		Comment:   req.Comment,
		PaidValue: req.PaidAmount,
	}
	if req.Client != nil {
		c := NormalizeClient(*req.Client)
		posReq.Client = &c
	}
	if posReq.PaidValue != nil && posReq.PaidValue.IsZero() {
		posReq.PaidValue = nil
	}

	saved, err := s.pos.SaveOrder(ctx, posReq)
	if err != nil {
		return nil, fmt.Errorf("submit order %s: %w", key, err)
	}

	posOrderID := saved.GUID
	if posOrderID == "" {
		posOrderID = key
	}
	// Anything the POS reports outside the ledger's states is stored as
	// CREATED so the status webhook can still move it.
	status, ok := ParseStatus(saved.Status)
	if !ok {
		status = StatusCreated
	}

	now := s.nowFunc().UTC()
	order := Order{
		OrderID:    uuid.NewString(),
		OwnerID:    req.OwnerID,
		Items:      append([]CartItem(nil), req.Items...),
		TotalPrice: req.Total,
		Status:     status,
		POSOrderID: posOrderID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.ledger.Create(ctx, order); err != nil {
		log.Printf("[orders] pos order=%s accepted by POS but not recorded: %v", posOrderID, err)
		return &order, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}

	log.Printf("[orders] submitted pos_order=%s owner=%d total=%s status=%s", posOrderID, req.OwnerID, req.Total, status)
	return &order, nil
}

func buildItemList(items []CartItem) []pos.OrderItem {
	out := make([]pos.OrderItem, 0, len(items))
	for _, it := range items {
		mods := it.Modifiers
		if mods == nil {
			mods = map[string]int{}
		}
		out = append(out, pos.OrderItem{
			MenuItemGUID:      it.ItemID,
			MenuTypeGUID:      it.TypeID,
			SupplementList:    mods,
			PriceWithDiscount: it.UnitPrice,
			Quantity:          it.Quantity,
		})
	}
	return out
}

package orders

import (
	"context"
	"errors"
)

var (
	// ErrStatusMismatch is returned by UpdateStatus when the row is not in
	// the expected status (or does not exist).
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
	// ErrDuplicateOrder is returned by Create when pos_order_id already exists.
	ErrDuplicateOrder = errors.New("order with this pos_order_id already exists")
)

// Ledger records submitted orders keyed by the POS order id.
type Ledger interface {
	// Create inserts a new row.
	Create(ctx context.Context, o Order) error
	// Get returns the row for posOrderID, or (nil, nil) when unknown.
	Get(ctx context.Context, posOrderID string) (*Order, error)
	// UpdateStatus moves the row from expected to next and bumps updated_at.
	UpdateStatus(ctx context.Context, posOrderID string, expected, next Status) error
}

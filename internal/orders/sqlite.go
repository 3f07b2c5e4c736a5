package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// SQLiteLedger is a Ledger backed by the orders table of the service database.
type SQLiteLedger struct {
	db      *sql.DB
	nowFunc func() time.Time
}

// NewSQLiteLedger returns a ledger over an already migrated database.
func NewSQLiteLedger(db *sql.DB) *SQLiteLedger {
	return &SQLiteLedger{db: db, nowFunc: time.Now}
}

func (s *SQLiteLedger) Create(ctx context.Context, o Order) error {
	now := s.nowFunc().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (order_id, owner_id, items_json, total_price, status, pos_order_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderID, o.OwnerID, string(itemsJSON), o.TotalPrice.String(), string(o.Status), o.POSOrderID,
		o.CreatedAt.UTC().Format(time.RFC3339Nano), o.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *SQLiteLedger) Get(ctx context.Context, posOrderID string) (*Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT order_id, owner_id, items_json, total_price, status, pos_order_id, created_at, updated_at
		FROM orders WHERE pos_order_id = ?`, posOrderID)

	var (
		o                    Order
		itemsJSON, total     string
		status               string
		createdAt, updatedAt string
	)
	err := row.Scan(&o.OrderID, &o.OwnerID, &itemsJSON, &total, &status, &o.POSOrderID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}

	o.Status = Status(status)
	if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if o.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total_price: %w", err)
	}
	if o.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if o.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &o, nil
}

func (s *SQLiteLedger) UpdateStatus(ctx context.Context, posOrderID string, expected, next Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, updated_at = ?
		WHERE pos_order_id = ? AND status = ?`,
		string(next), s.nowFunc().UTC().Format(time.RFC3339Nano), posOrderID, string(expected),
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n == 0 {
		return ErrStatusMismatch
	}
	return nil
}

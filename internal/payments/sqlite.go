package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps pending payments in the pending_payments table of the
// service database. Every conditional write is a single UPDATE statement.
type SQLiteStore struct {
	db        *sql.DB
	ttlWindow time.Duration
	nowFunc   func() time.Time
}

// NewSQLiteStore returns a store over an already migrated database.
func NewSQLiteStore(db *sql.DB, ttlWindow time.Duration) *SQLiteStore {
	if ttlWindow <= 0 {
		ttlWindow = DefaultTTL
	}
	return &SQLiteStore{db: db, ttlWindow: ttlWindow, nowFunc: time.Now}
}

func (s *SQLiteStore) Put(ctx context.Context, p PendingPayment) error {
	now := s.nowFunc()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.ExpiresAt.IsZero() {
		p.ExpiresAt = p.CreatedAt.Add(s.ttlWindow)
	}
	rec, err := toRecord(p)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pending_payments
			(payment_token, owner_id, items_json, total, client_json, comment, created_at, expires_at, gateway_reference, claimed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Token, rec.OwnerID, rec.ItemsJSON, rec.Total, rec.ClientJSON, rec.Comment,
		rec.CreatedAt.Format(time.RFC3339Nano), rec.ExpiresAt, nullString(rec.GatewayReference), nullInt(rec.ClaimedAt),
	)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
			return ErrTokenExists
		}
		return fmt.Errorf("insert pending payment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, token string) (*PendingPayment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT payment_token, owner_id, items_json, total, client_json, comment, created_at, expires_at, gateway_reference, claimed_at
		FROM pending_payments
		WHERE payment_token = ? AND expires_at > ?`,
		token, s.nowFunc().Unix())

	var (
		rec       record
		createdAt string
		ref       sql.NullString
		claimed   sql.NullInt64
	)
	err := row.Scan(&rec.Token, &rec.OwnerID, &rec.ItemsJSON, &rec.Total, &rec.ClientJSON, &rec.Comment,
		&createdAt, &rec.ExpiresAt, &ref, &claimed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select pending payment: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	rec.GatewayReference = ref.String
	rec.ClaimedAt = claimed.Int64
	return rec.toPending()
}

func (s *SQLiteStore) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_payments WHERE payment_token = ?`, token); err != nil {
		return fmt.Errorf("delete pending payment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AttachGatewayReference(ctx context.Context, token, ref string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pending_payments SET gateway_reference = ?
		WHERE payment_token = ? AND expires_at > ? AND gateway_reference IS NULL`,
		ref, token, s.nowFunc().Unix())
	if err != nil {
		return fmt.Errorf("attach gateway reference: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("attach gateway reference: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.Get(ctx, token); err != nil {
		return err
	}
	return ErrReferenceAttached
}

func (s *SQLiteStore) Claim(ctx context.Context, token string, lease time.Duration) (*PendingPayment, error) {
	now := s.nowFunc()
	res, err := s.db.ExecContext(ctx, `
		UPDATE pending_payments SET claimed_at = ?
		WHERE payment_token = ? AND expires_at > ? AND (claimed_at IS NULL OR claimed_at < ?)`,
		now.UnixMilli(), token, now.Unix(), now.Add(-lease).UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("claim pending payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim pending payment: %w", err)
	}

	p, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrClaimed
	}
	return p, nil
}

func (s *SQLiteStore) Release(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE pending_payments SET claimed_at = NULL WHERE payment_token = ?`, token); err != nil {
		return fmt.Errorf("release pending payment: %w", err)
	}
	return nil
}

// PurgeExpired deletes records past expires_at and returns how many went.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pending_payments WHERE expires_at <= ?`, s.nowFunc().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

// RunJanitor purges expired records every interval until ctx is done.
func (s *SQLiteStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				log.Printf("[payments] purge expired failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[payments] purged %d expired pending payments", n)
			}
		}
	}
}

package payments

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/pos-orderflow/internal/orders"
	"github.com/imrishuroy/pos-orderflow/internal/sqlite"
)

type backend struct {
	store  Store
	setNow func(time.Time)
}

var t0 = time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)

func backends(t *testing.T) map[string]backend {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "pending.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sq := NewSQLiteStore(db, 48*time.Hour)
	sq.nowFunc = func() time.Time { return t0 }
	dy := NewDynamoStore(newSimpleMock(), "pending-table", 48*time.Hour)
	dy.nowFunc = func() time.Time { return t0 }

	return map[string]backend{
		"sqlite": {store: sq, setNow: func(now time.Time) { sq.nowFunc = func() time.Time { return now } }},
		"dynamo": {store: dy, setNow: func(now time.Time) { dy.nowFunc = func() time.Time { return now } }},
	}
}

func samplePending(token string) PendingPayment {
	return PendingPayment{
		Token:   token,
		OwnerID: 42,
		Items: []orders.CartItem{
			{ItemID: "latte", UnitPrice: decimal.RequireFromString("175"), Quantity: 2, Modifiers: map[string]int{"oat": 1}},
		},
		Total:   decimal.RequireFromString("350.00"),
		Client:  orders.ClientInfo{Name: "Ann", Phone: "+7 900 000-00-00"},
		Comment: "no sugar",
	}
}

func TestStore_PutGet(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := b.store.Put(ctx, samplePending("tok1")); err != nil {
				t.Fatalf("put: %v", err)
			}
			got, err := b.store.Get(ctx, "tok1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.OwnerID != 42 || !got.Total.Equal(decimal.RequireFromString("350")) {
				t.Fatalf("unexpected record: %+v", got)
			}
			if len(got.Items) != 1 || got.Items[0].Modifiers["oat"] != 1 || got.Items[0].Quantity != 2 {
				t.Fatalf("items not restored: %+v", got.Items)
			}
			if got.Client.Name != "Ann" || got.Comment != "no sugar" {
				t.Fatalf("client/comment not restored: %+v", got)
			}
			if !got.CreatedAt.Equal(t0) || !got.ExpiresAt.Equal(t0.Add(48*time.Hour)) {
				t.Fatalf("timestamps: created=%v expires=%v", got.CreatedAt, got.ExpiresAt)
			}
			if got.ClaimedAt != nil || got.GatewayReference != "" {
				t.Fatalf("fresh record should be unclaimed without reference: %+v", got)
			}

			if err := b.store.Put(ctx, samplePending("tok1")); !errors.Is(err, ErrTokenExists) {
				t.Fatalf("expected ErrTokenExists, got %v", err)
			}
			if _, err := b.store.Get(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_ = b.store.Put(ctx, samplePending("tok"))
			if err := b.store.Delete(ctx, "tok"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := b.store.Delete(ctx, "tok"); err != nil {
				t.Fatalf("second delete: %v", err)
			}
			if _, err := b.store.Get(ctx, "tok"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestStore_ExpiredReadsAsNotFound(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_ = b.store.Put(ctx, samplePending("tok"))
			b.setNow(t0.Add(48 * time.Hour))

			if _, err := b.store.Get(ctx, "tok"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("get: expected ErrNotFound, got %v", err)
			}
			if _, err := b.store.Claim(ctx, "tok", time.Minute); !errors.Is(err, ErrNotFound) {
				t.Fatalf("claim: expected ErrNotFound, got %v", err)
			}
			if err := b.store.AttachGatewayReference(ctx, "tok", "gw-1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("attach: expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_AttachGatewayReferenceOnce(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_ = b.store.Put(ctx, samplePending("tok"))

			if err := b.store.AttachGatewayReference(ctx, "tok", "gw-1"); err != nil {
				t.Fatalf("attach: %v", err)
			}
			if err := b.store.AttachGatewayReference(ctx, "tok", "gw-2"); !errors.Is(err, ErrReferenceAttached) {
				t.Fatalf("expected ErrReferenceAttached, got %v", err)
			}
			got, _ := b.store.Get(ctx, "tok")
			if got.GatewayReference != "gw-1" {
				t.Fatalf("reference overwritten: %q", got.GatewayReference)
			}
			if err := b.store.AttachGatewayReference(ctx, "missing", "gw-3"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_ClaimRelease(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_ = b.store.Put(ctx, samplePending("tok"))

			p, err := b.store.Claim(ctx, "tok", 2*time.Minute)
			if err != nil {
				t.Fatalf("claim: %v", err)
			}
			if p.ClaimedAt == nil || !p.Total.Equal(decimal.NewFromInt(350)) {
				t.Fatalf("claim should return the claimed record: %+v", p)
			}
			if _, err := b.store.Claim(ctx, "tok", 2*time.Minute); !errors.Is(err, ErrClaimed) {
				t.Fatalf("expected ErrClaimed, got %v", err)
			}

			if err := b.store.Release(ctx, "tok"); err != nil {
				t.Fatalf("release: %v", err)
			}
			if _, err := b.store.Claim(ctx, "tok", 2*time.Minute); err != nil {
				t.Fatalf("claim after release: %v", err)
			}

			// an abandoned claim can be taken over once the lease has passed
			b.setNow(t0.Add(3 * time.Minute))
			if _, err := b.store.Claim(ctx, "tok", 2*time.Minute); err != nil {
				t.Fatalf("takeover after lease: %v", err)
			}

			_ = b.store.Delete(ctx, "tok")
			if _, err := b.store.Claim(ctx, "tok", 2*time.Minute); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
			if err := b.store.Release(ctx, "tok"); err != nil {
				t.Fatalf("release of missing token: %v", err)
			}
		})
	}
}

func TestStore_ConcurrentClaimHasOneWinner(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_ = b.store.Put(ctx, samplePending("tok"))

			const callers = 8
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				wins    int
				claimed int
			)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := b.store.Claim(ctx, "tok", time.Minute)
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						wins++
					case errors.Is(err, ErrClaimed):
						claimed++
					default:
						t.Errorf("unexpected claim error: %v", err)
					}
				}()
			}
			wg.Wait()
			if wins != 1 || claimed != callers-1 {
				t.Fatalf("expected 1 winner and %d losers, got %d/%d", callers-1, wins, claimed)
			}
		})
	}
}

func TestSQLiteStore_PurgeExpired(t *testing.T) {
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "pending.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	s := NewSQLiteStore(db, time.Hour)
	s.nowFunc = func() time.Time { return t0 }
	ctx := context.Background()

	_ = s.Put(ctx, samplePending("old"))
	s.nowFunc = func() time.Time { return t0.Add(30 * time.Minute) }
	_ = s.Put(ctx, samplePending("new"))

	s.nowFunc = func() time.Time { return t0.Add(time.Hour) }
	n, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged row, got %d", n)
	}
	if _, err := s.Get(ctx, "new"); err != nil {
		t.Fatalf("unexpired record should survive: %v", err)
	}
}

func TestNewToken(t *testing.T) {
	a, b := NewToken(), NewToken()
	if len(a) != 32 || a == b {
		t.Fatalf("tokens should be distinct 32 char strings: %q %q", a, b)
	}
	for _, r := range a {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			t.Fatalf("token not hex: %q", a)
		}
	}
}

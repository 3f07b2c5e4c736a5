package checkout

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/pos-orderflow/internal/events"
	"github.com/imrishuroy/pos-orderflow/internal/gateway"
	"github.com/imrishuroy/pos-orderflow/internal/orders"
	"github.com/imrishuroy/pos-orderflow/internal/payments"
)

// memStore is an in-memory payments.Store.
type memStore struct {
	mu        sync.Mutex
	rows      map[string]payments.PendingPayment
	deleteErr error
}

func newMemStore() *memStore { return &memStore{rows: map[string]payments.PendingPayment{}} }

func (m *memStore) Put(ctx context.Context, p payments.PendingPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.Token]; ok {
		return payments.ErrTokenExists
	}
	m.rows[p.Token] = p
	return nil
}

func (m *memStore) Get(ctx context.Context, token string) (*payments.PendingPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[token]
	if !ok {
		return nil, payments.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.rows, token)
	return nil
}

func (m *memStore) AttachGatewayReference(ctx context.Context, token, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[token]
	if !ok {
		return payments.ErrNotFound
	}
	if p.GatewayReference != "" {
		return payments.ErrReferenceAttached
	}
	p.GatewayReference = ref
	m.rows[token] = p
	return nil
}

func (m *memStore) Claim(ctx context.Context, token string, lease time.Duration) (*payments.PendingPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[token]
	if !ok {
		return nil, payments.ErrNotFound
	}
	now := time.Now()
	if p.ClaimedAt != nil && now.Sub(*p.ClaimedAt) < lease {
		return nil, payments.ErrClaimed
	}
	p.ClaimedAt = &now
	m.rows[token] = p
	return &p, nil
}

func (m *memStore) Release(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.rows[token]; ok {
		p.ClaimedAt = nil
		m.rows[token] = p
	}
	return nil
}

func (m *memStore) has(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[token]
	return ok
}

// fakeSubmitter records submissions. gate, when set, blocks every Submit
// until it is closed.
type fakeSubmitter struct {
	mu       sync.Mutex
	calls    int32
	requests []orders.SubmitRequest
	err      error
	ledgerKO bool
	gate     chan struct{}
	entered  chan struct{}
}

func (f *fakeSubmitter) Submit(ctx context.Context, req orders.SubmitRequest) (*orders.Order, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	o := &orders.Order{
		OrderID:    "local-1",
		OwnerID:    req.OwnerID,
		Items:      req.Items,
		TotalPrice: req.Total,
		Status:     orders.StatusCreated,
		POSOrderID: "pos-guid-1",
	}
	if f.ledgerKO {
		return o, fmt.Errorf("%w: disk full", orders.ErrLedgerWrite)
	}
	return o, nil
}

func (f *fakeSubmitter) count() int { return int(atomic.LoadInt32(&f.calls)) }

type fakeGateway struct {
	configured bool
	created    *gateway.Payment
	createErr  error
	status     string
	getErr     error
	lastCreate gateway.CreateRequest
	getIDs     []string
}

func (g *fakeGateway) Configured() bool { return g.configured }

func (g *fakeGateway) CreatePayment(ctx context.Context, req gateway.CreateRequest) (*gateway.Payment, error) {
	g.lastCreate = req
	if g.createErr != nil {
		return nil, g.createErr
	}
	return g.created, nil
}

func (g *fakeGateway) GetPayment(ctx context.Context, id string) (*gateway.Payment, error) {
	g.getIDs = append(g.getIDs, id)
	if g.getErr != nil {
		return nil, g.getErr
	}
	return &gateway.Payment{ID: id, Status: g.status}, nil
}

type recordingEmitter struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recordingEmitter) Emit(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev)
}

func (r *recordingEmitter) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, ev := range r.got {
		out = append(out, ev.Type)
	}
	return out
}

func cart350() Cart {
	return Cart{
		OwnerID: 1001,
		Items: []orders.CartItem{
			{ItemID: "cappuccino", TypeID: "size-m", UnitPrice: decimal.RequireFromString("175.00"), Quantity: 2},
		},
		Client:  orders.ClientInfo{Name: "Ivan", Phone: "8 (900) 123-45-67"},
		Comment: "  to go  ",
	}
}

func okGateway() *fakeGateway {
	return &fakeGateway{
		configured: true,
		created: &gateway.Payment{
			ID:           "gw-pay-1",
			Status:       gateway.StatusPending,
			Confirmation: &gateway.Confirmation{Type: "redirect", ConfirmationURL: "https://pay.example/c/1"},
		},
		status: gateway.StatusSucceeded,
	}
}

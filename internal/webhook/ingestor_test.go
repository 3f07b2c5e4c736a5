package webhook

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/imrishuroy/pos-orderflow/internal/orders"
)

type memLedger struct {
	mu        sync.Mutex
	rows      map[string]orders.Order
	getErr    error
	updateErr error
	updates   int
}

func newLedger(rows ...orders.Order) *memLedger {
	l := &memLedger{rows: map[string]orders.Order{}}
	for _, o := range rows {
		l.rows[o.POSOrderID] = o
	}
	return l
}

func (l *memLedger) Create(ctx context.Context, o orders.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows[o.POSOrderID] = o
	return nil
}

func (l *memLedger) Get(ctx context.Context, id string) (*orders.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.getErr != nil {
		return nil, l.getErr
	}
	o, ok := l.rows[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (l *memLedger) UpdateStatus(ctx context.Context, id string, expected, next orders.Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.updateErr != nil {
		return l.updateErr
	}
	o, ok := l.rows[id]
	if !ok || o.Status != expected {
		return orders.ErrStatusMismatch
	}
	o.Status = next
	l.rows[id] = o
	l.updates++
	return nil
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	sent []sentMessage
	err  error
}

func (f *fakeNotifier) Send(ctx context.Context, chatID int64, text string) error {
	f.sent = append(f.sent, sentMessage{chatID, text})
	return f.err
}

func created(id string, owner int64) orders.Order {
	return orders.Order{OrderID: "local-" + id, POSOrderID: id, OwnerID: owner, Status: orders.StatusCreated}
}

func TestIngest_CancelledWithReason(t *testing.T) {
	l := newLedger(created("G1", 555))
	n := &fakeNotifier{}
	NewIngestor(l, n, nil).Ingest(context.Background(), Notification{POSOrderID: "G1", Status: "CANCELLED", StatusMessage: "Нет молока"})

	if l.rows["G1"].Status != orders.StatusCancelled {
		t.Fatalf("status not updated: %s", l.rows["G1"].Status)
	}
	if len(n.sent) != 1 || n.sent[0].chatID != 555 || n.sent[0].text != "❌ Заказ отклонён: Нет молока" {
		t.Fatalf("unexpected notifications: %+v", n.sent)
	}
}

func TestIngest_CancelledDefaultReason(t *testing.T) {
	l := newLedger(created("G1", 555))
	n := &fakeNotifier{}
	NewIngestor(l, n, nil).Ingest(context.Background(), Notification{POSOrderID: "G1", Status: "CANCELLED"})
	if len(n.sent) != 1 || n.sent[0].text != RejectedPrefix+DefaultRejectedReason {
		t.Fatalf("unexpected notifications: %+v", n.sent)
	}
}

func TestIngest_Accepted(t *testing.T) {
	l := newLedger(created("G2", 7))
	n := &fakeNotifier{}
	NewIngestor(l, n, nil).Ingest(context.Background(), Notification{POSOrderID: "G2", Status: "ACCEPTED"})

	if l.rows["G2"].Status != orders.StatusAccepted {
		t.Fatalf("status not updated")
	}
	if len(n.sent) != 1 || n.sent[0].text != AcceptedText {
		t.Fatalf("unexpected notifications: %+v", n.sent)
	}
}

func TestIngest_RepeatedAndIllegalTransitionsAreSilent(t *testing.T) {
	l := newLedger(created("G3", 7))
	n := &fakeNotifier{}
	in := NewIngestor(l, n, nil)
	ctx := context.Background()

	in.Ingest(ctx, Notification{POSOrderID: "G3", Status: "ACCEPTED"})
	in.Ingest(ctx, Notification{POSOrderID: "G3", Status: "ACCEPTED"})
	in.Ingest(ctx, Notification{POSOrderID: "G3", Status: "CANCELLED", StatusMessage: "late"})

	if l.rows["G3"].Status != orders.StatusAccepted {
		t.Fatalf("terminal status must be sticky, got %s", l.rows["G3"].Status)
	}
	if len(n.sent) != 1 || l.updates != 1 {
		t.Fatalf("expected one transition and one message, got updates=%d sent=%+v", l.updates, n.sent)
	}
}

func TestIngest_Tolerance(t *testing.T) {
	cases := map[string]Notification{
		"missing guid":   {Status: "ACCEPTED"},
		"missing status": {POSOrderID: "G4"},
		"unknown order":  {POSOrderID: "nope", Status: "ACCEPTED"},
		"unknown status": {POSOrderID: "G4", Status: "COOKING"},
		"created status": {POSOrderID: "G4", Status: "CREATED"},
	}
	for name, note := range cases {
		t.Run(name, func(t *testing.T) {
			l := newLedger(created("G4", 9))
			n := &fakeNotifier{}
			NewIngestor(l, n, nil).Ingest(context.Background(), note)
			if l.rows["G4"].Status != orders.StatusCreated || l.updates != 0 || len(n.sent) != 0 {
				t.Fatalf("expected no effect, got status=%s updates=%d sent=%d", l.rows["G4"].Status, l.updates, len(n.sent))
			}
		})
	}
}

func TestIngest_NoOwnerNoMessage(t *testing.T) {
	l := newLedger(created("G5", 0))
	n := &fakeNotifier{}
	NewIngestor(l, n, nil).Ingest(context.Background(), Notification{POSOrderID: "G5", Status: "ACCEPTED"})
	if l.rows["G5"].Status != orders.StatusAccepted || len(n.sent) != 0 {
		t.Fatalf("status should change without a message")
	}
}

func TestIngest_ErrorsAreSwallowed(t *testing.T) {
	ctx := context.Background()

	l := newLedger(created("G6", 1))
	n := &fakeNotifier{err: errors.New("bot blocked")}
	NewIngestor(l, n, nil).Ingest(ctx, Notification{POSOrderID: "G6", Status: "ACCEPTED"})
	if l.rows["G6"].Status != orders.StatusAccepted || len(n.sent) != 1 {
		t.Fatalf("notifier failure must not undo the transition")
	}

	l = newLedger(created("G7", 1))
	l.updateErr = errors.New("db locked")
	n = &fakeNotifier{}
	NewIngestor(l, n, nil).Ingest(ctx, Notification{POSOrderID: "G7", Status: "ACCEPTED"})
	if len(n.sent) != 0 {
		t.Fatalf("no message when the update failed")
	}

	l = newLedger()
	l.getErr = errors.New("db locked")
	NewIngestor(l, n, nil).Ingest(ctx, Notification{POSOrderID: "G8", Status: "ACCEPTED"})
}

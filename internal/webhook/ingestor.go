// Package webhook applies POS order status callbacks to the ledger and
// tells the customer about the outcome.
package webhook

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/imrishuroy/pos-orderflow/internal/events"
	"github.com/imrishuroy/pos-orderflow/internal/notify"
	"github.com/imrishuroy/pos-orderflow/internal/orders"
)

// Customer-facing texts.
const (
	AcceptedText          = "✅ Ваш заказ принят. Ожидайте приготовления."
	RejectedPrefix        = "❌ Заказ отклонён: "
	DefaultRejectedReason = "Причина не указана"
)

// Notification is the POS status callback body.
type Notification struct {
	POSOrderID    string `json:"guid"`
	Status        string `json:"status"`
	StatusMessage string `json:"statusMessage,omitempty"`
}

// Ingestor applies notifications.
type Ingestor struct {
	ledger   orders.Ledger
	notifier notify.Notifier
	events   events.Emitter
	nowFunc  func() time.Time
}

// NewIngestor returns an Ingestor. A nil emitter discards events.
func NewIngestor(ledger orders.Ledger, notifier notify.Notifier, emitter events.Emitter) *Ingestor {
	if emitter == nil {
		emitter = events.Discard
	}
	return &Ingestor{ledger: ledger, notifier: notifier, events: emitter, nowFunc: time.Now}
}

// Ingest never fails: bad input, unknown orders, repeated transitions and
// delivery errors are logged and dropped so the POS always gets 200.
func (in *Ingestor) Ingest(ctx context.Context, n Notification) {
	id := strings.TrimSpace(n.POSOrderID)
	if id == "" || n.Status == "" {
		log.Printf("[webhook] ignoring notification without guid or status: %+v", n)
		return
	}
	in.events.Emit(ctx, events.Stamp(events.Event{Type: events.TypeWebhookReceived, POSOrderID: id, Status: n.Status}, in.nowFunc()))

	next, ok := orders.ParseStatus(n.Status)
	if !ok || next == orders.StatusCreated {
		log.Printf("[webhook] pos_order=%s: ignoring status %q", id, n.Status)
		return
	}

	order, err := in.ledger.Get(ctx, id)
	if err != nil {
		log.Printf("[webhook] pos_order=%s lookup failed: %v", id, err)
		return
	}
	if order == nil {
		log.Printf("[webhook] pos_order=%s unknown, ignoring", id)
		return
	}

	err = in.ledger.UpdateStatus(ctx, id, orders.StatusCreated, next)
	if errors.Is(err, orders.ErrStatusMismatch) {
		log.Printf("[webhook] pos_order=%s already %s, ignoring %s", id, order.Status, next)
		return
	}
	if err != nil {
		log.Printf("[webhook] pos_order=%s status update failed: %v", id, err)
		return
	}
	log.Printf("[webhook] pos_order=%s %s -> %s", id, orders.StatusCreated, next)

	if order.OwnerID == 0 || in.notifier == nil {
		return
	}
	text := AcceptedText
	if next == orders.StatusCancelled {
		reason := strings.TrimSpace(n.StatusMessage)
		if reason == "" {
			reason = DefaultRejectedReason
		}
		text = RejectedPrefix + reason
	}
	if err := in.notifier.Send(ctx, order.OwnerID, text); err != nil {
		log.Printf("[webhook] pos_order=%s notify owner=%d failed: %v", id, order.OwnerID, err)
	}
}

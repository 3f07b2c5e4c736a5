// Package events publishes order and payment lifecycle events. Emitting
// never fails the caller: sink errors are logged and dropped.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/imrishuroy/pos-orderflow/internal/aws"
)

// Event types.
const (
	TypePendingCreated    = "pending_created"
	TypeFinalizeAttempted = "finalize_attempted"
	TypeFinalizeSucceeded = "finalize_succeeded"
	TypeFinalizeFailed    = "finalize_failed"
	TypeWebhookReceived   = "webhook_received"
)

// Event is one lifecycle fact. Total is a decimal string.
type Event struct {
	Type       string    `json:"type"`
	Token      string    `json:"payment_token,omitempty"`
	OwnerID    int64     `json:"owner_id,omitempty"`
	POSOrderID string    `json:"pos_order_id,omitempty"`
	Total      string    `json:"total,omitempty"`
	Status     string    `json:"status,omitempty"`
	Source     string    `json:"source,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Emitter accepts lifecycle events.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

// Discard drops every event.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(context.Context, Event) {}

// LogEmitter writes one log line per event.
type LogEmitter struct{}

func (LogEmitter) Emit(_ context.Context, ev Event) {
	log.Printf("[events] %s token=%s owner=%d pos_order=%s total=%s status=%s source=%s err=%q",
		ev.Type, ev.Token, ev.OwnerID, ev.POSOrderID, ev.Total, ev.Status, ev.Source, ev.Error)
}

// SQSEmitter publishes events as JSON messages with an event_type attribute.
type SQSEmitter struct {
	pub *aws.Publisher
}

// NewSQSEmitter returns an emitter bound to a publisher.
func NewSQSEmitter(pub *aws.Publisher) *SQSEmitter {
	return &SQSEmitter{pub: pub}
}

func (e *SQSEmitter) Emit(ctx context.Context, ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[events] marshal %s: %v", ev.Type, err)
		return
	}
	// detached so a cancelled request does not drop the event
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.pub.Send(ctx, string(body), map[string]string{"event_type": ev.Type}); err != nil {
		log.Printf("[events] publish %s: %v", ev.Type, err)
	}
}

// Multi fans an event out to every emitter in order.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, ev Event) {
	for _, e := range m {
		e.Emit(ctx, ev)
	}
}

// Stamp fills At when zero and returns the event.
func Stamp(ev Event, now time.Time) Event {
	if ev.At.IsZero() {
		ev.At = now.UTC()
	}
	return ev
}

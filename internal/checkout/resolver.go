// Package checkout reconciles the payment completion paths (gateway
// redirect, in-chat invoice, pay on pickup) into at most one POS submission
// per pending payment.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/pos-orderflow/internal/events"
	"github.com/imrishuroy/pos-orderflow/internal/gateway"
	"github.com/imrishuroy/pos-orderflow/internal/orders"
	"github.com/imrishuroy/pos-orderflow/internal/payments"
)

// DefaultClaimLease bounds how long a crashed finalizer can hold a token.
const DefaultClaimLease = 2 * time.Minute

var (
	ErrEmptyCart              = errors.New("cart is empty")
	ErrInvalidTotal           = errors.New("order total must be positive")
	ErrGatewayNotConfigured   = errors.New("payment gateway is not configured")
	ErrReturnURLNotConfigured = errors.New("web app url is not configured")
	ErrGatewayRejected        = errors.New("payment gateway did not create a usable payment")
	// ErrSubmission wraps a POS failure after the payment was taken.
	ErrSubmission = errors.New("order submission failed")
)

// Outcome is the result of a finalize attempt that did not fail.
type Outcome string

const (
	// OutcomeCreated means this call submitted the order.
	OutcomeCreated Outcome = "created"
	// OutcomeAlreadyFinalized means the token is gone: another path (or an
	// earlier call) already submitted it, or it never existed.
	OutcomeAlreadyFinalized Outcome = "already_finalized"
	// OutcomeInProgress means another caller holds the finalize claim.
	OutcomeInProgress Outcome = "in_progress"
)

// Submitter is the order submission pipeline.
type Submitter interface {
	Submit(ctx context.Context, req orders.SubmitRequest) (*orders.Order, error)
}

// Gateway is the redirect payment gateway.
type Gateway interface {
	Configured() bool
	CreatePayment(ctx context.Context, req gateway.CreateRequest) (*gateway.Payment, error)
	GetPayment(ctx context.Context, id string) (*gateway.Payment, error)
}

// Cart is what the mini-app sends at checkout.
type Cart struct {
	OwnerID int64
	Items   []orders.CartItem
	Client  orders.ClientInfo
	Comment string
}

// GatewayCheckout is a pending payment with its gateway confirmation page.
type GatewayCheckout struct {
	Token           string
	ConfirmationURL string
}

// FinalizeResult carries the outcome and, for OutcomeCreated, the order.
type FinalizeResult struct {
	Outcome Outcome
	Order   *orders.Order
}

// Options configures a Resolver.
type Options struct {
	WebAppURL  string
	ClaimLease time.Duration
}

// Resolver owns the pending payment lifecycle.
type Resolver struct {
	store      payments.Store
	submitter  Submitter
	gateway    Gateway
	events     events.Emitter
	webAppURL  string
	claimLease time.Duration
	newToken   func() string
	nowFunc    func() time.Time
}

// NewResolver wires a Resolver. A nil emitter discards events.
func NewResolver(store payments.Store, submitter Submitter, gw Gateway, emitter events.Emitter, opts Options) *Resolver {
	if emitter == nil {
		emitter = events.Discard
	}
	if opts.ClaimLease <= 0 {
		opts.ClaimLease = DefaultClaimLease
	}
	return &Resolver{
		store:      store,
		submitter:  submitter,
		gateway:    gw,
		events:     emitter,
		webAppURL:  strings.TrimRight(opts.WebAppURL, "/"),
		claimLease: opts.ClaimLease,
		newToken:   payments.NewToken,
		nowFunc:    time.Now,
	}
}

func (r *Resolver) emit(ctx context.Context, ev events.Event) {
	r.events.Emit(ctx, events.Stamp(ev, r.nowFunc()))
}

// PlaceOrder submits a cart directly: pay on pickup, or pre-paid when paid
// is non-nil. No pending payment is involved.
func (r *Resolver) PlaceOrder(ctx context.Context, cart Cart, orderType orders.Type, paid *decimal.Decimal) (*orders.Order, error) {
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}
	client := cart.Client
	order, err := r.submitter.Submit(ctx, orders.SubmitRequest{
		OwnerID:    cart.OwnerID,
		Items:      cart.Items,
		Total:      orders.Total(cart.Items),
		Client:     &client,
		Comment:    strings.TrimSpace(cart.Comment),
		Type:       orderType,
		PaidAmount: paid,
	})
	if err != nil && order == nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmission, err)
	}
	if err != nil {
		log.Printf("[checkout] direct order pos_order=%s: %v", order.POSOrderID, err)
	}
	return order, nil
}

// PreparePending stores the cart for a later invoice payment and returns
// its token.
func (r *Resolver) PreparePending(ctx context.Context, cart Cart) (string, error) {
	p, err := r.newPending(cart)
	if err != nil {
		return "", err
	}
	if err := r.store.Put(ctx, p); err != nil {
		return "", fmt.Errorf("store pending payment: %w", err)
	}
	r.emit(ctx, events.Event{Type: events.TypePendingCreated, Token: p.Token, OwnerID: p.OwnerID, Total: p.Total.String(), Source: "invoice"})
	return p.Token, nil
}

// PrepareGatewayPayment stores the cart and creates a gateway payment that
// returns the payer to the web app. Any failure after the cart was stored
// removes it again.
func (r *Resolver) PrepareGatewayPayment(ctx context.Context, cart Cart) (*GatewayCheckout, error) {
	p, err := r.newPending(cart)
	if err != nil {
		return nil, err
	}
	if !p.Total.IsPositive() {
		return nil, ErrInvalidTotal
	}
	if r.gateway == nil || !r.gateway.Configured() {
		return nil, ErrGatewayNotConfigured
	}
	if r.webAppURL == "" {
		return nil, ErrReturnURLNotConfigured
	}

	if err := r.store.Put(ctx, p); err != nil {
		return nil, fmt.Errorf("store pending payment: %w", err)
	}

	checkout, err := r.createGatewayPayment(ctx, p)
	if err != nil {
		if derr := r.store.Delete(context.WithoutCancel(ctx), p.Token); derr != nil {
			log.Printf("[checkout] cleanup of token=%s failed: %v", p.Token, derr)
		}
		return nil, err
	}
	r.emit(ctx, events.Event{Type: events.TypePendingCreated, Token: p.Token, OwnerID: p.OwnerID, Total: p.Total.String(), Source: "gateway"})
	return checkout, nil
}

func (r *Resolver) createGatewayPayment(ctx context.Context, p payments.PendingPayment) (*GatewayCheckout, error) {
	payment, err := r.gateway.CreatePayment(ctx, gateway.CreateRequest{
		Amount:      p.Total,
		Description: gateway.Description(p.Total),
		ReturnURL:   r.ReturnURL(p.Token),
		Metadata:    map[string]string{"payment_token": p.Token},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGatewayRejected, err)
	}
	if payment.Status != gateway.StatusPending && payment.Status != gateway.StatusWaitingForCapture {
		return nil, fmt.Errorf("%w: status %q", ErrGatewayRejected, payment.Status)
	}
	if payment.ID == "" || payment.Confirmation == nil || payment.Confirmation.ConfirmationURL == "" {
		return nil, fmt.Errorf("%w: missing id or confirmation url", ErrGatewayRejected)
	}
	if err := r.store.AttachGatewayReference(ctx, p.Token, payment.ID); err != nil {
		return nil, fmt.Errorf("attach gateway reference: %w", err)
	}
	return &GatewayCheckout{Token: p.Token, ConfirmationURL: payment.Confirmation.ConfirmationURL}, nil
}

// ReturnURL is where the gateway sends the payer back for token.
func (r *Resolver) ReturnURL(token string) string {
	return r.webAppURL + "/api/payment/return?payment_token=" + url.QueryEscape(token)
}

func (r *Resolver) newPending(cart Cart) (payments.PendingPayment, error) {
	if len(cart.Items) == 0 {
		return payments.PendingPayment{}, ErrEmptyCart
	}
	return payments.PendingPayment{
		Token:   r.newToken(),
		OwnerID: cart.OwnerID,
		Items:   append([]orders.CartItem(nil), cart.Items...),
		Total:   orders.Total(cart.Items),
		Client:  cart.Client,
		Comment: strings.TrimSpace(cart.Comment),
	}, nil
}

// Pending returns the stored cart for token.
func (r *Resolver) Pending(ctx context.Context, token string) (*payments.PendingPayment, error) {
	return r.store.Get(ctx, token)
}

// FinalizeOrder submits the pending payment behind token at most once.
// paid defaults to the stored total. Concurrent callers for one token get
// OutcomeInProgress; later callers get OutcomeAlreadyFinalized. On a
// submission failure the pending payment stays so a retry is possible.
func (r *Resolver) FinalizeOrder(ctx context.Context, token string, paid *decimal.Decimal) (*FinalizeResult, error) {
	return r.finalize(ctx, token, paid, 0, "direct")
}

// CompleteInvoice finalizes after the chat bot confirmed an invoice payment.
// A non-zero ownerID replaces the owner stored with the pending payment; the
// bot knows who actually paid.
func (r *Resolver) CompleteInvoice(ctx context.Context, token string, paid *decimal.Decimal, ownerID int64) (*FinalizeResult, error) {
	return r.finalize(ctx, token, paid, ownerID, "invoice")
}

func (r *Resolver) finalize(ctx context.Context, token string, paid *decimal.Decimal, ownerID int64, source string) (*FinalizeResult, error) {
	r.emit(ctx, events.Event{Type: events.TypeFinalizeAttempted, Token: token, Source: source})

	p, err := r.store.Claim(ctx, token, r.claimLease)
	switch {
	case errors.Is(err, payments.ErrNotFound):
		log.Printf("[checkout] token=%s already finalized or unknown (%s)", token, source)
		return &FinalizeResult{Outcome: OutcomeAlreadyFinalized}, nil
	case errors.Is(err, payments.ErrClaimed):
		log.Printf("[checkout] token=%s is being finalized by another caller (%s)", token, source)
		return &FinalizeResult{Outcome: OutcomeInProgress}, nil
	case err != nil:
		return nil, fmt.Errorf("claim pending payment: %w", err)
	}

	amount := p.Total
	if paid != nil {
		amount = *paid
	}
	if ownerID != 0 {
		p.OwnerID = ownerID
	}
	order, err := r.submitter.Submit(ctx, orders.SubmitRequest{
		OwnerID:    p.OwnerID,
		Items:      p.Items,
		Total:      p.Total,
		Client:     &p.Client,
		Comment:    p.Comment,
		Type:       orders.TypeToGo,
		PaidAmount: &amount,
	})
	if err != nil && order == nil {
		if rerr := r.store.Release(context.WithoutCancel(ctx), token); rerr != nil {
			log.Printf("[checkout] release of token=%s failed: %v", token, rerr)
		}
		r.emit(ctx, events.Event{Type: events.TypeFinalizeFailed, Token: token, OwnerID: p.OwnerID, Total: p.Total.String(), Source: source, Error: err.Error()})
		return nil, fmt.Errorf("%w: %w", ErrSubmission, err)
	}
	if err != nil {
		// The POS has the order; the pending record must go regardless.
		log.Printf("[checkout] token=%s pos_order=%s: %v", token, order.POSOrderID, err)
	}

	if err := r.store.Delete(context.WithoutCancel(ctx), token); err != nil {
		log.Printf("[checkout] token=%s submitted as pos_order=%s but pending delete failed: %v", token, order.POSOrderID, err)
	}
	r.emit(ctx, events.Event{
		Type: events.TypeFinalizeSucceeded, Token: token, OwnerID: p.OwnerID,
		POSOrderID: order.POSOrderID, Total: p.Total.String(), Status: string(order.Status), Source: source,
	})
	return &FinalizeResult{Outcome: OutcomeCreated, Order: order}, nil
}

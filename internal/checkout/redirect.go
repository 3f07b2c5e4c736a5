package checkout

import (
	"context"
	"errors"
	"log"
	"net/url"

	"github.com/imrishuroy/pos-orderflow/internal/gateway"
)

// RedirectStatus classifies the end of a gateway redirect.
type RedirectStatus int

const (
	// RedirectPaymentFailed: the payment was not confirmed. Nothing was charged
	// as far as this service knows.
	RedirectPaymentFailed RedirectStatus = iota
	// RedirectOrderFailed: the payment succeeded but the POS submission did not.
	RedirectOrderFailed
	// RedirectSucceeded: the order exists. OrderID is set when this call
	// created it.
	RedirectSucceeded
	// RedirectProcessing: the payment succeeded and another caller is
	// submitting the order right now; its outcome is not known yet.
	RedirectProcessing
)

// RedirectResult is what the payer is sent back to the web app with.
type RedirectResult struct {
	Status  RedirectStatus
	OrderID string
}

// CompleteRedirect handles the payer returning from the gateway: the
// payment must be confirmed as succeeded before the order is finalized.
func (r *Resolver) CompleteRedirect(ctx context.Context, token string) RedirectResult {
	failed := RedirectResult{Status: RedirectPaymentFailed}
	if token == "" {
		return failed
	}

	p, err := r.store.Get(ctx, token)
	if err != nil {
		log.Printf("[checkout] redirect token=%s: %v", token, err)
		return failed
	}
	if p.GatewayReference == "" {
		log.Printf("[checkout] redirect token=%s has no gateway payment", token)
		return failed
	}
	if r.gateway == nil || !r.gateway.Configured() {
		log.Printf("[checkout] redirect token=%s: %v", token, ErrGatewayNotConfigured)
		return failed
	}

	payment, err := r.gateway.GetPayment(ctx, p.GatewayReference)
	if err != nil {
		log.Printf("[checkout] redirect token=%s payment=%s lookup failed: %v", token, p.GatewayReference, err)
		return failed
	}
	if payment.Status != gateway.StatusSucceeded {
		log.Printf("[checkout] redirect token=%s payment=%s status=%s", token, p.GatewayReference, payment.Status)
		return failed
	}

	res, err := r.finalize(ctx, token, nil, 0, "redirect")
	if err != nil {
		if errors.Is(err, ErrSubmission) {
			log.Printf("[checkout] redirect token=%s paid but order failed: %v", token, err)
		}
		return RedirectResult{Status: RedirectOrderFailed}
	}
	switch res.Outcome {
	case OutcomeCreated:
		return RedirectResult{Status: RedirectSucceeded, OrderID: res.Order.POSOrderID}
	case OutcomeInProgress:
		return RedirectResult{Status: RedirectProcessing}
	default:
		return RedirectResult{Status: RedirectSucceeded}
	}
}

// URL renders the result as a web app location.
func (res RedirectResult) URL(webAppURL string) string {
	if webAppURL == "" {
		return "/"
	}
	switch res.Status {
	case RedirectSucceeded:
		if res.OrderID == "" {
			return webAppURL + "?payment_success=1"
		}
		return webAppURL + "?payment_success=1&order_id=" + url.QueryEscape(res.OrderID)
	case RedirectOrderFailed:
		return webAppURL + "?payment_error=order"
	case RedirectProcessing:
		return webAppURL + "?payment_processing=1"
	default:
		return webAppURL + "?payment_failed=1"
	}
}

// WebAppURL is the configured web app root without a trailing slash.
func (r *Resolver) WebAppURL() string { return r.webAppURL }

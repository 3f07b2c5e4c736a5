// Package payments keeps provisional carts addressed by a payment token
// until a payment completion path turns them into a POS order.
package payments

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned for unknown, deleted, or expired tokens.
	ErrNotFound = errors.New("pending payment not found")
	// ErrTokenExists is returned by Put when the token is already stored.
	ErrTokenExists = errors.New("pending payment token already exists")
	// ErrReferenceAttached is returned when a gateway reference is already set.
	ErrReferenceAttached = errors.New("gateway reference already attached")
	// ErrClaimed is returned by Claim while another finalizer holds the record.
	ErrClaimed = errors.New("pending payment is being finalized")
)

// Store is the pending payment storage contract.
type Store interface {
	// Put stores a new record. CreatedAt and ExpiresAt are filled when zero.
	Put(ctx context.Context, p PendingPayment) error
	// Get returns the record or ErrNotFound.
	Get(ctx context.Context, token string) (*PendingPayment, error)
	// Delete removes the record. Deleting a missing token is not an error.
	Delete(ctx context.Context, token string) error
	// AttachGatewayReference sets the gateway payment id exactly once.
	AttachGatewayReference(ctx context.Context, token, ref string) error
	// Claim marks the record as being finalized. A claim older than lease
	// is considered abandoned and may be taken over.
	Claim(ctx context.Context, token string, lease time.Duration) (*PendingPayment, error)
	// Release drops a claim so the record can be finalized again.
	Release(ctx context.Context, token string) error
}

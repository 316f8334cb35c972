// Package payment holds the external processor clients the payment
// coordinator talks to.
package payment

import (
	"context"
	"errors"

	"github.com/hygiapro/bookings/internal/domain"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found at processor")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	// ErrPaymentInFlight means the processor has not reached a final answer
	// yet. The booking must stay pending.
	ErrPaymentInFlight = errors.New("payment still in progress at processor")
)

// InitRequest opens a hosted payment page. Amounts are in minor units.
type InitRequest struct {
	Email       string
	AmountMinor int64
	Currency    string
	Reference   string
	CallbackURL string
	Metadata    map[string]string
}

type InitResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

type VerifyResult struct {
	Success     bool
	Status      string // processor's own status word
	AmountMinor int64
	Reference   string
	Metadata    map[string]string
}

// Transaction identifies a payment to verify. SessionID is the AccessCode
// returned by Initialize; gateways that look payments up by reference
// ignore it.
type Transaction struct {
	Reference string
	SessionID string
}

type Gateway interface {
	Provider() domain.PaymentProvider
	Initialize(ctx context.Context, req InitRequest) (*InitResult, error)
	Verify(ctx context.Context, tx Transaction) (*VerifyResult, error)
}

// WebhookVerifier is implemented by gateways that push signed notifications.
// It returns the transaction reference the event is about.
type WebhookVerifier interface {
	ParseWebhook(payload []byte, signature string) (reference string, err error)
}

package payment

import (
	"context"
	"net/url"

	"github.com/hygiapro/bookings/internal/domain"
)

// Bypass confirms bookings without contacting any processor. It exists for
// environments without processor credentials and must be enabled explicitly.
// Nothing is charged; bookings settled through it carry ProviderBypass.
type Bypass struct{}

func NewBypass() *Bypass { return &Bypass{} }

func (b *Bypass) Provider() domain.PaymentProvider { return domain.ProviderBypass }

// Initialize sends the customer straight to the callback page.
func (b *Bypass) Initialize(_ context.Context, req InitRequest) (*InitResult, error) {
	q := url.Values{}
	q.Set("reference", req.Reference)
	q.Set("bypass", "1")
	return &InitResult{
		AuthorizationURL: req.CallbackURL + "?" + q.Encode(),
		AccessCode:       "bypass_" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

// Verify always succeeds. AmountMinor is left at zero; the coordinator reports
// the booked total instead.
func (b *Bypass) Verify(_ context.Context, tx Transaction) (*VerifyResult, error) {
	return &VerifyResult{
		Success:   true,
		Status:    "bypass",
		Reference: tx.Reference,
	}, nil
}

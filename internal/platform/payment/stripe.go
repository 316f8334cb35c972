package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hygiapro/bookings/internal/domain"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Stripe opens Checkout Sessions and settles by reading the session back.
// The session id is the AccessCode the coordinator stores on the booking.
type Stripe struct {
	api *client.API
}

// NewStripe builds a client. backendURL overrides the API host; leave it
// empty for api.stripe.com.
func NewStripe(secretKey, backendURL string) *Stripe {
	var backends *stripe.Backends
	if backendURL != "" {
		cfg := &stripe.BackendConfig{
			URL:               stripe.String(backendURL),
			MaxNetworkRetries: stripe.Int64(0),
		}
		backends = &stripe.Backends{
			API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
			Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
			Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
		}
	}
	return &Stripe{api: client.New(secretKey, backends)}
}

func (s *Stripe) Provider() domain.PaymentProvider { return domain.ProviderStripe }

func (s *Stripe) Initialize(ctx context.Context, req InitRequest) (*InitResult, error) {
	returnURL := req.CallbackURL + "?reference=" + req.Reference

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail:     stripe.String(req.Email),
		ClientReferenceID: stripe.String(req.Reference),
		SuccessURL:        stripe.String(returnURL),
		CancelURL:         stripe.String(returnURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(req.AmountMinor),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Cleaning booking " + req.Reference),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: withReference(req.Metadata, req.Reference),
		},
	}
	params.Context = ctx
	for k, v := range withReference(req.Metadata, req.Reference) {
		params.AddMetadata(k, v)
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &InitResult{
		AuthorizationURL: sess.URL,
		AccessCode:       sess.ID,
		Reference:        req.Reference,
	}, nil
}

// Verify reads the Checkout Session opened for the booking. A session that
// is still open, or complete while a delayed payment method settles, reports
// ErrPaymentInFlight. Only a paid session succeeds. Expired sessions, cancelled
// intents and delayed payments that failed after checkout are final failures.
func (s *Stripe) Verify(ctx context.Context, tx Transaction) (*VerifyResult, error) {
	if tx.SessionID == "" {
		return nil, fmt.Errorf("stripe %s has no checkout session: %w", tx.Reference, ErrTransactionNotFound)
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")
	sess, err := s.api.CheckoutSessions.Get(tx.SessionID, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("stripe session %s: %w", tx.SessionID, ErrTransactionNotFound)
		}
		return nil, fmt.Errorf("stripe get checkout session: %w", err)
	}
	if sess.ClientReferenceID != tx.Reference {
		return nil, fmt.Errorf("stripe session %s belongs to %q, not %q: %w",
			sess.ID, sess.ClientReferenceID, tx.Reference, ErrTransactionNotFound)
	}

	res := &VerifyResult{
		Status:      string(sess.PaymentStatus),
		AmountMinor: sess.AmountTotal,
		Reference:   tx.Reference,
		Metadata:    sess.Metadata,
	}
	pi := sess.PaymentIntent

	switch {
	case sess.Status == stripe.CheckoutSessionStatusComplete && sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		res.Success = true
		if pi != nil && pi.AmountReceived > 0 {
			res.AmountMinor = pi.AmountReceived
		}
	case sess.Status == stripe.CheckoutSessionStatusExpired:
		res.Status = string(stripe.CheckoutSessionStatusExpired)
	case pi != nil && pi.Status == stripe.PaymentIntentStatusCanceled:
		res.Status = string(pi.Status)
	case sess.Status == stripe.CheckoutSessionStatusComplete && pi != nil &&
		pi.Status == stripe.PaymentIntentStatusRequiresPaymentMethod:
		// A delayed method (bank debit) failed after checkout completed.
		res.Status = string(pi.Status)
	default:
		state := string(sess.Status)
		if pi != nil {
			state += "/" + string(pi.Status)
		}
		return nil, fmt.Errorf("stripe session %s is %s: %w", sess.ID, state, ErrPaymentInFlight)
	}
	return res, nil
}

func withReference(md map[string]string, reference string) map[string]string {
	out := make(map[string]string, len(md)+1)
	for k, v := range md {
		out[k] = v
	}
	out["reference"] = reference
	return out
}

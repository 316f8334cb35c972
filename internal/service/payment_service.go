package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hygiapro/bookings/internal/domain"
	"github.com/hygiapro/bookings/internal/platform/payment"
	"github.com/hygiapro/bookings/pkg/events"
	"github.com/hygiapro/bookings/pkg/logger"
)

const referenceAttempts = 3

var ErrWebhookUnsupported = errors.New("no configured gateway accepts webhooks")

type PaymentService interface {
	Initiate(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentSession, error)
	Resume(ctx context.Context, reference string) (*domain.PaymentSession, error)
	Verify(ctx context.Context, reference string) (*domain.PaymentVerification, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// PaymentStartError is returned when the booking was stored but the
// processor could not open a session. The booking stays pending under
// Reference and can be resumed.
type PaymentStartError struct {
	Reference string
	Err       error
}

func (e *PaymentStartError) Error() string {
	return fmt.Sprintf("start payment for %s: %v", e.Reference, e.Err)
}

func (e *PaymentStartError) Unwrap() error { return e.Err }

type PaymentOptions struct {
	Currency        string
	MinorUnitFactor int64
	// CallbackURL is where the processor returns the customer.
	CallbackURL string
}

type paymentService struct {
	bookings BookingService
	primary  payment.Gateway
	gateways map[domain.PaymentProvider]payment.Gateway
	eventBus events.Publisher
	opts     PaymentOptions
	now      func() time.Time
}

// NewPaymentService opens new sessions on primary. Extra gateways are kept
// so bookings created under another provider can still be verified.
func NewPaymentService(
	bookings BookingService,
	primary payment.Gateway,
	extra []payment.Gateway,
	eventBus events.Publisher,
	opts PaymentOptions,
) PaymentService {
	if opts.MinorUnitFactor <= 0 {
		opts.MinorUnitFactor = 100
	}
	gws := map[domain.PaymentProvider]payment.Gateway{primary.Provider(): primary}
	for _, g := range extra {
		if _, ok := gws[g.Provider()]; !ok {
			gws[g.Provider()] = g
		}
	}
	if primary.Provider() == domain.ProviderBypass {
		logger.Warn("PAYMENT BYPASS ENABLED: bookings will be confirmed without charging anyone")
	}
	return &paymentService{
		bookings: bookings,
		primary:  primary,
		gateways: gws,
		eventBus: eventBus,
		opts:     opts,
		now:      time.Now,
	}
}

func (s *paymentService) newReference() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("hygiapro_%d_%s", s.now().UnixMilli(), suffix)
}

// Initiate stores a pending booking under a fresh reference and opens a
// processor session for it. Nothing is sent to the processor if the booking
// cannot be stored.
func (s *paymentService) Initiate(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentSession, error) {
	var (
		booking *domain.Booking
		err     error
	)
	for attempt := 1; attempt <= referenceAttempts; attempt++ {
		booking, err = s.bookings.Create(ctx, domain.NewBooking{
			BookingInput: req.BookingInput,
			Reference:    s.newReference(),
			Provider:     s.primary.Provider(),
		})
		if !errors.Is(err, domain.ErrDuplicateReference) {
			break
		}
		logger.WarnContext(ctx, "Reference collision, regenerating", "attempt", attempt)
	}
	if err != nil {
		return nil, err
	}

	return s.open(ctx, booking)
}

// Resume opens a new processor session for a booking that is still pending.
func (s *paymentService) Resume(ctx context.Context, reference string) (*domain.PaymentSession, error) {
	booking, err := s.bookings.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if booking.PaymentStatus != domain.PaymentPending {
		return nil, fmt.Errorf("%w: booking %s is %s", domain.ErrPaymentStatusConflict, reference, booking.PaymentStatus)
	}
	return s.open(ctx, booking)
}

func (s *paymentService) open(ctx context.Context, booking *domain.Booking) (*domain.PaymentSession, error) {
	gw, err := s.gatewayFor(booking.PaymentProvider)
	if err != nil {
		return nil, &PaymentStartError{Reference: booking.Reference, Err: err}
	}

	res, err := gw.Initialize(ctx, payment.InitRequest{
		Email:       booking.CustomerEmail,
		AmountMinor: domain.ToMinor(booking.TotalAmount, s.opts.MinorUnitFactor),
		Currency:    s.opts.Currency,
		Reference:   booking.Reference,
		CallbackURL: s.opts.CallbackURL,
		Metadata: map[string]string{
			"customer_name":  booking.CustomerName,
			"customer_phone": booking.CustomerPhone,
			"booking_date":   booking.BookingDate,
			"booking_time":   booking.BookingTime,
		},
	})
	if err != nil {
		logger.ErrorContext(ctx, "Payment initialization failed",
			"reference", booking.Reference, "provider", gw.Provider(), "error", err)
		return nil, &PaymentStartError{
			Reference: booking.Reference,
			Err:       fmt.Errorf("%w: %w", domain.ErrPaymentProvider, err),
		}
	}

	if res.AccessCode != "" {
		if err := s.bookings.SetPaymentSession(ctx, booking.Reference, res.AccessCode); err != nil {
			logger.ErrorContext(ctx, "Failed to record payment session",
				"reference", booking.Reference, "provider", gw.Provider(), "error", err)
			return nil, &PaymentStartError{Reference: booking.Reference, Err: err}
		}
	}

	bypass := gw.Provider() == domain.ProviderBypass
	if bypass {
		logger.WarnContext(ctx, "Payment bypassed, no charge made", "reference", booking.Reference)
	}

	return &domain.PaymentSession{
		RedirectURL: res.AuthorizationURL,
		SessionID:   res.AccessCode,
		Reference:   booking.Reference,
		Provider:    gw.Provider(),
		Bypass:      bypass,
	}, nil
}

// Verify settles a booking against its processor. Processor success marks it
// paid and a final processor failure marks it failed. A payment the processor
// is still working on, or a processor that cannot be reached, leaves it
// pending. Settled bookings are answered from storage.
func (s *paymentService) Verify(ctx context.Context, reference string) (*domain.PaymentVerification, error) {
	booking, err := s.bookings.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	if booking.PaymentStatus.IsTerminal() {
		return s.fromBooking(booking), nil
	}

	gw, err := s.gatewayFor(booking.PaymentProvider)
	if err != nil {
		return nil, err
	}

	res, err := gw.Verify(ctx, payment.Transaction{Reference: reference, SessionID: booking.PaymentSessionID})
	if errors.Is(err, payment.ErrPaymentInFlight) {
		logger.InfoContext(ctx, "Payment still in progress",
			"reference", reference, "provider", gw.Provider(), "detail", err)
		return &domain.PaymentVerification{
			Status:          domain.PaymentPending,
			Amount:          booking.TotalAmount,
			Reference:       reference,
			Provider:        gw.Provider(),
			ProcessorStatus: "in_progress",
		}, nil
	}
	if err != nil {
		logger.ErrorContext(ctx, "Payment verification failed",
			"reference", reference, "provider", gw.Provider(), "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrPaymentProvider, err)
	}

	status := domain.PaymentFailed
	if res.Success {
		status = domain.PaymentPaid
	}

	amount := domain.FromMinor(res.AmountMinor, s.opts.MinorUnitFactor)
	bypass := gw.Provider() == domain.ProviderBypass
	if bypass {
		amount = booking.TotalAmount
		logger.WarnContext(ctx, "Payment bypassed, marking booking paid without charge", "reference", reference)
	} else if res.Success && math.Abs(amount-booking.TotalAmount) >= 0.01 {
		logger.WarnContext(ctx, "Processor amount differs from booking total",
			"reference", reference, "booked", booking.TotalAmount, "charged", amount)
	}

	if err := s.bookings.UpdatePaymentStatus(ctx, reference, status); err != nil {
		if !errors.Is(err, domain.ErrPaymentStatusConflict) {
			return nil, err
		}
		// Settled concurrently; report what is stored.
		latest, ferr := s.bookings.FindByReference(ctx, reference)
		if ferr != nil {
			return nil, ferr
		}
		return s.fromBooking(latest), nil
	}

	logger.InfoContext(ctx, "Payment verified",
		"reference", reference, "status", status, "processor_status", res.Status, "provider", gw.Provider())

	subject := events.PaymentFailed
	if status == domain.PaymentPaid {
		subject = events.PaymentPaid
	}
	event := events.PaymentSettledEvent{
		Reference: reference,
		Status:    string(status),
		Provider:  string(gw.Provider()),
		Amount:    amount,
		SettledAt: s.now(),
	}
	if err := s.eventBus.Publish(ctx, subject, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish payment event", "error", err, "reference", reference)
	}

	return &domain.PaymentVerification{
		Status:          status,
		Amount:          amount,
		Reference:       reference,
		Metadata:        res.Metadata,
		Provider:        gw.Provider(),
		ProcessorStatus: res.Status,
		Bypass:          bypass,
	}, nil
}

// HandleWebhook authenticates a processor notification and re-verifies the
// referenced transaction. The notification body is never trusted for status.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	var wv payment.WebhookVerifier
	for _, g := range s.gateways {
		if v, ok := g.(payment.WebhookVerifier); ok {
			wv = v
			break
		}
	}
	if wv == nil {
		return ErrWebhookUnsupported
	}

	reference, err := wv.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}

	if _, err := s.Verify(ctx, reference); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.WarnContext(ctx, "Webhook for unknown reference ignored", "reference", reference)
			return nil
		}
		return err
	}
	return nil
}

func (s *paymentService) gatewayFor(p domain.PaymentProvider) (payment.Gateway, error) {
	gw, ok := s.gateways[p]
	if !ok {
		return nil, fmt.Errorf("%w: provider %q is not configured", domain.ErrPaymentProvider, p)
	}
	return gw, nil
}

func (s *paymentService) fromBooking(b *domain.Booking) *domain.PaymentVerification {
	return &domain.PaymentVerification{
		Status:    b.PaymentStatus,
		Amount:    b.TotalAmount,
		Reference: b.Reference,
		Provider:  b.PaymentProvider,
		Bypass:    b.PaymentProvider == domain.ProviderBypass,
	}
}

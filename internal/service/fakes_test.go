package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hygiapro/bookings/internal/domain"
	"github.com/hygiapro/bookings/internal/platform/mailer"
	"github.com/hygiapro/bookings/internal/platform/payment"
	"github.com/hygiapro/bookings/pkg/logger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	logger.SetDefault(zap.NewNop())
}

// ---------- Booking repo ----------

type fakeBookingRepo struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[string]*domain.Booking // reference -> booking

	dupReferences int   // fail this many creates with ErrDuplicateReference
	failWith      error // every call fails with this when set
	creates       int
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{nextID: 1, bookings: make(map[string]*domain.Booking)}
}

func (f *fakeBookingRepo) Create(_ context.Context, in domain.NewBooking) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.failWith != nil {
		return nil, f.failWith
	}
	if f.dupReferences > 0 {
		f.dupReferences--
		return nil, domain.ErrDuplicateReference
	}
	if _, ok := f.bookings[in.Reference]; ok {
		return nil, domain.ErrDuplicateReference
	}
	for _, b := range f.bookings {
		if b.BookingDate == in.BookingDate && b.BookingTime == in.BookingTime && b.BookingStatus != domain.BookingCancelled {
			return nil, domain.ErrSlotTaken
		}
	}
	now := time.Now()
	b := &domain.Booking{
		ID:              f.nextID,
		Reference:       in.Reference,
		CustomerName:    in.CustomerName,
		CustomerEmail:   in.CustomerEmail,
		CustomerPhone:   in.CustomerPhone,
		CustomerAddress: in.CustomerAddress,
		Notes:           in.Notes,
		BookingDate:     in.BookingDate,
		BookingTime:     in.BookingTime,
		Services:        append([]domain.LineItem(nil), in.Services...),
		TotalAmount:     in.TotalAmount,
		PaymentStatus:   domain.PaymentPending,
		BookingStatus:   domain.BookingConfirmed,
		PaymentProvider: in.Provider,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.nextID++
	f.bookings[in.Reference] = b
	cp := *b
	return &cp, nil
}

func (f *fakeBookingRepo) UpdatePaymentStatus(_ context.Context, reference string, status domain.PaymentStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	b, ok := f.bookings[reference]
	if !ok {
		return false, nil
	}
	if b.PaymentStatus != domain.PaymentPending && b.PaymentStatus != status {
		return false, nil
	}
	b.PaymentStatus = status
	b.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeBookingRepo) SetPaymentSession(_ context.Context, reference, sessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	b, ok := f.bookings[reference]
	if !ok || b.PaymentStatus != domain.PaymentPending {
		return false, nil
	}
	b.PaymentSessionID = sessionID
	return true, nil
}

func (f *fakeBookingRepo) FindByReference(_ context.Context, reference string) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	b, ok := f.bookings[reference]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookingRepo) ListBookedTimes(_ context.Context, date time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []string
	day := date.Format(domain.DateLayout)
	for _, b := range f.bookings {
		if b.BookingDate == day && b.BookingStatus != domain.BookingCancelled {
			out = append(out, b.BookingTime)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeBookingRepo) IsSlotTaken(ctx context.Context, date time.Time, slot string) (bool, error) {
	times, err := f.ListBookedTimes(ctx, date)
	if err != nil {
		return false, err
	}
	for _, t := range times {
		if t == slot {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBookingRepo) List(_ context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Booking
	for _, b := range f.bookings {
		if filter.PaymentStatus != nil && b.PaymentStatus != *filter.PaymentStatus {
			continue
		}
		if filter.Date != "" && b.BookingDate != filter.Date {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeBookingRepo) CountStalePending(_ context.Context, createdBefore time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.bookings {
		if b.PaymentStatus == domain.PaymentPending && b.CreatedAt.Before(createdBefore) {
			n++
		}
	}
	return n, nil
}

func (f *fakeBookingRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bookings)
}

// ---------- Gateway ----------

type fakeGateway struct {
	mu       sync.Mutex
	provider domain.PaymentProvider
	initErr  error
	verify   func(reference string) (*payment.VerifyResult, error)

	inits    []payment.InitRequest
	verifies int
	lastTx   payment.Transaction
}

func (g *fakeGateway) Provider() domain.PaymentProvider { return g.provider }

func (g *fakeGateway) Initialize(_ context.Context, req payment.InitRequest) (*payment.InitResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inits = append(g.inits, req)
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &payment.InitResult{
		AuthorizationURL: "https://checkout.example/" + req.Reference,
		AccessCode:       "ac_" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (g *fakeGateway) Verify(_ context.Context, tx payment.Transaction) (*payment.VerifyResult, error) {
	g.mu.Lock()
	g.verifies++
	g.lastTx = tx
	fn := g.verify
	g.mu.Unlock()
	return fn(tx.Reference)
}

// succeedWith reports success for the amount most recently initialized.
func (g *fakeGateway) succeedWith(reference string) (*payment.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, in := range g.inits {
		if in.Reference == reference {
			return &payment.VerifyResult{Success: true, Status: "success", AmountMinor: in.AmountMinor, Reference: reference}, nil
		}
	}
	return nil, payment.ErrTransactionNotFound
}

type webhookGateway struct {
	*fakeGateway
}

func (w webhookGateway) ParseWebhook(payload []byte, signature string) (string, error) {
	if signature != "good" {
		return "", payment.ErrInvalidSignature
	}
	return string(payload), nil
}

// ---------- Mailer ----------

type fakeMailer struct {
	mu      sync.Mutex
	sent    []string // recipients
	subject string
	sendErr error
	ctxErr  error // ctx.Err() seen by the last Send
}

func (m *fakeMailer) Send(ctx context.Context, msg mailer.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctxErr = ctx.Err()
	if m.ctxErr != nil {
		return "", m.ctxErr
	}
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.sent = append(m.sent, msg.To)
	m.subject = msg.Subject
	return "msg-1", nil
}

func (m *fakeMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

// ---------- Publisher ----------

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (nopPublisher) Close() error                                       { return nil }

// ---------- Fixtures ----------

var errDBDown = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

// testSchedule is pinned to Friday 2026-03-06 so tomorrow is an open Saturday.
func testSchedule(t *testing.T) *domain.Schedule {
	t.Helper()
	s, err := domain.NewSchedule([]string{"sunday"}, 30, "UTC")
	require.NoError(t, err)
	s.Now = func() time.Time { return time.Date(2026, 3, 6, 12, 0, 0, 0, time.UTC) }
	return s
}

func validBookingInput(date, slot string) domain.BookingInput {
	return domain.BookingInput{
		CustomerName:    "Ada Obi",
		CustomerEmail:   "ada@example.com",
		CustomerPhone:   "0803 123 4567",
		CustomerAddress: "12 Marina Road, Lagos",
		BookingDate:     date,
		BookingTime:     slot,
		Services:        []domain.LineItem{{ServiceID: "deep-cleaning", Name: "Deep Cleaning", Quantity: 1, Price: 45000}},
		TotalAmount:     45000,
	}
}

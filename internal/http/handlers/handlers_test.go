package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/hygiapro/bookings/internal/catalog"
	"github.com/hygiapro/bookings/internal/domain"
	"github.com/hygiapro/bookings/internal/http/handlers"
	"github.com/hygiapro/bookings/internal/http/response"
	"github.com/hygiapro/bookings/internal/platform/payment"
	"github.com/hygiapro/bookings/internal/service"
	"github.com/hygiapro/bookings/pkg/auth"
	"github.com/hygiapro/bookings/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	logger.SetDefault(zap.NewNop())
}

// ---------- Mocks ----------

type mockAvailability struct {
	booked map[string]bool
	err    error
}

func (m *mockAvailability) ListBookedTimes(_ context.Context, date string) ([]string, error) {
	out := []string{}
	for t := range m.booked {
		out = append(out, t)
	}
	return out, m.err
}

func (m *mockAvailability) IsSlotAvailable(_ context.Context, date, slot string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if !domain.IsValidSlot(slot) {
		return false, domain.NewValidationError("time", "must be one of the available time slots")
	}
	return !m.booked[slot], nil
}

func (m *mockAvailability) DaySlots(_ context.Context, date string) ([]domain.SlotView, error) {
	if m.err != nil {
		return nil, m.err
	}
	views := make([]domain.SlotView, 0, len(domain.TimeSlots))
	for _, s := range domain.TimeSlots {
		views = append(views, domain.SlotView{Slot: s, Available: !m.booked[s.Time]})
	}
	return views, nil
}

type mockBookings struct {
	byRef map[string]*domain.Booking
	err   error
}

func (m *mockBookings) Create(context.Context, domain.NewBooking) (*domain.Booking, error) {
	return nil, errors.New("not used")
}

func (m *mockBookings) UpdatePaymentStatus(context.Context, string, domain.PaymentStatus) error {
	return errors.New("not used")
}

func (m *mockBookings) SetPaymentSession(context.Context, string, string) error {
	return errors.New("not used")
}

func (m *mockBookings) FindByReference(_ context.Context, ref string) (*domain.Booking, error) {
	if m.err != nil {
		return nil, m.err
	}
	b, ok := m.byRef[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

func (m *mockBookings) List(_ context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range m.byRef {
		if f.PaymentStatus != nil && b.PaymentStatus != *f.PaymentStatus {
			continue
		}
		out = append(out, *b)
	}
	return out, m.err
}

func (m *mockBookings) CountStalePending(context.Context, time.Duration) (int, error) {
	return 0, nil
}

type mockPayments struct {
	mu         sync.Mutex
	initiated  []domain.PaymentRequest
	initErr    error
	verifyErr  error
	webhookErr error
}

func (m *mockPayments) Initiate(_ context.Context, req domain.PaymentRequest) (*domain.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initiated = append(m.initiated, req)
	if m.initErr != nil {
		return nil, m.initErr
	}
	ref := fmt.Sprintf("hygiapro_1700000000000_%08x", len(m.initiated))
	return &domain.PaymentSession{
		RedirectURL: "https://checkout.paystack.com/" + ref,
		SessionID:   "ac_" + ref,
		Reference:   ref,
		Provider:    domain.ProviderPaystack,
	}, nil
}

func (m *mockPayments) Resume(_ context.Context, ref string) (*domain.PaymentSession, error) {
	if m.initErr != nil {
		return nil, m.initErr
	}
	return &domain.PaymentSession{RedirectURL: "https://checkout.paystack.com/" + ref, Reference: ref}, nil
}

func (m *mockPayments) Verify(_ context.Context, ref string) (*domain.PaymentVerification, error) {
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	return &domain.PaymentVerification{Status: domain.PaymentPaid, Amount: 45000, Reference: ref, Provider: domain.ProviderPaystack}, nil
}

func (m *mockPayments) HandleWebhook(context.Context, []byte, string) error {
	return m.webhookErr
}

func (m *mockPayments) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.initiated)
}

type mockContact struct{ got []domain.ContactMessage }

func (m *mockContact) Submit(_ context.Context, msg domain.ContactMessage) error {
	msg.Normalize()
	if err := domain.Validate(msg); err != nil {
		return err
	}
	m.got = append(m.got, msg)
	return nil
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *memoryStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = map[string]string{}
	}
	s.data[key] = value
	return nil
}

// ---------- Harness ----------

const jwtSecret = "handler-test-secret"

type harness struct {
	router       http.Handler
	availability *mockAvailability
	bookings     *mockBookings
	payments     *mockPayments
	contact      *mockContact
}

func newHarness(t *testing.T, tweaks ...func(*handlers.RouteOptions)) *harness {
	t.Helper()
	schedule, err := domain.NewSchedule([]string{"sunday"}, 30, "UTC")
	require.NoError(t, err)
	schedule.Now = func() time.Time { return time.Date(2026, 3, 6, 12, 0, 0, 0, time.UTC) }

	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)

	h := &harness{
		availability: &mockAvailability{booked: map[string]bool{}},
		bookings:     &mockBookings{byRef: map[string]*domain.Booking{}},
		payments:     &mockPayments{},
		contact:      &mockContact{},
	}
	hs := handlers.New(handlers.Deps{
		Catalog: catalog.NewStaticProvider([]catalog.Service{{
			ID: "deep-cleaning", Name: "Deep Cleaning", StartingPrice: 40000,
			Pricing: []catalog.CityPricing{{City: "Jos", Tiers: []catalog.PricingTier{{Label: "2-3 bedroom", Min: 40000, Max: 55000}}}},
		}}),
		Availability: h.availability,
		Bookings:     h.bookings,
		Payments:     h.payments,
		Contact:      h.contact,
		Admin:        service.NewAdminService("ops@hygiapro.example", hash, jwtSecret, time.Hour),
		Schedule:     schedule,
	})

	opts := handlers.RouteOptions{
		JWTSecret:      jwtSecret,
		AdminEnabled:   true,
		Idempotency:    &memoryStore{},
		IdempotencyTTL: time.Hour,
	}
	for _, tweak := range tweaks {
		tweak(&opts)
	}
	r := chi.NewRouter()
	hs.Mount(r, opts)
	h.router = r
	return h
}

func (h *harness) do(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

type rawEnvelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Data    json.RawMessage   `json:"data"`
	Fields  map[string]string `json:"fields"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) rawEnvelope {
	t.Helper()
	var env rawEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data), string(env.Data))
	}
	return env
}

func paymentBody() map[string]interface{} {
	return map[string]interface{}{
		"customer_name":    "Ada Obi",
		"customer_email":   "ada@example.com",
		"customer_phone":   "08031234567",
		"customer_address": "12 Marina Road, Lagos",
		"booking_date":     "2026-03-07",
		"booking_time":     "09:00",
		"services":         []map[string]interface{}{{"name": "Deep Cleaning", "quantity": 1, "price": 45000}},
		"total_amount":     45000,
	}
}

// ---------- Tests ----------

func TestListServices(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/v1/services", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var services []catalog.Service
	env := decode(t, rec, &services)
	assert.True(t, env.Success)
	require.Len(t, services, 1)
	assert.Equal(t, "deep-cleaning", services[0].ID)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/v1/services/deep-cleaning", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/v1/services/window-washing", nil).Code)
}

func TestGetAvailability(t *testing.T) {
	h := newHarness(t)
	h.availability.booked["10:00"] = true

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/v1/availability", nil).Code)

	rec := h.do(http.MethodGet, "/v1/availability?date=2026-03-07", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var day struct {
		Slots       []domain.SlotView `json:"slots"`
		BookedTimes []string          `json:"booked_times"`
	}
	decode(t, rec, &day)
	assert.Len(t, day.Slots, len(domain.TimeSlots))
	assert.Equal(t, []string{"10:00"}, day.BookedTimes)
}

func TestGetAvailabilityStorageDown(t *testing.T) {
	h := newHarness(t)
	h.availability.err = fmt.Errorf("%w: dial tcp: refused", domain.ErrAvailabilityUnknown)

	rec := h.do(http.MethodGet, "/v1/availability?date=2026-03-07", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	env := decode(t, rec, nil)
	assert.Equal(t, response.CodeAvailabilityUnknown, env.Code)
	assert.NotContains(t, rec.Body.String(), "dial tcp")
}

func TestCheckSlot(t *testing.T) {
	h := newHarness(t)
	h.availability.booked["09:00"] = true

	rec := h.do(http.MethodGet, "/v1/availability/check?date=2026-03-07&time=09:00", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Available bool `json:"available"`
	}
	decode(t, rec, &out)
	assert.False(t, out.Available)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/v1/availability/check?date=2026-03-07&time=07:00", nil).Code)
}

func TestBookableDates(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/v1/availability/dates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Dates []string `json:"dates"`
	}
	decode(t, rec, &out)
	require.NotEmpty(t, out.Dates)
	assert.Equal(t, "2026-03-07", out.Dates[0])
	assert.NotContains(t, out.Dates, "2026-03-08")
}

func TestInitializePayment(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/v1/payments/initialize", paymentBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess domain.PaymentSession
	decode(t, rec, &sess)
	assert.NotEmpty(t, sess.Reference)
	assert.Contains(t, sess.RedirectURL, sess.Reference)

	require.Equal(t, 1, h.payments.calls())
	assert.Equal(t, 45000.0, h.payments.initiated[0].TotalAmount)
}

func TestInitializePaymentInvalidJSON(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/v1/payments/initialize", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, h.payments.calls())
}

func TestInitializePaymentErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"slot taken", fmt.Errorf("failed to create booking: %w", domain.ErrSlotTaken), http.StatusConflict, response.CodeSlotTaken},
		{"validation", domain.NewValidationError("customer_phone", "must be at least 10 characters"), http.StatusBadRequest, response.CodeInvalidInput},
		{"storage", fmt.Errorf("insert booking: %w: boom", domain.ErrStorage), http.StatusServiceUnavailable, response.CodeStorageUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.payments.initErr = tc.err

			rec := h.do(http.MethodPost, "/v1/payments/initialize", paymentBody())
			assert.Equal(t, tc.status, rec.Code)
			env := decode(t, rec, nil)
			assert.False(t, env.Success)
			assert.Equal(t, tc.code, env.Code)
		})
	}
}

func TestInitializePaymentProcessorDown(t *testing.T) {
	h := newHarness(t)
	h.payments.initErr = &service.PaymentStartError{
		Reference: "hygiapro_1_abcdef12",
		Err:       fmt.Errorf("%w: timeout", domain.ErrPaymentProvider),
	}

	rec := h.do(http.MethodPost, "/v1/payments/initialize", paymentBody())
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var data map[string]string
	env := decode(t, rec, &data)
	assert.Equal(t, response.CodePaymentProvider, env.Code)
	assert.Equal(t, "hygiapro_1_abcdef12", data["reference"])
}

func TestInitializePaymentIdempotencyKey(t *testing.T) {
	h := newHarness(t)

	first := h.do(http.MethodPost, "/v1/payments/initialize", paymentBody(), "Idempotency-Key", "checkout-42")
	require.Equal(t, http.StatusCreated, first.Code)
	second := h.do(http.MethodPost, "/v1/payments/initialize", paymentBody(), "Idempotency-Key", "checkout-42")
	require.Equal(t, http.StatusCreated, second.Code)

	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, h.payments.calls())
}

func TestInitializePaymentIdempotencyKeyReusedWithOtherBody(t *testing.T) {
	h := newHarness(t)

	first := h.do(http.MethodPost, "/v1/payments/initialize", paymentBody(), "Idempotency-Key", "checkout-43")
	require.Equal(t, http.StatusCreated, first.Code)

	other := paymentBody()
	other["booking_time"] = "14:00"
	second := h.do(http.MethodPost, "/v1/payments/initialize", other, "Idempotency-Key", "checkout-43")
	assert.Equal(t, http.StatusUnprocessableEntity, second.Code)
	assert.Equal(t, 1, h.payments.calls())
}

func TestCheckoutRepricesSession(t *testing.T) {
	h := newHarness(t)
	doc := map[string]interface{}{
		"version": 1,
		"cart": []map[string]interface{}{{
			"service_id": "deep-cleaning", "name": "Deep Cleaning", "base_price": 1, "quantity": 2,
			"selection": map[string]interface{}{"city": "Jos", "label": "2-3 bedroom", "price": 45000},
		}},
		"slot": map[string]string{"date": "2026-03-07", "time": "11:00"},
		"customer": map[string]string{
			"full_name": "Ada Obi", "phone": "08031234567", "email": "ada@example.com", "address": "12 Marina Road, Lagos",
		},
	}

	rec := h.do(http.MethodPost, "/v1/checkout", doc)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, 1, h.payments.calls())
	req := h.payments.initiated[0]
	assert.Equal(t, 90000.0, req.TotalAmount)
	assert.Equal(t, "11:00", req.BookingTime)
	require.Len(t, req.Services, 1)
	assert.Equal(t, "Jos", req.Services[0].City)
}

func TestCheckoutRejectsBadSessions(t *testing.T) {
	h := newHarness(t)

	outOfRange := map[string]interface{}{
		"version": 1,
		"cart": []map[string]interface{}{{
			"service_id": "deep-cleaning", "quantity": 1,
			"selection": map[string]interface{}{"city": "Jos", "label": "2-3 bedroom", "price": 10},
		}},
	}
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/v1/checkout", outOfRange).Code)

	noSlot := map[string]interface{}{
		"version": 1,
		"cart":    []map[string]interface{}{{"service_id": "deep-cleaning", "quantity": 1}},
	}
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/v1/checkout", noSlot).Code)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/v1/checkout", map[string]int{"version": 99}).Code)
	assert.Zero(t, h.payments.calls())
}

func TestRetryPayment(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/v1/payments/hygiapro_1_abcdef12/retry", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	h.payments.initErr = fmt.Errorf("%w: booking is paid", domain.ErrPaymentStatusConflict)
	rec = h.do(http.MethodPost, "/v1/payments/hygiapro_1_abcdef12/retry", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVerifyPayment(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/v1/payments/verify/hygiapro_1_abcdef12", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var v domain.PaymentVerification
	decode(t, rec, &v)
	assert.Equal(t, domain.PaymentPaid, v.Status)
	assert.Equal(t, 45000.0, v.Amount)

	h.payments.verifyErr = fmt.Errorf("%w: connection reset", domain.ErrPaymentProvider)
	rec = h.do(http.MethodGet, "/v1/payments/verify/hygiapro_1_abcdef12", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	h.payments.verifyErr = domain.ErrNotFound
	rec = h.do(http.MethodGet, "/v1/payments/verify/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentWebhook(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/v1/payments/webhook", `{"event":"charge.success"}`).Code)

	h.payments.webhookErr = payment.ErrInvalidSignature
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/v1/payments/webhook", `{}`).Code)

	h.payments.webhookErr = service.ErrWebhookUnsupported
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/v1/payments/webhook", `{}`).Code)
}

func TestGetBooking(t *testing.T) {
	h := newHarness(t)
	h.bookings.byRef["hygiapro_1_abcdef12"] = &domain.Booking{
		ID: 7, Reference: "hygiapro_1_abcdef12", CustomerName: "Ada Obi",
		BookingDate: "2026-03-07", BookingTime: "09:00", TotalAmount: 45000,
		PaymentStatus: domain.PaymentPaid, BookingStatus: domain.BookingConfirmed,
		PaymentProvider: domain.ProviderBypass,
	}

	rec := h.do(http.MethodGet, "/v1/bookings/hygiapro_1_abcdef12", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dto domain.BookingDTO
	decode(t, rec, &dto)
	assert.Equal(t, "paid", dto.PaymentStatus)
	assert.Equal(t, "bypass", dto.PaymentProvider)
	assert.True(t, dto.Unpaid)

	rec = h.do(http.MethodGet, "/v1/bookings/never-created", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, response.CodeNotFound, decode(t, rec, nil).Code)
}

func TestSubmitContact(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodPost, "/v1/contact", map[string]string{
		"name": "Ada Obi", "email": "ada@example.com", "phone": "08031234567",
		"subject": "Office cleaning", "message": "Weekly clean for a small office in Ikeja please.",
	})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, h.contact.got, 1)

	rec = h.do(http.MethodPost, "/v1/contact", map[string]string{"name": "A"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec, nil)
	assert.Contains(t, env.Fields, "name")
	assert.Contains(t, env.Fields, "message")
}

func TestAdminFlow(t *testing.T) {
	h := newHarness(t)
	h.bookings.byRef["a"] = &domain.Booking{Reference: "a", PaymentStatus: domain.PaymentPaid}
	h.bookings.byRef["b"] = &domain.Booking{Reference: "b", PaymentStatus: domain.PaymentPending}

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/v1/admin/bookings", nil).Code)

	bad := h.do(http.MethodPost, "/v1/admin/login", map[string]string{"email": "ops@hygiapro.example", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, bad.Code)

	rec := h.do(http.MethodPost, "/v1/admin/login", map[string]string{"email": "ops@hygiapro.example", "password": "correct horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	var tok map[string]string
	decode(t, rec, &tok)
	require.NotEmpty(t, tok["access_token"])

	rec = h.do(http.MethodGet, "/v1/admin/bookings?payment_status=pending", nil, "Authorization", "Bearer "+tok["access_token"])
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Bookings []domain.BookingDTO `json:"bookings"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Bookings, 1)
	assert.Equal(t, "b", list.Bookings[0].Reference)

	rec = h.do(http.MethodGet, "/v1/admin/bookings?payment_status=refunded", nil, "Authorization", "Bearer "+tok["access_token"])
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutesAbsentWhenDisabled(t *testing.T) {
	h := newHarness(t, func(o *handlers.RouteOptions) { o.AdminEnabled = false })
	h.bookings.byRef["a"] = &domain.Booking{Reference: "a", PaymentStatus: domain.PaymentPaid}

	tok, err := auth.NewAccessToken("ops@hygiapro.example", auth.RoleAdmin, jwtSecret, time.Hour)
	require.NoError(t, err)

	rec := h.do(http.MethodGet, "/v1/admin/bookings", nil, "Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = h.do(http.MethodPost, "/v1/admin/login", map[string]string{"email": "ops@hygiapro.example", "password": "correct horse"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

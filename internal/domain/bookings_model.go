package domain

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return PaymentStatus(s), true
	default:
		return "", false
	}
}

// IsTerminal reports whether no further transition is allowed from s.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentPaid || s == PaymentFailed
}

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// PaymentProvider records which path settled a booking. Bypass bookings were
// never charged.
type PaymentProvider string

const (
	ProviderPaystack PaymentProvider = "paystack"
	ProviderStripe   PaymentProvider = "stripe"
	ProviderBypass   PaymentProvider = "bypass"
)

// LineItem is a snapshot of a cart line at booking time.
type LineItem struct {
	ServiceID    string  `json:"service_id,omitempty"`
	Name         string  `json:"name" validate:"required,max=200"`
	Quantity     int     `json:"quantity" validate:"gte=1"`
	Price        float64 `json:"price" validate:"gte=0"`
	City         string  `json:"city,omitempty"`
	PricingLabel string  `json:"pricing_label,omitempty"`
}

func (li LineItem) Subtotal() float64 {
	return li.Price * float64(li.Quantity)
}

type Booking struct {
	ID        int64  `json:"id"`
	Reference string `json:"reference"`

	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerAddress string `json:"customer_address"`
	Notes           string `json:"notes,omitempty"`

	BookingDate string `json:"booking_date"` // YYYY-MM-DD
	BookingTime string `json:"booking_time"` // HH:MM, one of TimeSlots

	Services    []LineItem `json:"services"`
	TotalAmount float64    `json:"total_amount"`

	PaymentStatus   PaymentStatus   `json:"payment_status"`
	BookingStatus   BookingStatus   `json:"booking_status"`
	PaymentProvider PaymentProvider `json:"payment_provider"`
	// PaymentSessionID is the processor session last opened for the booking.
	PaymentSessionID string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookingInput is the submitted checkout payload.
type BookingInput struct {
	CustomerName    string     `json:"customer_name" validate:"required,min=2,max=100"`
	CustomerEmail   string     `json:"customer_email" validate:"required,email"`
	CustomerPhone   string     `json:"customer_phone" validate:"required,min=10,max=15,phone"`
	CustomerAddress string     `json:"customer_address" validate:"required,min=5,max=300"`
	Notes           string     `json:"notes" validate:"max=500"`
	BookingDate     string     `json:"booking_date" validate:"required,booking_date"`
	BookingTime     string     `json:"booking_time" validate:"required,slot_time"`
	Services        []LineItem `json:"services" validate:"required,min=1,dive"`
	TotalAmount     float64    `json:"total_amount" validate:"gt=0"`
}

// NewBooking is what the store inserts. Reference and provider are chosen by
// the payment coordinator before the row exists.
type NewBooking struct {
	BookingInput
	Reference string
	Provider  PaymentProvider
}

type BookingDTO struct {
	Reference       string     `json:"reference"`
	CustomerName    string     `json:"customer_name"`
	CustomerEmail   string     `json:"customer_email"`
	CustomerPhone   string     `json:"customer_phone"`
	CustomerAddress string     `json:"customer_address"`
	Notes           string     `json:"notes,omitempty"`
	BookingDate     string     `json:"booking_date"`
	BookingTime     string     `json:"booking_time"`
	Services        []LineItem `json:"services"`
	TotalAmount     float64    `json:"total_amount"`
	PaymentStatus   string     `json:"payment_status"`
	BookingStatus   string     `json:"booking_status"`
	PaymentProvider string     `json:"payment_provider"`
	// Unpaid is true when the booking was confirmed through bypass mode.
	Unpaid    bool      `json:"unpaid"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookingFilter narrows the admin listing.
type BookingFilter struct {
	PaymentStatus *PaymentStatus
	Date          string
	Limit         int
	Offset        int
}

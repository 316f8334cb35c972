package domain

import "math"

// PaymentRequest is the checkout submission that opens a payment session.
type PaymentRequest struct {
	BookingInput
}

type PaymentSession struct {
	RedirectURL string          `json:"redirect_url"`
	SessionID   string          `json:"session_id"`
	Reference   string          `json:"reference"`
	Provider    PaymentProvider `json:"provider"`
	// Bypass is set when no processor was contacted and nothing was charged.
	Bypass bool `json:"bypass"`
}

type PaymentVerification struct {
	Status          PaymentStatus     `json:"status"`
	Amount          float64           `json:"amount"`
	Reference       string            `json:"reference"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Provider        PaymentProvider   `json:"provider"`
	ProcessorStatus string            `json:"processor_status,omitempty"`
	Bypass          bool              `json:"bypass"`
}

// ToMinor converts an amount to the processor's smallest currency unit.
func ToMinor(amount float64, factor int64) int64 {
	return int64(math.Round(amount * float64(factor)))
}

// FromMinor is the inverse of ToMinor.
func FromMinor(minor, factor int64) float64 {
	return float64(minor) / float64(factor)
}

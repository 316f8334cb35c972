package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrSlotTaken             = errors.New("this time slot has just been booked, please choose another time")
	ErrDuplicateReference    = errors.New("booking reference already exists")
	ErrNotFound              = errors.New("booking not found")
	ErrStorage               = errors.New("storage unavailable")
	ErrAvailabilityUnknown   = errors.New("availability could not be determined")
	ErrPaymentProvider       = errors.New("payment provider error")
	ErrPaymentStatusConflict = errors.New("payment status already settled")
)

// ValidationError carries per-field messages keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid input"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

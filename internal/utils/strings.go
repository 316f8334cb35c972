package utils

import (
	"strings"
	"unicode"
)

// NormalizeString trims whitespace and normalizes string input
func NormalizeString(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeEmail normalizes email addresses (lowercase and trim)
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone trims and collapses inner whitespace runs to one space.
// Formatting characters are kept; validation decides what is allowed.
func NormalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), " ")
}

// IsPhoneChars reports whether s only holds digits, spaces and + - ( ).
func IsPhoneChars(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
		case r == '+', r == '-', r == ' ', r == '(', r == ')':
		default:
			return false
		}
	}
	return true
}

// MaskEmail hides the local part of an address for logs.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

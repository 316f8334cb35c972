package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/hygiapro/bookings/internal/domain"
)

var confirmationHTML = template.Must(template.New("confirmation").Parse(`<p>Hi {{.CustomerName}},</p>
<p>Your cleaning is booked for <b>{{.BookingDate}}</b> at <b>{{.BookingTime}}</b>.</p>
<table>{{range .Services}}<tr><td>{{.Name}}</td><td>x{{.Quantity}}</td><td>{{printf "%.2f" .Subtotal}}</td></tr>{{end}}</table>
<p>Total: <b>{{printf "%.2f" .TotalAmount}}</b></p>
<p>Reference: {{.Reference}}</p>`))

// BookingConfirmation renders the customer confirmation for a paid booking.
func BookingConfirmation(b *domain.Booking) (Message, error) {
	subject := fmt.Sprintf("Your HygiaPro booking on %s at %s", b.BookingDate, b.BookingTime)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi %s,\n\nYour cleaning is booked for %s at %s.\n\n", b.CustomerName, b.BookingDate, b.BookingTime)
	for _, s := range b.Services {
		fmt.Fprintf(&sb, "- %s x%d: %.2f\n", s.Name, s.Quantity, s.Subtotal())
	}
	fmt.Fprintf(&sb, "\nTotal: %.2f\nReference: %s\n", b.TotalAmount, b.Reference)

	var buf bytes.Buffer
	if err := confirmationHTML.Execute(&buf, b); err != nil {
		return Message{}, fmt.Errorf("render confirmation: %w", err)
	}
	return Message{
		To:      b.CustomerEmail,
		ToName:  b.CustomerName,
		Subject: subject,
		Text:    sb.String(),
		HTML:    buf.String(),
		Tags:    []string{"booking-confirmation"},
	}, nil
}

var contactHTML = template.Must(template.New("contact").Parse(`<p><b>{{.Name}}</b> ({{.Email}}, {{.Phone}}) wrote:</p>
<p><b>{{.Subject}}</b></p><pre>{{.Message}}</pre>`))

// ContactNotice renders a website contact message addressed to inbox.
func ContactNotice(m domain.ContactMessage, inbox string) (Message, error) {
	text := fmt.Sprintf("From: %s <%s>, %s\n\n%s\n", m.Name, m.Email, m.Phone, m.Message)

	var buf bytes.Buffer
	if err := contactHTML.Execute(&buf, m); err != nil {
		return Message{}, fmt.Errorf("render contact: %w", err)
	}
	return Message{
		To:      inbox,
		ToName:  "HygiaPro",
		Subject: "[Website contact] " + m.Subject,
		Text:    text,
		HTML:    buf.String(),
		Tags:    []string{"website-contact"},
	}, nil
}

package mailer

import (
	"context"
	"errors"
	"strings"
)

var ErrNoRecipient = errors.New("message has no recipient")

// Message is one outgoing email. Tags are forwarded to providers that
// support them and ignored otherwise.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
	Tags    []string
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	return nil
}

// Service sends one message and returns the provider's message id, if any.
// Implementations stop when ctx is done.
type Service interface {
	Send(ctx context.Context, msg Message) (string, error)
}

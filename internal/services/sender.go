package services

import (
	"context"
	"errors"
)

// ErrNoSender is returned when no sender is configured for a channel
var ErrNoSender = errors.New("no sender configured for channel")

// Sender delivers a single message. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Message is a composed notification
type Message struct {
	Subject string
	Body    string
}

// SenderFunc adapts a function to Sender
type SenderFunc func(ctx context.Context, to, subject, body string) error

// Send implements Sender
func (f SenderFunc) Send(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}

// Package transport defines the interface for email dispatch backends.
package transport

import (
	"context"

	"github.com/shineum/mail-relay-lite/internal/mail"
)

// Receipt reports the outcome of a successful dispatch. PreviewURL is set
// only by transports that route through a test mailbox instead of real
// delivery.
type Receipt struct {
	PreviewURL string
}

// Transport is the interface that email dispatch backends must implement.
// A transport performs exactly one delivery attempt per call; retry policy
// belongs to the caller, and this service never retries.
type Transport interface {
	// Send delivers a composed message and returns a delivery receipt.
	Send(ctx context.Context, msg *mail.Message) (*Receipt, error)

	// Name returns the human-readable name of this transport.
	Name() string
}

// Package relay orchestrates the contact-form pipeline: compose, sanitize
// and dispatch a validated submission through the selected transport.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shineum/mail-relay-lite/internal/contact"
	"github.com/shineum/mail-relay-lite/internal/mail"
	"github.com/shineum/mail-relay-lite/internal/transport"
)

// Hard-coded address fallbacks, the last tier of the resolution order.
const (
	fallbackRecipient = "webmaster@localhost"
	fallbackSender    = "no-reply@localhost"
)

// Relay processes validated submissions. It holds no mutable state;
// concurrent requests are independent.
type Relay struct {
	transport transport.Transport
	from      string
	to        string

	// testMode marks a transport that provisions its own mailbox; in that
	// case unresolved addresses are left empty for the transport to fill.
	testMode bool

	now func() time.Time
}

// New creates a Relay dispatching through the given transport. from and to
// are the configured address overrides and may be empty.
func New(t transport.Transport, from, to string, testMode bool) *Relay {
	return &Relay{
		transport: t,
		from:      from,
		to:        to,
		testMode:  testMode,
		now:       time.Now,
	}
}

// TestMode reports whether dispatches route through a test mailbox.
func (r *Relay) TestMode() bool {
	return r.testMode
}

// Process composes a message from a validated submission, sanitizes its
// HTML body and dispatches it. Single-shot: a failure is returned to the
// caller without retry.
func (r *Relay) Process(ctx context.Context, sub *contact.Submission) (*transport.Receipt, error) {
	from, to := r.resolveAddresses()

	msg := mail.Compose(sub, r.now(), from, to)
	msg.HTMLBody = mail.SanitizeHTML(msg.HTMLBody)

	receipt, err := r.transport.Send(ctx, msg)
	if err != nil {
		slog.Error("dispatch failed",
			"transport", r.transport.Name(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to send: %w", err)
	}

	slog.Info("contact message dispatched",
		"transport", r.transport.Name(),
		"subject", msg.Subject,
		"preview_url", receipt.PreviewURL,
	)

	return receipt, nil
}

// resolveAddresses applies the resolution order. Recipient: configured
// recipient, then (test mode) the transport's own mailbox, then the fixed
// fallback. Sender: configured sender, then the resolved recipient, then
// the fixed fallback.
func (r *Relay) resolveAddresses() (from, to string) {
	to = r.to
	if to == "" && !r.testMode {
		to = fallbackRecipient
	}

	from = r.from
	if from == "" {
		from = to
	}
	if from == "" && !r.testMode {
		from = fallbackSender
	}

	return from, to
}

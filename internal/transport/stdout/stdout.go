// Package stdout implements a Transport that prints messages to standard
// output instead of delivering them. Useful for local development.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shineum/mail-relay-lite/internal/mail"
	"github.com/shineum/mail-relay-lite/internal/transport"
)

// Transport prints messages to a writer in a human-readable format.
type Transport struct {
	writer io.Writer
}

// New creates a stdout Transport writing to os.Stdout.
func New() *Transport {
	return &Transport{writer: os.Stdout}
}

// NewWithWriter creates a stdout Transport writing to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Transport {
	return &Transport{writer: w}
}

// Send prints the message. It always succeeds and never returns a preview
// URL.
func (t *Transport) Send(_ context.Context, msg *mail.Message) (*transport.Receipt, error) {
	var b strings.Builder

	b.WriteString("========================================\n")
	fmt.Fprintf(&b, "From: %s\n", msg.From)
	fmt.Fprintf(&b, "To: %s\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	b.WriteString("Body:\n")

	body := msg.TextBody
	if body == "" {
		body = msg.HTMLBody
	}
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("========================================\n")

	fmt.Fprint(t.writer, b.String())
	return &transport.Receipt{}, nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "stdout"
}

// Package smtpout implements a Transport that dispatches messages through a
// configured SMTP server.
package smtpout

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"time"

	"github.com/shineum/mail-relay-lite/internal/mail"
	"github.com/shineum/mail-relay-lite/internal/transport"
)

// Config holds the connection parameters for an outbound SMTP server.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string

	// Secure selects implicit TLS for the whole connection. When false,
	// STARTTLS is used if the server offers it.
	Secure bool
}

// Transport dispatches messages through a configured SMTP server.
type Transport struct {
	cfg Config
}

// New creates a Transport for the given SMTP configuration.
func New(cfg Config) *Transport {
	return &Transport{cfg: cfg}
}

// Send delivers the message in a single SMTP conversation. No retries are
// performed; a failed send surfaces to the caller.
func (t *Transport) Send(ctx context.Context, msg *mail.Message) (*transport.Receipt, error) {
	if _, err := Dispatch(ctx, t.cfg, msg); err != nil {
		return nil, err
	}
	return &transport.Receipt{}, nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "smtp"
}

// Dispatch performs one complete SMTP conversation: connect (implicit TLS or
// STARTTLS), authenticate when credentials are set, and transmit the message.
// It returns the text of the server's final DATA acknowledgement, which some
// services use to carry a message identifier.
func Dispatch(ctx context.Context, cfg Config, msg *mail.Message) (string, error) {
	addr := net.JoinHostPort(cfg.Host, cfg.Port)

	conn, err := dial(ctx, cfg, addr)
	if err != nil {
		return "", fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("SMTP greeting failed: %w", err)
	}
	defer c.Close()

	if err := c.Hello("localhost"); err != nil {
		return "", fmt.Errorf("EHLO failed: %w", err)
	}

	if !cfg.Secure {
		if ok, _ := c.Extension("STARTTLS"); ok {
			tlsCfg := &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
			if err := c.StartTLS(tlsCfg); err != nil {
				return "", fmt.Errorf("STARTTLS failed: %w", err)
			}
		}
	}

	if cfg.Username != "" {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		if err := c.Auth(auth); err != nil {
			return "", fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := c.Mail(msg.From); err != nil {
		return "", fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return "", fmt.Errorf("RCPT TO rejected: %w", err)
	}

	raw, err := buildRaw(msg, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to build message: %w", err)
	}

	banner, err := data(c, raw)
	if err != nil {
		return "", err
	}

	_ = c.Quit()
	return banner, nil
}

// dial opens the TCP connection, wrapped in TLS when the config is secure.
func dial(ctx context.Context, cfg Config, addr string) (net.Conn, error) {
	dialer := &net.Dialer{}
	if cfg.Secure {
		td := &tls.Dialer{
			NetDialer: dialer,
			Config:    &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
		}
		return td.DialContext(ctx, "tcp", addr)
	}
	return dialer.DialContext(ctx, "tcp", addr)
}

// data runs the DATA phase by hand so the server's acknowledgement text is
// available to the caller; net/smtp reads and discards it.
func data(c *smtp.Client, raw []byte) (string, error) {
	id, err := c.Text.Cmd("DATA")
	if err != nil {
		return "", fmt.Errorf("DATA command failed: %w", err)
	}
	c.Text.StartResponse(id)
	_, _, err = c.Text.ReadResponse(354)
	c.Text.EndResponse(id)
	if err != nil {
		return "", fmt.Errorf("server rejected DATA: %w", err)
	}

	w := c.Text.DotWriter()
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finish message body: %w", err)
	}

	_, banner, err := c.Text.ReadResponse(250)
	if err != nil {
		return "", fmt.Errorf("server rejected message: %w", err)
	}
	return banner, nil
}

// buildRaw constructs the RFC 822 message: headers followed by a
// multipart/alternative body carrying the text and HTML parts.
func buildRaw(msg *mail.Message, now time.Time) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", msg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", writer.Boundary())

	// Plain text first so clients prefer the richer HTML part.
	if msg.TextBody != "" {
		if err := writePart(writer, "text/plain; charset=UTF-8", msg.TextBody); err != nil {
			return nil, err
		}
	}
	if msg.HTMLBody != "" {
		if err := writePart(writer, "text/html; charset=UTF-8", msg.HTMLBody); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}
	return buf.Bytes(), nil
}

func writePart(writer *multipart.Writer, contentType, body string) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create body part: %w", err)
	}
	if _, err := part.Write([]byte(body)); err != nil {
		return fmt.Errorf("failed to write body part: %w", err)
	}
	return nil
}

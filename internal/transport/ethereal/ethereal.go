// Package ethereal implements a Transport that routes messages through a
// disposable Ethereal test mailbox instead of delivering them. It is the
// fallback when no real transport is configured and surfaces a preview URL
// for the captured message.
package ethereal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/shineum/mail-relay-lite/internal/mail"
	"github.com/shineum/mail-relay-lite/internal/transport"
	"github.com/shineum/mail-relay-lite/internal/transport/smtpout"
)

// accountAPIURL is the nodemailer account-provisioning endpoint that issues
// disposable Ethereal mailboxes.
const accountAPIURL = "https://api.nodemailer.com/user"

// Defaults used when the provisioning response omits SMTP details.
const (
	defaultSMTPHost = "smtp.ethereal.email"
	defaultSMTPPort = "587"
)

// webBaseURL is the Ethereal web interface where captured messages can be
// previewed.
const webBaseURL = "https://ethereal.email"

// requestTimeout bounds the account-provisioning HTTP call.
const requestTimeout = 30 * time.Second

// msgidPattern extracts the message identifier Ethereal embeds in its DATA
// acknowledgement, e.g. "Accepted [STATUS=new MSGID=abc.123]".
var msgidPattern = regexp.MustCompile(`MSGID=([^\]\s]+)`)

// Account is a provisioned test mailbox.
type Account struct {
	User string `json:"user"`
	Pass string `json:"pass"`
	SMTP struct {
		Host   string `json:"host"`
		Port   int    `json:"port"`
		Secure bool   `json:"secure"`
	} `json:"smtp"`
	Web string `json:"web"`
}

// dispatchFunc matches smtpout.Dispatch; injectable for testing.
type dispatchFunc func(ctx context.Context, cfg smtpout.Config, msg *mail.Message) (string, error)

// Transport provisions a fresh test mailbox per send and dispatches through
// it. A mailbox lives exactly as long as the request that needed it, so a
// failed provisioning never affects later requests.
type Transport struct {
	apiURL     string
	httpClient *http.Client
	dispatch   dispatchFunc
}

// New creates an ethereal Transport using the public provisioning API.
func New() *Transport {
	return &Transport{
		apiURL:     accountAPIURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		dispatch:   smtpout.Dispatch,
	}
}

// newWithOverrides creates a Transport with a custom API URL, HTTP client
// and dispatch function, used for testing.
func newWithOverrides(apiURL string, client *http.Client, dispatch dispatchFunc) *Transport {
	return &Transport{
		apiURL:     apiURL,
		httpClient: client,
		dispatch:   dispatch,
	}
}

// Send provisions a mailbox, fills in any unresolved addresses from it, and
// dispatches the message through the Ethereal SMTP host. The receipt always
// carries a non-empty preview URL.
func (t *Transport) Send(ctx context.Context, msg *mail.Message) (*transport.Receipt, error) {
	acct, err := t.createAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to provision test mailbox: %w", err)
	}

	slog.Info("provisioned ethereal test mailbox", "user", acct.User)

	// Address resolution, test-mode tier: the mailbox itself receives the
	// message when no recipient was configured.
	m := *msg
	if m.To == "" {
		m.To = acct.User
	}
	if m.From == "" {
		m.From = m.To
	}

	cfg := smtpout.Config{
		Host:     acct.SMTP.Host,
		Port:     strconv.Itoa(acct.SMTP.Port),
		Username: acct.User,
		Password: acct.Pass,
		Secure:   acct.SMTP.Secure,
	}
	if acct.SMTP.Host == "" {
		cfg.Host = defaultSMTPHost
		cfg.Port = defaultSMTPPort
	}

	banner, err := t.dispatch(ctx, cfg, &m)
	if err != nil {
		return nil, err
	}

	return &transport.Receipt{PreviewURL: previewURL(banner)}, nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "ethereal"
}

// createAccount requests a disposable mailbox from the provisioning API.
func (t *Transport) createAccount(ctx context.Context) (*Account, error) {
	reqBody, err := json.Marshal(map[string]string{
		"requestor": "mail-relay-lite",
		"version":   "1.0.0",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal account request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create account request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("account request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read account response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("account endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var acct Account
	if err := json.Unmarshal(body, &acct); err != nil {
		return nil, fmt.Errorf("failed to parse account response: %w", err)
	}

	if acct.User == "" || acct.Pass == "" {
		return nil, fmt.Errorf("account response missing credentials")
	}

	return &acct, nil
}

// previewURL builds the web URL for the captured message. When the DATA
// acknowledgement carried no message id, the mailbox inbox is linked
// instead.
func previewURL(banner string) string {
	if m := msgidPattern.FindStringSubmatch(banner); m != nil {
		return webBaseURL + "/message/" + m[1]
	}
	return webBaseURL + "/messages"
}

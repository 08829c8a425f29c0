package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shineum/mail-relay-lite/internal/mail"
	"github.com/shineum/mail-relay-lite/internal/relay"
	"github.com/shineum/mail-relay-lite/internal/transport"
)

const testAPIKey = "test-secret"

// fakeTransport records dispatch attempts for assertion.
type fakeTransport struct {
	msg     *mail.Message
	receipt *transport.Receipt
	sendErr error
	calls   int
}

func (f *fakeTransport) Send(_ context.Context, msg *mail.Message) (*transport.Receipt, error) {
	f.calls++
	f.msg = msg
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if f.receipt != nil {
		return f.receipt, nil
	}
	return &transport.Receipt{}, nil
}

func (f *fakeTransport) Name() string { return "fake" }

func newTestServer(ft *fakeTransport, testMode bool) *Server {
	var r *relay.Relay
	if testMode {
		r = relay.New(ft, "", "", true)
	} else {
		r = relay.New(ft, "noreply@example.com", "owner@example.com", false)
	}
	return New(Config{ListenAddr: ":0", APIKey: testAPIKey}, r)
}

func postContact(t *testing.T, srv *Server, apiKey, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

const validBody = `{
	"subject": "Project inquiry",
	"name": "Alice Example",
	"email": "alice@example.com",
	"message": "Hello there."
}`

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeTransport{}, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["ok"] != true {
		t.Errorf("body: got %v", body)
	}
}

func TestContact_Success(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	srv := newTestServer(ft, false)

	rec := postContact(t, srv, testAPIKey, validBody)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["ok"] != true {
		t.Errorf("body: got %v", body)
	}
	if _, present := body["previewUrl"]; present {
		t.Errorf("previewUrl should be absent for real delivery: %v", body)
	}
	if ft.calls != 1 {
		t.Errorf("transport calls: got %d, want 1", ft.calls)
	}
}

func TestContact_TestModeIncludesPreviewURL(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{receipt: &transport.Receipt{PreviewURL: "https://ethereal.email/message/abc"}}
	srv := newTestServer(ft, true)

	rec := postContact(t, srv, testAPIKey, validBody)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["previewUrl"] != "https://ethereal.email/message/abc" {
		t.Errorf("previewUrl: got %v", body["previewUrl"])
	}
}

func TestContact_Unauthorized(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		apiKey string
	}{
		{"missing key", ""},
		{"wrong key", "wrong-secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{}
			srv := newTestServer(ft, false)

			// Body is intentionally invalid JSON: an unauthorized request
			// must be rejected before the body is examined.
			rec := postContact(t, srv, tt.apiKey, "{not json")

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status: got %d, want 401", rec.Code)
			}
			body := decodeBody(t, rec)
			if body["error"] != "Unauthorized" {
				t.Errorf("error: got %v", body["error"])
			}
			if ft.calls != 0 {
				t.Errorf("transport calls: got %d, want 0", ft.calls)
			}
		})
	}
}

func TestContact_EmptyConfiguredKeyRejectsAll(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	r := relay.New(ft, "", "owner@example.com", false)
	srv := New(Config{ListenAddr: ":0", APIKey: ""}, r)

	rec := postContact(t, srv, "", validBody)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rec.Code)
	}

	// Even presenting an empty key explicitly must not match.
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(validBody))
	req.Header.Set("x-api-key", "")
	rec2 := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec2, req)
	if rec2.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rec2.Code)
	}
}

func TestContact_MissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", "{not json"},
		{"empty object", "{}"},
		{"missing subject", `{"name":"A","email":"a@example.com","message":"hi"}`},
		{"missing name", `{"subject":"S","email":"a@example.com","message":"hi"}`},
		{"missing email", `{"subject":"S","name":"A","message":"hi"}`},
		{"missing message", `{"subject":"S","name":"A","email":"a@example.com"}`},
		{"whitespace only", `{"subject":"  ","name":"A","email":"a@example.com","message":"hi"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{}
			srv := newTestServer(ft, false)

			rec := postContact(t, srv, testAPIKey, tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want 400", rec.Code)
			}
			body := decodeBody(t, rec)
			if body["error"] != "Missing required fields" {
				t.Errorf("error: got %v", body["error"])
			}
			if ft.calls != 0 {
				t.Errorf("transport calls: got %d, want 0", ft.calls)
			}
		})
	}
}

func TestContact_InvalidEmail(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	srv := newTestServer(ft, false)

	body := `{"subject":"S","name":"A","email":"not-an-email","message":"hi"}`
	rec := postContact(t, srv, testAPIKey, body)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
	out := decodeBody(t, rec)
	if out["error"] != "Invalid email" {
		t.Errorf("error: got %v", out["error"])
	}
	if ft.calls != 0 {
		t.Errorf("transport calls: got %d, want 0", ft.calls)
	}
}

func TestContact_HeaderInjectionNeutralized(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	srv := newTestServer(ft, false)

	body := `{"subject":"Hello\r\nBcc: evil@x.com","name":"A","email":"a@example.com","message":"hi"}`
	rec := postContact(t, srv, testAPIKey, body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	if strings.ContainsAny(ft.msg.Subject, "\r\n") {
		t.Errorf("dispatched subject contains CR/LF: %q", ft.msg.Subject)
	}
	if strings.Contains(ft.msg.TextBody, "\r\nBcc") {
		t.Errorf("dispatched text body carries injected header: %q", ft.msg.TextBody)
	}
}

func TestContact_TransportFailure(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{sendErr: errors.New("connection refused")}
	srv := newTestServer(ft, false)

	rec := postContact(t, srv, testAPIKey, validBody)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "Failed to send" {
		t.Errorf("error: got %v", body["error"])
	}
	if ft.calls != 1 {
		t.Errorf("transport calls: got %d, want exactly 1", ft.calls)
	}
}

func TestKeyMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		expected string
		got      string
		want     bool
	}{
		{"match", "secret", "secret", true},
		{"mismatch", "secret", "other", false},
		{"empty presented", "secret", "", false},
		{"empty expected", "", "secret", false},
		{"both empty", "", "", false},
		{"prefix", "secret", "secre", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keyMatches(tt.expected, tt.got); got != tt.want {
				t.Errorf("keyMatches(%q, %q): got %v, want %v", tt.expected, tt.got, got, tt.want)
			}
		})
	}
}

// Package contact defines the contact-form submission model and its
// validation rules.
package contact

import (
	"errors"
	"regexp"
	"strings"
)

// Field limits. Header-bound fields are clamped hard rather than rejected,
// so an over-long subject still produces a deliverable message.
const (
	maxHeaderLen  = 200
	maxEmailLen   = 256
	maxMessageLen = 10000
)

// Validation failures, mapped to HTTP 400 by the server.
var (
	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidEmail  = errors.New("invalid email")
)

// emailPattern is an RFC-5322-style address check: printable local part,
// dot-separated alphanumeric labels in the domain.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// crlfStripper removes carriage returns and line feeds from header-bound
// fields to neutralize header injection.
var crlfStripper = strings.NewReplacer("\r", "", "\n", "")

// Submission is one contact-form submission as received from the client.
// It lives only for the duration of a single request.
type Submission struct {
	Company string `json:"company,omitempty"`
	Subject string `json:"subject"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Validate checks required fields and normalizes the submission in place:
// header-bound fields lose CR/LF and are clamped, the message body loses
// NUL bytes and is clamped with newlines preserved. It returns
// ErrMissingFields or ErrInvalidEmail on rejection. No I/O is performed.
func (s *Submission) Validate() error {
	if strings.TrimSpace(s.Subject) == "" ||
		strings.TrimSpace(s.Name) == "" ||
		strings.TrimSpace(s.Email) == "" ||
		strings.TrimSpace(s.Message) == "" {
		return ErrMissingFields
	}

	s.Subject = sanitizeHeaderField(s.Subject, maxHeaderLen)
	s.Name = sanitizeHeaderField(s.Name, maxHeaderLen)
	s.Company = sanitizeHeaderField(s.Company, maxHeaderLen)
	s.Email = sanitizeHeaderField(s.Email, maxEmailLen)
	s.Message = sanitizeBody(s.Message)

	if !emailPattern.MatchString(s.Email) {
		return ErrInvalidEmail
	}

	return nil
}

// sanitizeHeaderField strips CR/LF, trims surrounding whitespace and clamps
// the field to max characters.
func sanitizeHeaderField(v string, max int) string {
	v = crlfStripper.Replace(v)
	v = strings.TrimSpace(v)
	return truncate(v, max)
}

// sanitizeBody removes NUL bytes and clamps the message body. Newlines are
// preserved.
func sanitizeBody(v string) string {
	v = strings.ReplaceAll(v, "\x00", "")
	v = strings.TrimSpace(v)
	return truncate(v, maxMessageLen)
}

// truncate clamps v to max runes.
func truncate(v string, max int) string {
	runes := []rune(v)
	if len(runes) <= max {
		return v
	}
	return string(runes[:max])
}

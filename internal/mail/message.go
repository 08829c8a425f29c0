// Package mail defines the outbound message model and composes messages
// from validated contact submissions.
package mail

// Message represents a composed email ready for dispatch. It is built once
// from a validated submission, consumed once by a transport, and discarded.
type Message struct {
	From     string
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

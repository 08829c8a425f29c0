package mail

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shineum/mail-relay-lite/internal/contact"
)

// subjectPrefix marks relayed messages in the recipient's inbox.
const subjectPrefix = "[Contact]"

// timestampLayout is ISO-8601 truncated to seconds with a space separating
// date and time.
const timestampLayout = "2006-01-02 15:04:05"

// Compose builds a Message from a validated submission. The result is
// deterministic for a given submission, timestamp and address pair.
func Compose(sub *contact.Submission, now time.Time, from, to string) *Message {
	ts := now.Format(timestampLayout)

	subject := fmt.Sprintf("%s %s", subjectPrefix, sub.Subject)
	if sub.Company != "" {
		subject += fmt.Sprintf(" (%s)", sub.Company)
	}
	subject += " - " + ts

	return &Message{
		From:     from,
		To:       to,
		Subject:  subject,
		TextBody: composeText(sub, ts),
		HTMLBody: composeHTML(sub, ts),
	}
}

// composeText renders the plain-text body: metadata lines, a blank line,
// then the message.
func composeText(sub *contact.Submission, ts string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Date: %s\n", ts)
	fmt.Fprintf(&b, "Subject: %s\n", sub.Subject)
	fmt.Fprintf(&b, "From: %s <%s>\n", sub.Name, sub.Email)
	if sub.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", sub.Company)
	}
	b.WriteString("\n")
	b.WriteString(sub.Message)
	b.WriteString("\n")

	return b.String()
}

// composeHTML renders the HTML body: a metadata table followed by the
// message in a pre block. Every interpolated field is HTML-escaped; the
// markup itself stays attribute-free so the sanitizer passes it through
// unchanged.
func composeHTML(sub *contact.Submission, ts string) string {
	var b strings.Builder

	b.WriteString("<div>\n<table>\n")
	writeRow(&b, "Date", ts)
	writeRow(&b, "Subject", sub.Subject)
	writeRow(&b, "From", fmt.Sprintf("%s <%s>", sub.Name, sub.Email))
	if sub.Company != "" {
		writeRow(&b, "Company", sub.Company)
	}
	b.WriteString("</table>\n")
	fmt.Fprintf(&b, "<pre>%s</pre>\n</div>\n", html.EscapeString(sub.Message))

	return b.String()
}

func writeRow(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "<tr><td><strong>%s</strong></td><td>%s</td></tr>\n",
		label, html.EscapeString(value))
}

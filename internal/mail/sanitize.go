package mail

import "github.com/microcosm-cc/bluemonday"

// policy is the HTML sanitization policy applied to every composed body
// before dispatch. The UGC policy keeps the table and pre markup the
// composer emits while removing scripts, event handlers and dangerous
// URL schemes. Policies are safe for concurrent use once built.
var policy = bluemonday.UGCPolicy()

// SanitizeHTML neutralizes any markup that survived field escaping.
// The composed HTML only interpolates escaped values, so this is a second
// line of defense against injected content.
func SanitizeHTML(s string) string {
	return policy.Sanitize(s)
}

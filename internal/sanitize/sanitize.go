// Package sanitize turns backend-provided text into plain text before it is
// shown on a page. The backend's messages are echoed into flash banners and
// form errors, so any markup in them is stripped with bluemonday's strict
// policy.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// maxMessageLen caps a displayed backend message.
const maxMessageLen = 300

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text strips all HTML from input and collapses whitespace. Entities the
// policy escapes are decoded again: the result is escaped once more when
// the page renders it.
func Text(input string) string {
	if input == "" {
		return ""
	}
	out := html.UnescapeString(getPolicy().Sanitize(input))
	out = strings.Join(strings.Fields(out), " ")
	if r := []rune(out); len(r) > maxMessageLen {
		out = string(r[:maxMessageLen]) + "…"
	}
	return out
}

// Message returns the sanitized backend message, or fallback when nothing
// readable is left.
func Message(input, fallback string) string {
	if out := Text(input); out != "" {
		return out
	}
	return fallback
}

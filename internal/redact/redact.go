// Package redact removes sensitive fragments from strings before they are
// logged or returned to API clients: bearer tokens, secrets, filesystem paths
// and stack traces that can surface in task failure messages.
package redact

import "regexp"

// Placeholders substituted for redacted fragments.
const (
	RedactedPathPlaceholder   = "[REDACTED_PATH]"
	RedactedKeyPlaceholder    = "[REDACTED_KEY]"
	RedactedJWTPlaceholder    = "[REDACTED_JWT]"
	RedactedStackPlaceholder  = "[STACK_TRACE_REDACTED]"
	RedactedBearerPlaceholder = "Bearer [REDACTED_CREDENTIAL]"
)

type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// Order matters: tokens are removed before the generic key and path rules
// can split them.
var rules = []rule{
	{regexp.MustCompile(`goroutine \d+ \[[^\]]*\]:[\s\S]*`), RedactedStackPlaceholder},
	{regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_\-.~+/=]+`), RedactedBearerPlaceholder},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), RedactedJWTPlaceholder},
	{
		regexp.MustCompile(`(?i)((?:api[_-]?key|token[_-]?secret|secret|token|password)\s*[:=]\s*)['"]?[^'"\s&,]{8,}['"]?`),
		"${1}" + RedactedKeyPlaceholder,
	},
	{regexp.MustCompile(`(/[\w.-]+){2,}`), RedactedPathPlaceholder},
	{regexp.MustCompile(`[A-Za-z]:\\[^\\\s]+(\\[^\\\s]+)+`), RedactedPathPlaceholder},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

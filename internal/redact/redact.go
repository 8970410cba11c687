// Package redact strips sensitive fragments from strings before they
// are logged. Raw persistence errors can carry connection strings, SQL
// text and host names; operators get a redacted rendering and callers
// never see the raw text at all.
package redact

import (
	"regexp"
)

// Redaction placeholders
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	SQLPlaceholder        = "[REDACTED_SQL]"
	HostPlaceholder       = "[REDACTED_HOST]"
	TokenPlaceholder      = "[REDACTED_TOKEN]"
)

var (
	// Database connection strings with embedded credentials.
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|postgresql|mysql)://[^@\s]+@`)

	// Bare password/secret assignments.
	credentialRegex = regexp.MustCompile(
		`(?i)(password|passwd|pwd|secret|api[_-]?key)([=:\s]['"]?)[^'"&\s]{3,}`,
	)

	// JWTs: three dot-separated base64url segments starting with eyJ.
	jwtRegex = regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`)

	// SQL statement fragments that drivers embed in error text.
	sqlRegex = regexp.MustCompile(
		`(?i)(SELECT|INSERT|UPDATE|DELETE)\s[\s\w,.*()=$'"]*(?:FROM|INTO|SET|WHERE)[\s\w,.*()=$'"]*`,
	)

	// host:port endpoints.
	hostPortRegex = regexp.MustCompile(
		`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}:\d{1,5}\b`,
	)

	patterns = []struct {
		re          *regexp.Regexp
		placeholder string
	}{
		{dbConnRegex, CredentialPlaceholder},
		{credentialRegex, CredentialPlaceholder},
		{jwtRegex, TokenPlaceholder},
		{sqlRegex, SQLPlaceholder},
		{hostPortRegex, HostPlaceholder},
	}
)

// String returns s with all recognized sensitive fragments replaced by
// placeholders.
func String(s string) string {
	for _, p := range patterns {
		s = p.re.ReplaceAllString(s, p.placeholder)
	}
	return s
}

// Error returns the redacted rendering of err's message, or "" for nil.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

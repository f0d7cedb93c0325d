package db

import (
	"regexp"
	"strings"
)

var kvPairRegex = regexp.MustCompile(`(?i)\b(host|user|password|dbname|port|sslmode)=`)

// IsPostgresDSN reports whether raw selects the postgres driver: either a
// URL-style DSN or a lib/pq key=value list. Anything else is treated as a
// sqlite file path.
func IsPostgresDSN(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://") || kvPairRegex.MatchString(s)
}

// NormalizeDSN trims quotes/whitespace and, for key=value form, collapses
// spacing and supplements a missing sslmode with a disable default.
func NormalizeDSN(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'")
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return s
	}
	if !kvPairRegex.MatchString(s) {
		return s
	}
	cleaned := strings.Join(strings.Fields(s), " ")
	if !strings.Contains(strings.ToLower(cleaned), "sslmode=") {
		cleaned += " sslmode=disable"
	}
	return cleaned
}

var passwordRegex = regexp.MustCompile(`(password=)([^\s]+)`)

// MaskDSN hides the password for diagnostics logging.
func MaskDSN(dsn string) string {
	if strings.Contains(dsn, "password=") {
		return passwordRegex.ReplaceAllString(dsn, `${1}***`)
	}
	return dsn
}

package common

import (
	"strconv"
	"strings"
)

const ENABLED = "enabled"

// IsEmpty reports whether s is blank after trimming.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// NormalizeEmail lowercases and trims an e-mail address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ParseInt64 parses s, returning def when s is empty or malformed.
func ParseInt64(s string, def int64) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return def
	}
	return v
}

// StringPtr returns nil for blank strings, otherwise a pointer to the trimmed value.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

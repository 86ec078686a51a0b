// Package inputval holds format checks for user-supplied identifiers.
package inputval

import (
	"net/url"
	"strings"
	"unicode"
)

// MaxUIDLen is the longest subject id the identity provider issues.
const MaxUIDLen = 128

// IsValidEmail reports whether s is a bare addr-spec (no display name).
// Single-label domains are accepted.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "<>()[],;:\"\\") {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			return false
		}
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	local, domain := s[:at], s[at+1:]
	if strings.Contains(local, "@") || !dotAtom(local) || !dotAtom(domain) {
		return false
	}
	for _, r := range domain {
		if r != '.' && r != '-' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func dotAtom(s string) bool {
	return s != "" &&
		!strings.HasPrefix(s, ".") &&
		!strings.HasSuffix(s, ".") &&
		!strings.Contains(s, "..")
}

// IsValidHTTPURL reports whether s is an absolute http or https URL.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsValidUID reports whether s can be an identity-provider subject id:
// 1 to MaxUIDLen bytes, no whitespace or slashes.
func IsValidUID(s string) bool {
	if s == "" || len(s) > MaxUIDLen {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == '/' {
			return false
		}
	}
	return true
}

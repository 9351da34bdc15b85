// Package urlutil validates and normalizes destination URLs.
package urlutil

import (
	"net/url"
	"regexp"
	"strings"
)

const defaultScheme = "https://"

// schemeRe matches a leading RFC 3986 scheme. Hosts such as "127.0.0.1:5000"
// do not match because a scheme must start with a letter.
var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)

// IsValid reports whether s is an absolute http or https URL with a host.
// Input that cannot be parsed is reported as invalid.
func IsValid(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	return u.Host != ""
}

// Normalize trims s and prepends "https://" when it does not start with a scheme.
// Whether the result is a usable URL is left to IsValid.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || schemeRe.MatchString(s) {
		return s
	}

	return defaultScheme + s
}

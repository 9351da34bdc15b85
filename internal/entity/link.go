// Package entity defines the link entity and the errors shared across the application.
// A link maps a short code to its destination URL and carries the metadata
// collected on redirects.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrInvalidURL is returned when the destination is not an absolute http or https URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidExpiry is returned when the expiry is not a positive number of days.
	ErrInvalidExpiry = errors.New("invalid expiry")
	// ErrInvalidCustomCode is returned when a custom short code has a bad format or is reserved.
	ErrInvalidCustomCode = errors.New("invalid custom code")
	// ErrShortCodeTaken is returned when the short code already belongs to another link.
	ErrShortCodeTaken = errors.New("short code taken")
	// ErrLinkNotFound is returned when no live link exists for a short code.
	ErrLinkNotFound = errors.New("link not found")
)

// Error kinds reported to clients.
const (
	KindInvalidURL        = "invalid_url"
	KindInvalidExpiry     = "invalid_expiry"
	KindInvalidCustomCode = "invalid_custom_code"
	KindCodeTaken         = "code_taken"
	KindNotFound          = "not_found"
)

// ErrorKind maps err to its client-facing kind, or "" when err is not part of the taxonomy.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidURL):
		return KindInvalidURL
	case errors.Is(err, ErrInvalidExpiry):
		return KindInvalidExpiry
	case errors.Is(err, ErrInvalidCustomCode):
		return KindInvalidCustomCode
	case errors.Is(err, ErrShortCodeTaken):
		return KindCodeTaken
	case errors.Is(err, ErrLinkNotFound):
		return KindNotFound
	default:
		return ""
	}
}

// Link represents a shortened URL.
type Link struct {
	ID           int64      // ID is assigned by the store on insert and never changes.
	ShortCode    string     // ShortCode is derived from ID or supplied by the caller.
	LongURL      string     // LongURL is the destination the short code redirects to.
	Hits         int64      // Hits counts successful redirects.
	CreatedAt    time.Time  // CreatedAt is set once when the link is inserted.
	LastAccessed *time.Time // LastAccessed is nil until the first redirect.
	ExpiresAt    *time.Time // ExpiresAt is nil for links that never expire.
}

// IsExpired reports whether the link has an expiry that lies before now.
// Expired links stay stored but no longer resolve.
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// LinkView is a read-only projection of a link with its expiry state computed.
type LinkView struct {
	Link
	Expired bool
}

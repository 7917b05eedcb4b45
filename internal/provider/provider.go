package provider

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/coverart/internal/version"
)

// ProviderName uniquely identifies an upstream web service.
type ProviderName string

// Known provider names.
const (
	NameMusicBrainz     ProviderName = "musicbrainz"
	NameCoverArtArchive ProviderName = "coverartarchive"
)

// AllProviderNames returns all known provider names in display order.
func AllProviderNames() []ProviderName {
	return []ProviderName{NameCoverArtArchive, NameMusicBrainz}
}

// DisplayName returns a human-readable name for the provider.
func (n ProviderName) DisplayName() string {
	switch n {
	case NameMusicBrainz:
		return "MusicBrainz"
	case NameCoverArtArchive:
		return "Cover Art Archive"
	default:
		return string(n)
	}
}

// UserAgent builds the User-Agent both services ask clients to send. contact
// should be a URL or e-mail address where the operator can be reached.
func UserAgent(contact string) string {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		contact = "https://github.com/sydlexius/coverart"
	}
	return fmt.Sprintf("coverart/%s ( %s )", version.Version, contact)
}

// ParseRetryAfter reads a Retry-After header given either as seconds or as
// an HTTP date. Missing, past or unparsable values yield zero.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

// ErrProviderUnavailable indicates a transient failure (rate-limited, timeout, server error).
// RetryAfter is what the server asked for, if anything; nothing here retries.
type ErrProviderUnavailable struct {
	Provider   ProviderName
	Cause      error
	RetryAfter time.Duration
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Cause }

// ErrNotFound indicates the provider has nothing for the requested resource.
type ErrNotFound struct {
	Provider ProviderName
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("provider %s: %s not found", e.Provider, e.ID)
}

// ErrBadRequest indicates the provider rejected the request, e.g. an MBID it
// does not accept.
type ErrBadRequest struct {
	Provider ProviderName
	Detail   string
}

func (e *ErrBadRequest) Error() string {
	return fmt.Sprintf("provider %s: bad request: %s", e.Provider, e.Detail)
}

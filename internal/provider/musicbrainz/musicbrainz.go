package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sydlexius/coverart/internal/provider"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2"

// ReleaseMatch is one candidate release for an artist/album search.
type ReleaseMatch struct {
	ID             string
	Title          string
	Artist         string
	Score          int
	ReleaseGroupID string
}

// Adapter looks up release MBIDs in MusicBrainz.
type Adapter struct {
	client    *http.Client
	limiter   *provider.RateLimiterMap
	logger    *slog.Logger
	baseURL   string
	userAgent string
}

// New creates a MusicBrainz adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger, userAgent string) *Adapter {
	return NewWithBaseURL(limiter, logger, userAgent, defaultBaseURL)
}

// NewWithBaseURL creates a MusicBrainz adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, userAgent, baseURL string) *Adapter {
	return &Adapter{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:   limiter,
		logger:    logger.With(slog.String("provider", string(provider.NameMusicBrainz))),
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
	}
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameMusicBrainz }

// SearchReleases searches MusicBrainz for releases of album by artist. Results
// keep the server's order, best score first.
func (a *Adapter) SearchReleases(ctx context.Context, artist, album string) ([]ReleaseMatch, error) {
	if strings.TrimSpace(artist) == "" || strings.TrimSpace(album) == "" {
		return nil, fmt.Errorf("artist and album are required")
	}

	params := url.Values{
		"query": {fmt.Sprintf("release:%s AND artist:%s", quote(album), quote(artist))},
		"fmt":   {"json"},
		"limit": {"25"},
	}
	reqURL := a.baseURL + "/release?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp ReleaseSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing release search response: %w", err)
	}

	matches := make([]ReleaseMatch, 0, len(resp.Releases))
	for _, r := range resp.Releases {
		m := ReleaseMatch{
			ID:     r.ID,
			Title:  r.Title,
			Artist: creditedName(r.ArtistCredit),
			Score:  r.Score,
		}
		if r.ReleaseGroup != nil {
			m.ReleaseGroupID = r.ReleaseGroup.ID
		}
		matches = append(matches, m)
	}

	a.logger.Debug("release search",
		slog.String("artist", artist),
		slog.String("album", album),
		slog.Int("matches", len(matches)),
	)
	return matches, nil
}

// TestConnection verifies connectivity to the MusicBrainz API.
func (a *Adapter) TestConnection(ctx context.Context) error {
	params := url.Values{
		"query": {"test"},
		"fmt":   {"json"},
		"limit": {"1"},
	}
	_, err := a.doRequest(ctx, a.baseURL+"/release?"+params.Encode())
	return err
}

// doRequest executes an HTTP GET with rate limiting and standard headers.
func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, provider.NameMusicBrainz); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + encoded query
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrNotFound{
			Provider: provider.NameMusicBrainz,
			ID:       reqURL,
		}
	}

	if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrProviderUnavailable{
			Provider:   provider.NameMusicBrainz,
			Cause:      fmt.Errorf("HTTP %d", resp.StatusCode),
			RetryAfter: provider.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    fmt.Errorf("unexpected HTTP %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    fmt.Errorf("reading response: %w", err),
		}
	}
	return body, nil
}

// creditedName joins an artist credit the way MusicBrainz displays it.
func creditedName(credits []MBArtistCredit) string {
	var b strings.Builder
	for _, c := range credits {
		name := c.Name
		if name == "" {
			name = c.Artist.Name
		}
		b.WriteString(name)
		b.WriteString(c.JoinPhrase)
	}
	return b.String()
}

// quote turns a term into a Lucene phrase.
func quote(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(strings.TrimSpace(term)) + `"`
}

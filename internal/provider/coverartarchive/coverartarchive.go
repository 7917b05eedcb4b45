package coverartarchive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sydlexius/coverart/internal/coverart"
	"github.com/sydlexius/coverart/internal/provider"
)

const (
	defaultBaseURL = "https://coverartarchive.org"
	defaultTimeout = 10 * time.Second
)

// Response body limits.
var (
	maxMetadataBytes = 4 << 20
	maxImageBytes    = 64 << 20
)

// Entity is the kind of MusicBrainz entity cover art is attached to.
type Entity string

// Entities the archive serves art for.
const (
	EntityRelease      Entity = "release"
	EntityReleaseGroup Entity = "release-group"
)

// Image is a downloaded image payload.
type Image struct {
	Data        []byte
	ContentType string
	// URL is the final location the bytes were served from, after redirects.
	URL string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithUserAgent sets the User-Agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(a *Adapter) { a.userAgent = ua }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.client.Timeout = d }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// Adapter talks to the Cover Art Archive. Each call issues exactly one
// request; nothing is cached or retried.
type Adapter struct {
	client    *http.Client
	limiter   *provider.RateLimiterMap
	logger    *slog.Logger
	baseURL   string
	userAgent string
}

// New creates a Cover Art Archive adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger, opts ...Option) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL, opts...)
}

// NewWithBaseURL creates a Cover Art Archive adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string, opts ...Option) *Adapter {
	a := &Adapter{
		client: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter:   limiter,
		logger:    logger.With(slog.String("provider", string(provider.NameCoverArtArchive))),
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: provider.UserAgent(""),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the provider name.
func (a *Adapter) Name() provider.ProviderName { return provider.NameCoverArtArchive }

// GetReleaseInfo fetches the image listing of a release.
func (a *Adapter) GetReleaseInfo(ctx context.Context, mbid string) (*coverart.Release, error) {
	return a.getInfo(ctx, EntityRelease, mbid)
}

// GetReleaseGroupInfo fetches the image listing of the release chosen as the
// release group's cover.
func (a *Adapter) GetReleaseGroupInfo(ctx context.Context, mbid string) (*coverart.Release, error) {
	return a.getInfo(ctx, EntityReleaseGroup, mbid)
}

// GetReleaseFront downloads the front image of a release.
func (a *Adapter) GetReleaseFront(ctx context.Context, mbid string, size coverart.Size) (*Image, error) {
	return a.getImage(ctx, EntityRelease, mbid, "front", size)
}

// GetReleaseBack downloads the back image of a release.
func (a *Adapter) GetReleaseBack(ctx context.Context, mbid string, size coverart.Size) (*Image, error) {
	return a.getImage(ctx, EntityRelease, mbid, "back", size)
}

// GetReleaseImage downloads one image of a release by its id.
func (a *Adapter) GetReleaseImage(ctx context.Context, mbid, imageID string, size coverart.Size) (*Image, error) {
	if imageID == "" {
		return nil, errors.New("image id is required")
	}
	return a.getImage(ctx, EntityRelease, mbid, imageID, size)
}

// GetReleaseGroupFront downloads the front image of a release group.
func (a *Adapter) GetReleaseGroupFront(ctx context.Context, mbid string, size coverart.Size) (*Image, error) {
	return a.getImage(ctx, EntityReleaseGroup, mbid, "front", size)
}

// FetchImage downloads an image from a URL taken from decoded metadata.
func (a *Adapter) FetchImage(ctx context.Context, rawURL string) (*Image, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid image URL %q", rawURL)
	}
	return a.download(ctx, u.String(), rawURL)
}

// TestConnection verifies connectivity to the archive.
func (a *Adapter) TestConnection(ctx context.Context) error {
	resp, err := a.doRequest(ctx, a.baseURL+"/", "text/html", "index")
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (a *Adapter) getInfo(ctx context.Context, entity Entity, mbid string) (*coverart.Release, error) {
	id, err := parseMBID(mbid)
	if err != nil {
		return nil, err
	}
	resource := string(entity) + "/" + id
	resp, err := a.doRequest(ctx, a.baseURL+"/"+resource, "application/json", resource)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxMetadataBytes)+1))
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameCoverArtArchive,
			Cause:    fmt.Errorf("reading metadata: %w", err),
		}
	}
	if len(body) > maxMetadataBytes {
		return nil, fmt.Errorf("metadata for %s exceeds %d bytes", resource, maxMetadataBytes)
	}

	rel, err := coverart.DecodeRelease(bytes.NewReader(body), coverart.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("decoding cover art metadata: %w", err)
	}

	a.logger.Debug("decoded release",
		slog.String("resource", resource),
		slog.Int("images", len(rel.Images())),
	)
	return rel, nil
}

func (a *Adapter) getImage(ctx context.Context, entity Entity, mbid, image string, size coverart.Size) (*Image, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%s does not support image size %d", entity, int(size))
	}
	id, err := parseMBID(mbid)
	if err != nil {
		return nil, err
	}
	resource := string(entity) + "/" + id + "/" + url.PathEscape(image) + size.Suffix()
	return a.download(ctx, a.baseURL+"/"+resource, resource)
}

func (a *Adapter) download(ctx context.Context, reqURL, resource string) (*Image, error) {
	resp, err := a.doRequest(ctx, reqURL, "image/*", resource)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxImageBytes)+1))
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameCoverArtArchive,
			Cause:    fmt.Errorf("reading image: %w", err),
		}
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image %s exceeds %d bytes", resource, maxImageBytes)
	}

	finalURL := reqURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Image{
		Data:        data,
		ContentType: contentType(resp.Header.Get("Content-Type"), finalURL),
		URL:         finalURL,
	}, nil
}

// doRequest executes an HTTP GET with rate limiting and standard headers. On
// success the caller owns the response body.
func (a *Adapter) doRequest(ctx context.Context, reqURL, accept, resource string) (*http.Response, error) {
	if err := a.limiter.Wait(ctx, provider.NameCoverArtArchive); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameCoverArtArchive,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", accept)

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + validated MBID
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameCoverArtArchive,
			Cause:    err,
		}
	}

	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close() //nolint:errcheck,gosec

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, &provider.ErrNotFound{
			Provider: provider.NameCoverArtArchive,
			ID:       resource,
		}
	case http.StatusBadRequest:
		return nil, &provider.ErrBadRequest{
			Provider: provider.NameCoverArtArchive,
			Detail:   resource,
		}
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
		return nil, &provider.ErrProviderUnavailable{
			Provider:   provider.NameCoverArtArchive,
			Cause:      fmt.Errorf("HTTP %d", resp.StatusCode),
			RetryAfter: provider.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	default:
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameCoverArtArchive,
			Cause:    fmt.Errorf("unexpected HTTP %d", resp.StatusCode),
		}
	}
}

// parseMBID validates an MBID and returns it in canonical lower-case form.
func parseMBID(mbid string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(mbid))
	if err != nil {
		return "", fmt.Errorf("invalid MBID %q: %w", mbid, err)
	}
	return id.String(), nil
}

// contentType prefers the server's header and falls back to the extension of
// the URL the bytes came from.
func contentType(header, finalURL string) string {
	if header != "" {
		if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "application/octet-stream" {
			return mt
		}
	}
	u, err := url.Parse(finalURL)
	if err != nil {
		return "application/octet-stream"
	}
	if mt := mime.TypeByExtension(path.Ext(u.Path)); mt != "" {
		if base, _, err := mime.ParseMediaType(mt); err == nil {
			return base
		}
	}
	return "application/octet-stream"
}

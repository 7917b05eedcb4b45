package coverartarchive

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sydlexius/coverart/internal/coverart"
	"github.com/sydlexius/coverart/internal/provider"
)

const (
	releaseMBID      = "76df3287-6cda-33eb-8e9a-044b5e15ffdd"
	releaseGroupMBID = "c31a5e2b-0bf8-32e0-8aeb-ef4ba9973932"
	missingMBID      = "00000000-0000-0000-0000-000000000404"
	busyMBID         = "00000000-0000-0000-0000-000000000503"
	brokenMBID       = "00000000-0000-0000-0000-000000000500"
	badJSONMBID      = "00000000-0000-0000-0000-0000000000aa"
	badRequestMBID   = "00000000-0000-0000-0000-000000000400"
	cutOffMBID       = "00000000-0000-0000-0000-0000000000cc"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nnot really a png")

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		switch r.URL.Path {
		case "/":
			w.Write([]byte("<html></html>"))
		case "/release/" + releaseMBID:
			w.Header().Set("Content-Type", "application/json")
			w.Write(loadFixture(t, "release.json"))
		case "/release-group/" + releaseGroupMBID:
			w.Header().Set("Content-Type", "application/json")
			w.Write(loadFixture(t, "release_group.json"))
		case "/release/" + badJSONMBID:
			w.Write([]byte(`{"release":"x","images":[{"id":true}]}`))
		case "/release/" + busyMBID:
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/release/" + brokenMBID:
			w.WriteHeader(http.StatusInternalServerError)
		case "/release/" + badRequestMBID:
			w.WriteHeader(http.StatusBadRequest)
		case "/release/" + cutOffMBID:
			// promise more than is sent so the client sees the connection drop
			w.Header().Set("Content-Length", "4096")
			w.Write([]byte(`{"release":"x","images":[`))
		case "/release/" + releaseMBID + "/front-500":
			// the archive redirects to the storage host
			http.Redirect(w, r, "/download/829521842-500.jpg", http.StatusTemporaryRedirect)
		case "/download/829521842-500.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("jpeg-bytes"))
		case "/release/" + releaseMBID + "/back":
			w.Header().Set("Content-Type", "application/octet-stream")
			http.Redirect(w, r, "/download/829522096.png", http.StatusFound)
		case "/download/829522096.png":
			w.Write(pngBytes)
		case "/release/" + releaseMBID + "/829522200-1200":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("booklet"))
		case "/release-group/" + releaseGroupMBID + "/front-250":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("group-front"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	limiter := provider.NewRateLimiterMap()
	limiter.SetLimit(provider.NameCoverArtArchive, 0)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewWithBaseURL(limiter, logger, baseURL,
		WithHTTPClient(&http.Client{Timeout: 5 * time.Second}),
		WithUserAgent("coverart-test/1.0 ( test@example.com )"),
	)
}

// setLimit lowers a body limit for the duration of a test.
func setLimit(t *testing.T, limit *int, n int) {
	t.Helper()
	old := *limit
	*limit = n
	t.Cleanup(func() { *limit = old })
}

type countingTransport struct {
	calls int
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls++
	return http.DefaultTransport.RoundTrip(r)
}

func TestName(t *testing.T) {
	a := newTestAdapter(t, "http://localhost")
	if a.Name() != provider.NameCoverArtArchive {
		t.Errorf("expected %s, got %s", provider.NameCoverArtArchive, a.Name())
	}
}

func TestGetReleaseInfo(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	rel, err := a.GetReleaseInfo(context.Background(), releaseMBID)
	if err != nil {
		t.Fatalf("GetReleaseInfo: %v", err)
	}
	if rel.Location() != "https://musicbrainz.org/release/"+releaseMBID {
		t.Errorf("unexpected location: %s", rel.Location())
	}
	if len(rel.Images()) != 3 {
		t.Fatalf("expected 3 images, got %d", len(rel.Images()))
	}
	front, ok := rel.Front()
	if !ok || front.ID() != "829521842" {
		t.Errorf("unexpected front image")
	}
}

func TestGetReleaseInfo_UpperCaseMBID(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	if _, err := a.GetReleaseInfo(context.Background(), strings.ToUpper(releaseMBID)); err != nil {
		t.Fatalf("expected MBID to be canonicalized, got %v", err)
	}
}

func TestGetReleaseGroupInfo(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	rel, err := a.GetReleaseGroupInfo(context.Background(), releaseGroupMBID)
	if err != nil {
		t.Fatalf("GetReleaseGroupInfo: %v", err)
	}
	if len(rel.Images()) != 1 || rel.Images()[0].ID() != "1234567890" {
		t.Errorf("unexpected images: %v", rel.Images())
	}
}

func TestGetReleaseInfo_InvalidMBID(t *testing.T) {
	a := newTestAdapter(t, "http://127.0.0.1:1")
	_, err := a.GetReleaseInfo(context.Background(), "not-a-uuid")
	if err == nil || !strings.Contains(err.Error(), "invalid MBID") {
		t.Fatalf("expected invalid MBID error, got %v", err)
	}
}

func TestGetReleaseInfo_NotFound(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	_, err := a.GetReleaseInfo(context.Background(), missingMBID)
	var notFound *provider.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %T: %v", err, err)
	}
	if notFound.ID != "release/"+missingMBID {
		t.Errorf("unexpected resource: %s", notFound.ID)
	}
}

func TestGetReleaseInfo_Unavailable(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	_, err := a.GetReleaseInfo(context.Background(), busyMBID)
	var unavail *provider.ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got %T: %v", err, err)
	}
	if unavail.RetryAfter != 7*time.Second {
		t.Errorf("expected RetryAfter 7s, got %s", unavail.RetryAfter)
	}

	_, err = a.GetReleaseInfo(context.Background(), brokenMBID)
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable for 500, got %v", err)
	}
}

func TestGetReleaseInfo_BadRequest(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	_, err := a.GetReleaseInfo(context.Background(), badRequestMBID)
	var badReq *provider.ErrBadRequest
	if !errors.As(err, &badReq) {
		t.Fatalf("expected ErrBadRequest, got %T: %v", err, err)
	}
	if badReq.Provider != provider.NameCoverArtArchive {
		t.Errorf("unexpected provider: %s", badReq.Provider)
	}
}

func TestGetReleaseInfo_TooLarge(t *testing.T) {
	setLimit(t, &maxMetadataBytes, 16)
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	_, err := a.GetReleaseInfo(context.Background(), releaseMBID)
	if err == nil || !strings.Contains(err.Error(), "exceeds 16 bytes") {
		t.Fatalf("expected size error, got %v", err)
	}
	if errors.Is(err, coverart.ErrMalformedValue) {
		t.Errorf("size overrun reported as a decode error: %v", err)
	}
}

func TestGetReleaseInfo_ConnectionDropped(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	_, err := a.GetReleaseInfo(context.Background(), cutOffMBID)
	var unavail *provider.ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got %T: %v", err, err)
	}
	if strings.Contains(err.Error(), "decoding") {
		t.Errorf("transport failure reported as a decode error: %v", err)
	}
}

func TestGetReleaseFront_TooLarge(t *testing.T) {
	setLimit(t, &maxImageBytes, 4)
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	img, err := a.GetReleaseFront(context.Background(), releaseMBID, coverart.Size500)
	if img != nil {
		t.Error("expected no image")
	}
	if err == nil || !strings.Contains(err.Error(), "exceeds 4 bytes") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestWithHTTPClient(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	transport := &countingTransport{}
	a := NewWithBaseURL(provider.NewRateLimiterMap(), slog.New(slog.DiscardHandler), srv.URL,
		WithHTTPClient(&http.Client{Transport: transport}),
	)
	if _, err := a.GetReleaseInfo(context.Background(), releaseMBID); err != nil {
		t.Fatalf("GetReleaseInfo: %v", err)
	}
	if transport.calls != 1 {
		t.Errorf("expected 1 request through the custom client, got %d", transport.calls)
	}
}

func TestGetReleaseInfo_DecodeError(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	rel, err := a.GetReleaseInfo(context.Background(), badJSONMBID)
	if rel != nil {
		t.Error("expected no release")
	}
	if !errors.Is(err, coverart.ErrMalformedIdentifier) {
		t.Fatalf("expected ErrMalformedIdentifier, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "decoding cover art metadata: ") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestGetReleaseFront_FollowsRedirect(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	img, err := a.GetReleaseFront(context.Background(), releaseMBID, coverart.Size500)
	if err != nil {
		t.Fatalf("GetReleaseFront: %v", err)
	}
	if string(img.Data) != "jpeg-bytes" {
		t.Errorf("unexpected data: %q", img.Data)
	}
	if img.ContentType != "image/jpeg" {
		t.Errorf("unexpected content type: %s", img.ContentType)
	}
	if !strings.HasSuffix(img.URL, "/download/829521842-500.jpg") {
		t.Errorf("expected final URL after redirect, got %s", img.URL)
	}
}

func TestGetReleaseBack_ContentTypeFromExtension(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	img, err := a.GetReleaseBack(context.Background(), releaseMBID, coverart.SizeOriginal)
	if err != nil {
		t.Fatalf("GetReleaseBack: %v", err)
	}
	if !bytes.Equal(img.Data, pngBytes) {
		t.Errorf("unexpected data")
	}
	if img.ContentType != "image/png" {
		t.Errorf("expected image/png, got %s", img.ContentType)
	}
}

func TestGetReleaseImage(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	img, err := a.GetReleaseImage(context.Background(), releaseMBID, "829522200", coverart.Size1200)
	if err != nil {
		t.Fatalf("GetReleaseImage: %v", err)
	}
	if string(img.Data) != "booklet" {
		t.Errorf("unexpected data: %q", img.Data)
	}

	if _, err := a.GetReleaseImage(context.Background(), releaseMBID, "", coverart.Size250); err == nil {
		t.Error("expected error for empty image id")
	}
}

func TestGetReleaseGroupFront(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	img, err := a.GetReleaseGroupFront(context.Background(), releaseGroupMBID, coverart.Size250)
	if err != nil {
		t.Fatalf("GetReleaseGroupFront: %v", err)
	}
	if string(img.Data) != "group-front" {
		t.Errorf("unexpected data: %q", img.Data)
	}
}

func TestGetImage_InvalidSize(t *testing.T) {
	a := newTestAdapter(t, "http://127.0.0.1:1")
	if _, err := a.GetReleaseFront(context.Background(), releaseMBID, coverart.Size(42)); err == nil {
		t.Error("expected error for invalid size")
	}
}

func TestGetReleaseFront_NotFound(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	_, err := a.GetReleaseFront(context.Background(), missingMBID, coverart.SizeOriginal)
	var notFound *provider.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchImage(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	img, err := a.FetchImage(context.Background(), srv.URL+"/download/829522096.png")
	if err != nil {
		t.Fatalf("FetchImage: %v", err)
	}
	if img.ContentType != "image/png" {
		t.Errorf("expected image/png, got %s", img.ContentType)
	}

	if _, err := a.FetchImage(context.Background(), "ftp://example.com/a.jpg"); err == nil {
		t.Error("expected error for non-http URL")
	}
}

func TestCanceledContext(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.GetReleaseInfo(ctx, releaseMBID)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestUserAgentSent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	if err := a.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	if got != "coverart-test/1.0 ( test@example.com )" {
		t.Errorf("unexpected User-Agent: %q", got)
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		header, url, want string
	}{
		{"image/jpeg; charset=binary", "http://x/a.png", "image/jpeg"},
		{"", "http://x/a.png", "image/png"},
		{"application/octet-stream", "http://x/a.gif", "image/gif"},
		{"", "http://x/noext", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := contentType(tt.header, tt.url); got != tt.want {
			t.Errorf("contentType(%q, %q) = %q, want %q", tt.header, tt.url, got, tt.want)
		}
	}
}

// Package artwork finds album covers starting from an artist and album name.
//
// It first asks MusicBrainz for releases matching the pair, then walks the
// candidates with a score of at least MinScore and returns the first front
// cover the Cover Art Archive has. Different releases of one album (years,
// countries, reissues) usually share the same cover, so any of them will do.
package artwork

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sydlexius/coverart/internal/coverart"
	"github.com/sydlexius/coverart/internal/provider"
	"github.com/sydlexius/coverart/internal/provider/coverartarchive"
	"github.com/sydlexius/coverart/internal/provider/musicbrainz"
)

// ErrImageNotFound is returned when no candidate release has a front cover.
var ErrImageNotFound = errors.New("image not found")

// DefaultMinScore is the search score a release needs to be considered.
const DefaultMinScore = 95

// ReleaseSearcher finds candidate releases for an artist/album pair.
type ReleaseSearcher interface {
	SearchReleases(ctx context.Context, artist, album string) ([]musicbrainz.ReleaseMatch, error)
}

// FrontFetcher downloads the front cover of a release.
type FrontFetcher interface {
	GetReleaseFront(ctx context.Context, mbid string, size coverart.Size) (*coverartarchive.Image, error)
}

// Result is a found cover together with the release that supplied it.
type Result struct {
	Image   *coverartarchive.Image
	Release musicbrainz.ReleaseMatch
}

// Finder resolves covers by name. It is safe for concurrent use when its
// collaborators are.
type Finder struct {
	// MinScore is the lowest MusicBrainz search score (0-100) a release may
	// have to be tried. Lowering it finds more covers, some of them wrong.
	MinScore int

	searcher ReleaseSearcher
	fetcher  FrontFetcher
	logger   *slog.Logger
}

// NewFinder returns a Finder using DefaultMinScore.
func NewFinder(searcher ReleaseSearcher, fetcher FrontFetcher, logger *slog.Logger) *Finder {
	return &Finder{
		MinScore: DefaultMinScore,
		searcher: searcher,
		fetcher:  fetcher,
		logger:   logger.With(slog.String("component", "artwork")),
	}
}

// FrontImage returns the front cover of album by artist.
func (f *Finder) FrontImage(ctx context.Context, artist, album string, size coverart.Size) (*Result, error) {
	matches, err := f.searcher.SearchReleases(ctx, artist, album)
	if err != nil {
		return nil, fmt.Errorf("searching releases: %w", err)
	}

	tried := 0
	for _, m := range matches {
		if m.Score < f.MinScore {
			continue
		}
		tried++

		img, err := f.fetcher.GetReleaseFront(ctx, m.ID, size)
		if err == nil {
			f.logger.Info("found cover",
				slog.String("artist", artist),
				slog.String("album", album),
				slog.String("mbid", m.ID),
			)
			return &Result{Image: img, Release: m}, nil
		}

		var notFound *provider.ErrNotFound
		if errors.As(err, &notFound) {
			f.logger.Debug("no cover for release", slog.String("mbid", m.ID))
			continue
		}
		return nil, fmt.Errorf("fetching front of %s: %w", m.ID, err)
	}

	f.logger.Debug("no cover found",
		slog.String("artist", artist),
		slog.String("album", album),
		slog.Int("candidates", tried),
	)
	return nil, ErrImageNotFound
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sydlexius/coverart/internal/coverart"
	"github.com/sydlexius/coverart/internal/filesystem"
	"github.com/sydlexius/coverart/internal/image"
	"github.com/sydlexius/coverart/internal/provider/coverartarchive"
)

func cmdInfo(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	fs := newFlagSet("info", stderr)
	common.register(fs)
	jobs := fs.Int("j", 4, "number of releases fetched at once")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: info needs at least one release MBID", errUsage)
	}
	if *jobs < 1 {
		return fmt.Errorf("%w: -j must be at least 1", errUsage)
	}

	a, err := newApp(common, stdout)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	mbids := fs.Args()
	releases := make([]*coverart.Release, len(mbids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*jobs)
	for i, mbid := range mbids {
		g.Go(func() error {
			rel, err := a.caa.GetReleaseInfo(gctx, mbid)
			if err != nil {
				return fmt.Errorf("%s: %w", mbid, err)
			}
			releases[i] = rel
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, rel := range releases {
		if err := a.out.release(newReleaseView(coverartarchive.EntityRelease, mbids[i], rel)); err != nil {
			return err
		}
	}
	return nil
}

func cmdGroup(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	fs := newFlagSet("group", stderr)
	common.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: group needs exactly one release group MBID", errUsage)
	}

	a, err := newApp(common, stdout)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	mbid := fs.Arg(0)
	rel, err := a.caa.GetReleaseGroupInfo(ctx, mbid)
	if err != nil {
		return err
	}
	return a.out.release(newReleaseView(coverartarchive.EntityReleaseGroup, mbid, rel))
}

func cmdFetch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	fs := newFlagSet("fetch", stderr)
	common.register(fs)
	which := fs.String("image", "front", `"front", "back" or an image id`)
	sizeFlag := fs.String("size", "original", "original, 250, 500 or 1200")
	group := fs.Bool("group", false, "treat the MBID as a release group (front only)")
	outPath := fs.String("o", "", "output file (default <output dir>/<mbid>-<image>.<ext>)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: fetch needs exactly one MBID", errUsage)
	}
	size, err := coverart.ParseSize(*sizeFlag)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *group && *which != "front" {
		return fmt.Errorf("%w: release groups only have a front image", errUsage)
	}
	if !validSelector(*which) {
		return fmt.Errorf("%w: invalid -image %q", errUsage, *which)
	}
	mbid, err := canonicalMBID(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	a, err := newApp(common, stdout)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	var img *coverartarchive.Image
	switch {
	case *group:
		img, err = a.caa.GetReleaseGroupFront(ctx, mbid, size)
	case *which == "front":
		img, err = a.caa.GetReleaseFront(ctx, mbid, size)
	case *which == "back":
		img, err = a.caa.GetReleaseBack(ctx, mbid, size)
	default:
		img, err = a.caa.GetReleaseImage(ctx, mbid, *which, size)
	}
	if err != nil {
		return err
	}

	view, err := a.save(img, mbid+"-"+*which+size.Suffix(), *outPath)
	if err != nil {
		return err
	}
	view.MBID = mbid
	view.Image = *which
	view.Size = size.String()
	return a.out.download(view)
}

func cmdFind(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	fs := newFlagSet("find", stderr)
	common.register(fs)
	artist := fs.String("artist", "", "artist name")
	album := fs.String("album", "", "album title")
	sizeFlag := fs.String("size", "original", "original, 250, 500 or 1200")
	minScore := fs.Int("min-score", -1, "lowest MusicBrainz match score to try, 0-100 (default from config)")
	outPath := fs.String("o", "", "output file (default <output dir>/<release mbid>-front.<ext>)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *artist == "" || *album == "" {
		return fmt.Errorf("%w: find needs -artist and -album", errUsage)
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("%w: unexpected arguments %q", errUsage, fs.Args())
	}
	size, err := coverart.ParseSize(*sizeFlag)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *minScore > 100 {
		return fmt.Errorf("%w: -min-score must be at most 100", errUsage)
	}

	a, err := newApp(common, stdout)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	if *minScore >= 0 {
		a.finder.MinScore = *minScore
	}

	res, err := a.finder.FrontImage(ctx, *artist, *album, size)
	if err != nil {
		return fmt.Errorf("%s - %s: %w", *artist, *album, err)
	}

	releaseID, err := canonicalMBID(res.Release.ID)
	if err != nil {
		return fmt.Errorf("musicbrainz returned %w", err)
	}
	view, err := a.save(res.Image, releaseID+"-front"+size.Suffix(), *outPath)
	if err != nil {
		return err
	}
	view.MBID = releaseID
	view.Image = "front"
	view.Size = size.String()
	view.Title = res.Release.Title
	view.Artist = res.Release.Artist
	view.Score = res.Release.Score
	return a.out.download(view)
}

func cmdPing(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	fs := newFlagSet("ping", stderr)
	common.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	a, err := newApp(common, stdout)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	statuses := a.registry.CheckAll(ctx)
	if err := a.out.statuses(statuses); err != nil {
		return err
	}
	for _, s := range statuses {
		if !s.OK {
			return fmt.Errorf("%s is unreachable", s.Provider.DisplayName())
		}
	}
	return nil
}

// canonicalMBID returns the lower-case hyphenated form of an MBID, so that
// braced or urn:uuid: spellings never reach a file name.
func canonicalMBID(s string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid MBID %q", s)
	}
	return id.String(), nil
}

// validSelector reports whether an image selector is safe to use as part of
// a file name.
func validSelector(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, "/\\\x00")
}

// save writes img to outPath, or under the configured output directory
// with an extension matching its content when outPath is empty.
func (a *app) save(img *coverartarchive.Image, baseName, outPath string) (downloadView, error) {
	var (
		path string
		info image.Info
		err  error
	)
	if outPath == "" {
		path, info, err = image.Save(a.cfg.Output.Dir, baseName, img.Data, a.logger)
		if err != nil {
			return downloadView{}, err
		}
	} else {
		info, err = image.Probe(img.Data)
		if err != nil {
			return downloadView{}, fmt.Errorf("probing image: %w", err)
		}
		if err := filesystem.WriteReaderAtomic(outPath, bytes.NewReader(img.Data), 0o644); err != nil {
			return downloadView{}, fmt.Errorf("writing %s: %w", outPath, err)
		}
		path = outPath
	}

	if declared := image.FormatFromContentType(img.ContentType); declared != "" && declared != info.Format {
		a.logger.Warn("content type does not match image data",
			slog.String("content_type", img.ContentType),
			slog.String("detected", info.Format),
			slog.String("url", img.URL))
	}

	return downloadView{
		Path:        path,
		URL:         img.URL,
		ContentType: img.ContentType,
		Info:        info,
	}, nil
}

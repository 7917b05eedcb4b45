package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sydlexius/coverart/internal/config"
	"github.com/sydlexius/coverart/internal/coverart"
	"github.com/sydlexius/coverart/internal/image"
	"github.com/sydlexius/coverart/internal/provider"
	"github.com/sydlexius/coverart/internal/provider/coverartarchive"
)

type releaseView struct {
	Entity    string         `json:"entity"`
	MBID      string         `json:"mbid"`
	Release   string         `json:"release"`
	Images    []imageView    `json:"images"`
	Unhandled map[string]any `json:"unhandled,omitempty"`
}

type imageView struct {
	ID         string            `json:"id"`
	Types      []string          `json:"types"`
	Front      bool              `json:"front"`
	Back       bool              `json:"back"`
	Approved   bool              `json:"approved"`
	Comment    string            `json:"comment"`
	Edit       int64             `json:"edit"`
	Image      string            `json:"image"`
	Thumbnails map[string]string `json:"thumbnails"`
	Unhandled  map[string]any    `json:"unhandled,omitempty"`
}

type downloadView struct {
	MBID        string `json:"mbid"`
	Title       string `json:"title,omitempty"`
	Artist      string `json:"artist,omitempty"`
	Score       int    `json:"score,omitempty"`
	Image       string `json:"image"`
	Size        string `json:"size"`
	Path        string `json:"path"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	image.Info
}

func newReleaseView(entity coverartarchive.Entity, mbid string, rel *coverart.Release) releaseView {
	v := releaseView{
		Entity:    string(entity),
		MBID:      mbid,
		Release:   rel.Location(),
		Images:    []imageView{},
		Unhandled: unhandledView(rel.Unhandled()),
	}
	for _, img := range rel.Images() {
		v.Images = append(v.Images, newImageView(img))
	}
	return v
}

func newImageView(img *coverart.Image) imageView {
	thumbs := img.Thumbnails()
	types := img.Types().Tags()
	if types == nil {
		types = []string{}
	}
	named := map[string]string{
		"small": thumbs.Small(),
		"large": thumbs.Large(),
		"250":   thumbs.Size250(),
		"500":   thumbs.Size500(),
		"1200":  thumbs.Size1200(),
	}
	maps.DeleteFunc(named, func(_, url string) bool { return url == "" })

	unhandled := unhandledView(img.Unhandled())
	if extra := unhandledView(thumbs.Unhandled()); extra != nil {
		if unhandled == nil {
			unhandled = map[string]any{}
		}
		unhandled["thumbnails"] = extra
	}

	return imageView{
		ID:         img.ID(),
		Types:      types,
		Front:      img.Front(),
		Back:       img.Back(),
		Approved:   img.Approved(),
		Comment:    img.Comment(),
		Edit:       img.Edit(),
		Image:      img.Location(),
		Thumbnails: named,
		Unhandled:  unhandled,
	}
}

func unhandledView(m map[string]coverart.Value) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Interface()
	}
	return out
}

// printer renders command results as indented JSON or aligned text.
type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) *printer {
	return &printer{w: w, format: format}
}

func (p *printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) release(v releaseView) error {
	if p.format != config.FormatText {
		return p.writeJSON(v)
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s %s\n", v.Entity, v.MBID)
	fmt.Fprintf(tw, "  release:\t%s\n", v.Release)
	if len(v.Images) == 0 {
		fmt.Fprintf(tw, "  images:\tnone\n")
	}
	for _, img := range v.Images {
		types := strings.Join(img.Types, ", ")
		if types == "" {
			types = "-"
		}
		var flags []string
		if img.Approved {
			flags = append(flags, "approved")
		} else {
			flags = append(flags, "pending")
		}
		if img.Front {
			flags = append(flags, "front")
		}
		if img.Back {
			flags = append(flags, "back")
		}
		fmt.Fprintf(tw, "  image %s\t%s\t(%s)\n", img.ID, types, strings.Join(flags, ", "))
		if img.Comment != "" {
			fmt.Fprintf(tw, "    comment:\t%s\n", img.Comment)
		}
		fmt.Fprintf(tw, "    url:\t%s\n", img.Image)
		for _, k := range slices.Sorted(maps.Keys(img.Thumbnails)) {
			fmt.Fprintf(tw, "    %s:\t%s\n", k, img.Thumbnails[k])
		}
		fmt.Fprintf(tw, "    edit:\t%d\n", img.Edit)
	}
	for _, k := range slices.Sorted(maps.Keys(v.Unhandled)) {
		raw, _ := json.Marshal(v.Unhandled[k])
		fmt.Fprintf(tw, "  %s:\t%s\n", k, raw)
	}
	return tw.Flush()
}

func (p *printer) download(v downloadView) error {
	if p.format != config.FormatText {
		return p.writeJSON(v)
	}
	if v.Title != "" {
		fmt.Fprintf(p.w, "%s - %s (release %s, score %d)\n", v.Artist, v.Title, v.MBID, v.Score)
	}
	desc := v.Format
	if v.Width > 0 && v.Height > 0 {
		desc += fmt.Sprintf(" %dx%d", v.Width, v.Height)
	}
	_, err := fmt.Fprintf(p.w, "saved %s (%s, %s) from %s\n", v.Path, desc, humanize.Bytes(uint64(v.Bytes)), v.URL) //nolint:gosec // G115: sizes are non-negative
	return err
}

func (p *printer) statuses(statuses []provider.Status) error {
	if p.format != config.FormatText {
		return p.writeJSON(statuses)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	for _, s := range statuses {
		state := "ok"
		if !s.OK {
			state = "FAIL: " + s.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Provider.DisplayName(), s.Latency.Round(time.Millisecond), state)
	}
	return tw.Flush()
}

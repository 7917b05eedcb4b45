package coverart

import "maps"

// Thumbnails holds the pre-rendered renditions of one image. Every rendition
// is optional; an absent one reads as "".
type Thumbnails struct {
	small     string
	large     string
	size250   string
	size500   string
	size1200  string
	unhandled map[string]Value
}

// Small returns the legacy small (250px) thumbnail URL.
func (t *Thumbnails) Small() string { return t.small }

// Large returns the legacy large (500px) thumbnail URL.
func (t *Thumbnails) Large() string { return t.large }

// Size250 returns the 250px thumbnail URL.
func (t *Thumbnails) Size250() string { return t.size250 }

// Size500 returns the 500px thumbnail URL.
func (t *Thumbnails) Size500() string { return t.size500 }

// Size1200 returns the 1200px thumbnail URL.
func (t *Thumbnails) Size1200() string { return t.size1200 }

// URL returns the thumbnail URL for size, preferring the numbered key and
// falling back to the legacy small/large key. SizeOriginal has no thumbnail.
func (t *Thumbnails) URL(size Size) (string, bool) {
	var u string
	switch size {
	case Size250:
		u = firstNonEmpty(t.size250, t.small)
	case Size500:
		u = firstNonEmpty(t.size500, t.large)
	case Size1200:
		u = t.size1200
	}
	return u, u != ""
}

// Unhandled returns the members the decoder did not recognize.
func (t *Thumbnails) Unhandled() map[string]Value { return maps.Clone(t.unhandled) }

// Image is one uploaded artwork of a release.
type Image struct {
	approved   bool
	back       bool
	front      bool
	comment    string
	edit       int64
	id         string
	location   string
	thumbnails *Thumbnails
	types      TypeSet
	unhandled  map[string]Value
}

// Approved reports whether the upload passed community review.
func (i *Image) Approved() bool { return i.approved }

// Back reports whether this is the release's canonical back image.
func (i *Image) Back() bool { return i.back }

// Front reports whether this is the release's canonical front image.
func (i *Image) Front() bool { return i.front }

// Comment returns the free-text comment, "" if none.
func (i *Image) Comment() string { return i.comment }

// Edit returns the MusicBrainz edit that added the image.
func (i *Image) Edit() int64 { return i.edit }

// ID returns the image id in canonical decimal-or-verbatim string form.
func (i *Image) ID() string { return i.id }

// Location returns the URL of the original upload, "" if absent.
func (i *Image) Location() string { return i.location }

// Thumbnails returns the image's thumbnail renditions. Never nil.
func (i *Image) Thumbnails() *Thumbnails { return i.thumbnails }

// Types returns the categories attached to the image.
func (i *Image) Types() TypeSet { return i.types }

// Unhandled returns the members the decoder did not recognize.
func (i *Image) Unhandled() map[string]Value { return maps.Clone(i.unhandled) }

// URL returns the location of the requested rendition.
func (i *Image) URL(size Size) (string, bool) {
	if size == SizeOriginal {
		return i.location, i.location != ""
	}
	return i.thumbnails.URL(size)
}

// Release is the decoded answer to one cover art lookup.
type Release struct {
	location  string
	images    []*Image
	unhandled map[string]Value
}

// Location returns the MusicBrainz page of the release.
func (r *Release) Location() string { return r.location }

// Images returns the images in the order the server listed them.
func (r *Release) Images() []*Image {
	out := make([]*Image, len(r.images))
	copy(out, r.images)
	return out
}

// Front returns the first image flagged as the front cover.
func (r *Release) Front() (*Image, bool) {
	for _, img := range r.images {
		if img.front {
			return img, true
		}
	}
	return nil, false
}

// Back returns the first image flagged as the back cover.
func (r *Release) Back() (*Image, bool) {
	for _, img := range r.images {
		if img.back {
			return img, true
		}
	}
	return nil, false
}

// ImageByID returns the image with the given id.
func (r *Release) ImageByID(id string) (*Image, bool) {
	for _, img := range r.images {
		if img.id == id {
			return img, true
		}
	}
	return nil, false
}

// Unhandled returns the members the decoder did not recognize.
func (r *Release) Unhandled() map[string]Value { return maps.Clone(r.unhandled) }

// imageBuilder collects members while an image object is read. build refuses
// to produce an Image until every required member has been seen.
type imageBuilder struct {
	img     Image
	hasEdit bool
	hasID   bool
}

func (b *imageBuilder) build() (*Image, error) {
	switch {
	case !b.hasEdit:
		return nil, missing(entityImage, "edit")
	case !b.hasID:
		return nil, missing(entityImage, "id")
	case b.img.thumbnails == nil:
		return nil, missing(entityImage, "thumbnails")
	}
	img := b.img
	return &img, nil
}

type releaseBuilder struct {
	rel         Release
	hasImages   bool
	hasLocation bool
}

func (b *releaseBuilder) build() (*Release, error) {
	switch {
	case !b.hasImages:
		return nil, missing(entityRelease, "images")
	case !b.hasLocation:
		return nil, missing(entityRelease, "release")
	}
	rel := b.rel
	return &rel, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

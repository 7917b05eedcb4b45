package coverart

import (
	"slices"
	"strings"
)

// Type is a bit flag naming one cover art category. Flags combine with |.
type Type uint32

// Known cover art types. TypeUnknown is set on a TypeSet whenever the server
// reported a tag that is not in the registry below.
const (
	TypeFront Type = 1 << iota
	TypeBack
	TypeBooklet
	TypeMedium
	TypeTray
	TypeObi
	TypeSpine
	TypeTrack
	TypeLiner
	TypeSticker
	TypePoster
	TypeWatermark
	TypeRawUnedited
	TypeOther
	TypeUnknown
)

// typeRegistry maps the exact wire spelling of each known tag to its flag.
// Order here is the order Tags and String report flags in.
var typeRegistry = []struct {
	tag string
	typ Type
}{
	{"Front", TypeFront},
	{"Back", TypeBack},
	{"Booklet", TypeBooklet},
	{"Medium", TypeMedium},
	{"Tray", TypeTray},
	{"Obi", TypeObi},
	{"Spine", TypeSpine},
	{"Track", TypeTrack},
	{"Liner", TypeLiner},
	{"Sticker", TypeSticker},
	{"Poster", TypePoster},
	{"Watermark", TypeWatermark},
	{"Raw/Unedited", TypeRawUnedited},
	{"Other", TypeOther},
}

var typesByTag = func() map[string]Type {
	m := make(map[string]Type, len(typeRegistry))
	for _, e := range typeRegistry {
		m[e.tag] = e.typ
	}
	return m
}()

// ParseType looks up a single tag. Matching is exact and case-sensitive:
// "front" is not "Front".
func ParseType(tag string) (Type, bool) {
	t, ok := typesByTag[tag]
	return t, ok
}

// String returns the wire tag for a single flag, or the tags of every set
// flag joined with "|".
func (t Type) String() string {
	if t == 0 {
		return ""
	}
	var parts []string
	for _, e := range typeRegistry {
		if t&e.typ != 0 {
			parts = append(parts, e.tag)
		}
	}
	if t&TypeUnknown != 0 {
		parts = append(parts, "Unknown")
	}
	return strings.Join(parts, "|")
}

// TypeSet is the set of categories attached to one image. Tags the registry
// does not know are kept verbatim and flagged with TypeUnknown, so
// TypeUnknown is set if and only if Unknown returns a non-empty list.
type TypeSet struct {
	flags   Type
	unknown []string
}

// ParseTypes builds a TypeSet from wire tags. It never fails.
func ParseTypes(tags []string) TypeSet {
	var s TypeSet
	for _, tag := range tags {
		s.add(tag)
	}
	return s
}

func (s *TypeSet) add(tag string) {
	if t, ok := ParseType(tag); ok {
		s.flags |= t
		return
	}
	s.flags |= TypeUnknown
	s.unknown = append(s.unknown, tag)
}

// Flags returns the combined flags.
func (s TypeSet) Flags() Type { return s.flags }

// Has reports whether every flag in t is set.
func (s TypeSet) Has(t Type) bool { return t != 0 && s.flags&t == t }

// Empty reports whether no tag was attached.
func (s TypeSet) Empty() bool { return s.flags == 0 }

// Unknown returns the unrecognized tags in the order they were received.
func (s TypeSet) Unknown() []string { return slices.Clone(s.unknown) }

// Tags returns the wire tags of the set: known tags in registry order, then
// the unknown ones as received.
func (s TypeSet) Tags() []string {
	var tags []string
	for _, e := range typeRegistry {
		if s.flags&e.typ != 0 {
			tags = append(tags, e.tag)
		}
	}
	return append(tags, s.unknown...)
}

func (s TypeSet) String() string {
	return strings.Join(s.Tags(), ", ")
}

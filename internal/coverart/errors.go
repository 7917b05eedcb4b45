package coverart

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors at the bottom of every DecodeError chain.
var (
	// ErrMissingField means a required member was absent or null.
	ErrMissingField = errors.New("missing required field")

	// ErrMalformedIdentifier means an image id was neither a string nor an
	// unsigned integer.
	ErrMalformedIdentifier = errors.New("malformed identifier: expected string or integer")

	// ErrMalformedValue means a member had the wrong JSON kind.
	ErrMalformedValue = errors.New("malformed value")
)

// DecodeError reports which member of which entity failed to decode. Errors
// from nested entities are wrapped once per level, so the chain reads from the
// outermost entity inward.
type DecodeError struct {
	Entity   string
	Property string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Property == "" {
		return fmt.Sprintf("%s: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("%s.%s: %v", e.Entity, e.Property, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

const (
	entityRelease    = "release"
	entityImage      = "image"
	entityThumbnails = "thumbnails"
)

func fieldError(entity, property string, err error) error {
	return &DecodeError{Entity: entity, Property: property, Err: err}
}

func missing(entity, property string) error {
	return fieldError(entity, property, ErrMissingField)
}

// malformed describes a token that is not of the wanted kind.
func malformed(want string, tok json.Token) error {
	return fmt.Errorf("%w: expected %s, got %s", ErrMalformedValue, want, tokenKind(tok))
}

func tokenKind(tok json.Token) string {
	switch v := tok.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case json.Delim:
		switch v {
		case '{':
			return "object"
		case '[':
			return "array"
		}
		return fmt.Sprintf("%q", rune(v))
	default:
		return fmt.Sprintf("%T", tok)
	}
}

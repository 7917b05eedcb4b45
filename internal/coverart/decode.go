// Package coverart decodes Cover Art Archive metadata into read-only values.
package coverart

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// maxDepth bounds the nesting of captured unrecognized values, matching the
// limit encoding/json applies to Unmarshal.
const maxDepth = 10000

// Decoder reads cover art entities from a JSON token stream. Each call
// returns a fresh object graph; a Decoder is not safe for concurrent use, but
// separate Decoders share nothing.
type Decoder struct {
	dec    *json.Decoder
	logger *slog.Logger
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithLogger makes the decoder report unrecognized members at debug level.
func WithLogger(logger *slog.Logger) DecoderOption {
	return func(d *Decoder) {
		d.logger = logger
	}
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader, opts ...DecoderOption) *Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	d := &Decoder{dec: dec}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DecodeRelease decodes a payload holding exactly one release object.
func DecodeRelease(r io.Reader, opts ...DecoderOption) (*Release, error) {
	d := NewDecoder(r, opts...)
	rel, err := d.Release()
	if err != nil {
		return nil, err
	}
	if err := d.end(); err != nil {
		return nil, err
	}
	return rel, nil
}

// DecodeImage decodes a payload holding exactly one image object.
func DecodeImage(r io.Reader, opts ...DecoderOption) (*Image, error) {
	d := NewDecoder(r, opts...)
	img, err := d.Image()
	if err != nil {
		return nil, err
	}
	if err := d.end(); err != nil {
		return nil, err
	}
	return img, nil
}

// DecodeThumbnails decodes a payload holding exactly one thumbnails object.
func DecodeThumbnails(r io.Reader, opts ...DecoderOption) (*Thumbnails, error) {
	d := NewDecoder(r, opts...)
	th, err := d.Thumbnails()
	if err != nil {
		return nil, err
	}
	if err := d.end(); err != nil {
		return nil, err
	}
	return th, nil
}

// Release reads the next value of the stream as a release.
func (d *Decoder) Release() (*Release, error) {
	tok, err := d.next()
	if err != nil {
		return nil, &DecodeError{Entity: entityRelease, Err: err}
	}
	return d.readRelease(tok)
}

// Image reads the next value of the stream as an image.
func (d *Decoder) Image() (*Image, error) {
	tok, err := d.next()
	if err != nil {
		return nil, &DecodeError{Entity: entityImage, Err: err}
	}
	return d.readImage(tok)
}

// Thumbnails reads the next value of the stream as a thumbnails object.
func (d *Decoder) Thumbnails() (*Thumbnails, error) {
	tok, err := d.next()
	if err != nil {
		return nil, &DecodeError{Entity: entityThumbnails, Err: err}
	}
	return d.readThumbnails(tok)
}

func (d *Decoder) readRelease(tok json.Token) (*Release, error) {
	if err := expectDelim(tok, '{', "object"); err != nil {
		return nil, &DecodeError{Entity: entityRelease, Err: err}
	}

	var b releaseBuilder
	err := d.members(entityRelease, func(key string, tok json.Token) error {
		switch key {
		case "release":
			s, null, err := stringToken(tok)
			if err != nil {
				return fieldError(entityRelease, key, err)
			}
			if null {
				return missing(entityRelease, key)
			}
			b.rel.location = s
			b.hasLocation = true
		case "images":
			if tok == nil {
				return missing(entityRelease, key)
			}
			images, err := d.readImages(tok)
			if err != nil {
				return err
			}
			b.rel.images = images
			b.hasImages = true
		default:
			return d.capture(&b.rel.unhandled, key, tok)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.logUnhandled(entityRelease, b.rel.unhandled)
	return b.build()
}

func (d *Decoder) readImages(tok json.Token) ([]*Image, error) {
	if err := expectDelim(tok, '[', "array"); err != nil {
		return nil, fieldError(entityRelease, "images", err)
	}

	images := []*Image{}
	for i := 0; d.dec.More(); i++ {
		prop := fmt.Sprintf("images[%d]", i)
		tok, err := d.next()
		if err != nil {
			return nil, fieldError(entityRelease, prop, err)
		}
		img, err := d.readImage(tok)
		if err != nil {
			return nil, fieldError(entityRelease, prop, err)
		}
		images = append(images, img)
	}
	if err := d.closeDelim(']'); err != nil {
		return nil, fieldError(entityRelease, "images", err)
	}
	return images, nil
}

func (d *Decoder) readImage(tok json.Token) (*Image, error) {
	if err := expectDelim(tok, '{', "object"); err != nil {
		return nil, &DecodeError{Entity: entityImage, Err: err}
	}

	var b imageBuilder
	err := d.members(entityImage, func(key string, tok json.Token) error {
		var err error
		switch key {
		case "approved":
			b.img.approved, err = boolToken(tok)
		case "back":
			b.img.back, err = boolToken(tok)
		case "front":
			b.img.front, err = boolToken(tok)
		case "comment":
			b.img.comment, _, err = stringToken(tok)
		case "image":
			b.img.location, _, err = stringToken(tok)
		case "edit":
			if tok == nil {
				return missing(entityImage, key)
			}
			b.img.edit, err = intToken(tok)
			b.hasEdit = err == nil
		case "id":
			if tok == nil {
				return missing(entityImage, key)
			}
			b.img.id, err = normalizeID(tok)
			b.hasID = err == nil
		case "thumbnails":
			if tok == nil {
				return missing(entityImage, key)
			}
			b.img.thumbnails, err = d.readThumbnails(tok)
		case "types":
			b.img.types, err = d.readTypes(tok)
		default:
			return d.capture(&b.img.unhandled, key, tok)
		}
		if err != nil {
			return fieldError(entityImage, key, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.logUnhandled(entityImage, b.img.unhandled)
	return b.build()
}

// readTypes reads the tag array. A null list is an empty set.
func (d *Decoder) readTypes(tok json.Token) (TypeSet, error) {
	var set TypeSet
	if tok == nil {
		return set, nil
	}
	if err := expectDelim(tok, '[', "array"); err != nil {
		return set, err
	}
	for d.dec.More() {
		tok, err := d.next()
		if err != nil {
			return set, err
		}
		tag, ok := tok.(string)
		if !ok {
			return set, malformed("string", tok)
		}
		set.add(tag)
	}
	if err := d.closeDelim(']'); err != nil {
		return set, err
	}
	return set, nil
}

func (d *Decoder) readThumbnails(tok json.Token) (*Thumbnails, error) {
	if err := expectDelim(tok, '{', "object"); err != nil {
		return nil, &DecodeError{Entity: entityThumbnails, Err: err}
	}

	var th Thumbnails
	err := d.members(entityThumbnails, func(key string, tok json.Token) error {
		var target *string
		switch key {
		case "small":
			target = &th.small
		case "large":
			target = &th.large
		case "250":
			target = &th.size250
		case "500":
			target = &th.size500
		case "1200":
			target = &th.size1200
		default:
			return d.capture(&th.unhandled, key, tok)
		}
		s, _, err := stringToken(tok)
		if err != nil {
			return fieldError(entityThumbnails, key, err)
		}
		*target = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.logUnhandled(entityThumbnails, th.unhandled)
	return &th, nil
}

// members walks an object whose opening brace has been consumed, handing fn
// each key together with the first token of its value. fn must consume the
// rest of the value when that token opens an array or object.
func (d *Decoder) members(entity string, fn func(key string, tok json.Token) error) error {
	for d.dec.More() {
		keyTok, err := d.next()
		if err != nil {
			return &DecodeError{Entity: entity, Err: err}
		}
		key, ok := keyTok.(string)
		if !ok {
			return &DecodeError{Entity: entity, Err: malformed("member name", keyTok)}
		}
		tok, err := d.next()
		if err != nil {
			return fieldError(entity, key, err)
		}
		if err := fn(key, tok); err != nil {
			return err
		}
	}
	if err := d.closeDelim('}'); err != nil {
		return &DecodeError{Entity: entity, Err: err}
	}
	return nil
}

// capture stores an unrecognized member in the entity's side table.
func (d *Decoder) capture(into *map[string]Value, key string, tok json.Token) error {
	v, err := d.readValue(tok, 0)
	if err != nil {
		return err
	}
	if *into == nil {
		*into = make(map[string]Value)
	}
	(*into)[key] = v
	return nil
}

// readValue reads any JSON value starting at tok. depth counts the arrays and
// objects already open around it.
func (d *Decoder) readValue(tok json.Token, depth int) (Value, error) {
	switch v := tok.(type) {
	case nil:
		return Value{}, nil
	case bool:
		return Value{kind: KindBool, b: v}, nil
	case json.Number:
		return Value{kind: KindNumber, s: string(v)}, nil
	case string:
		return Value{kind: KindString, s: v}, nil
	case json.Delim:
		if depth >= maxDepth {
			return Value{}, fmt.Errorf("%w: nesting exceeds %d levels", ErrMalformedValue, maxDepth)
		}
		switch v {
		case '[':
			items := []Value{}
			for d.dec.More() {
				t, err := d.next()
				if err != nil {
					return Value{}, err
				}
				item, err := d.readValue(t, depth+1)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if err := d.closeDelim(']'); err != nil {
				return Value{}, err
			}
			return Value{kind: KindArray, arr: items}, nil
		case '{':
			obj := map[string]Value{}
			for d.dec.More() {
				keyTok, err := d.next()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, malformed("member name", keyTok)
				}
				t, err := d.next()
				if err != nil {
					return Value{}, err
				}
				item, err := d.readValue(t, depth+1)
				if err != nil {
					return Value{}, err
				}
				obj[key] = item
			}
			if err := d.closeDelim('}'); err != nil {
				return Value{}, err
			}
			return Value{kind: KindObject, obj: obj}, nil
		}
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

func (d *Decoder) logUnhandled(entity string, m map[string]Value) {
	if d.logger == nil || len(m) == 0 {
		return
	}
	d.logger.Debug("unhandled properties",
		slog.String("entity", entity),
		slog.Any("keys", unhandledKeys(m)),
	)
}

// next returns the next token. Running out of input inside a value is
// reported as io.ErrUnexpectedEOF.
func (d *Decoder) next() (json.Token, error) {
	tok, err := d.dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, io.ErrUnexpectedEOF
	}
	return tok, err
}

func (d *Decoder) closeDelim(want json.Delim) error {
	tok, err := d.next()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("expected %q, got %v", rune(want), tok)
	}
	return nil
}

// end checks that nothing but whitespace follows the decoded value.
func (d *Decoder) end() error {
	tok, err := d.dec.Token()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("unexpected %s after top-level value", tokenKind(tok))
}

func expectDelim(tok json.Token, want json.Delim, kind string) error {
	if delim, ok := tok.(json.Delim); ok && delim == want {
		return nil
	}
	return malformed(kind, tok)
}

// stringToken accepts a string or null.
func stringToken(tok json.Token) (s string, null bool, err error) {
	switch v := tok.(type) {
	case string:
		return v, false, nil
	case nil:
		return "", true, nil
	default:
		return "", false, malformed("string", tok)
	}
}

// boolToken accepts a bool; null reads as false.
func boolToken(tok json.Token) (bool, error) {
	switch v := tok.(type) {
	case bool:
		return v, nil
	case nil:
		return false, nil
	default:
		return false, malformed("bool", tok)
	}
}

func intToken(tok json.Token) (int64, error) {
	n, ok := tok.(json.Number)
	if !ok {
		return 0, malformed("integer", tok)
	}
	v, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: expected integer, got %s", ErrMalformedValue, n)
	}
	return v, nil
}

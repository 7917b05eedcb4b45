package coverart

import "fmt"

// Size selects the rendition of an image: the original upload or one of the
// thumbnails the archive renders.
type Size int

// Image sizes. SizeSmall and SizeLarge are the legacy names the archive still
// serves for 250px and 500px.
const (
	SizeOriginal Size = iota
	Size250
	Size500
	Size1200

	SizeSmall = Size250
	SizeLarge = Size500
)

// Suffix returns the path suffix the archive uses for the size.
func (s Size) Suffix() string {
	switch s {
	case Size250:
		return "-250"
	case Size500:
		return "-500"
	case Size1200:
		return "-1200"
	default:
		return ""
	}
}

func (s Size) String() string {
	switch s {
	case SizeOriginal:
		return "original"
	case Size250:
		return "250"
	case Size500:
		return "500"
	case Size1200:
		return "1200"
	default:
		return fmt.Sprintf("Size(%d)", int(s))
	}
}

// Valid reports whether s is one of the defined sizes.
func (s Size) Valid() bool {
	return s >= SizeOriginal && s <= Size1200
}

// ParseSize accepts original, 250, 500, 1200, small and large.
func ParseSize(s string) (Size, error) {
	switch s {
	case "", "original":
		return SizeOriginal, nil
	case "250", "small":
		return Size250, nil
	case "500", "large":
		return Size500, nil
	case "1200":
		return Size1200, nil
	default:
		return SizeOriginal, fmt.Errorf("unknown image size %q", s)
	}
}

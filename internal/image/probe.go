// Package image inspects and saves downloaded artwork. It reads headers
// only and never decodes pixels.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"mime"
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Supported format names.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatGIF  = "gif"
	FormatWebP = "webp"
	FormatBMP  = "bmp"
	FormatTIFF = "tiff"
	FormatPDF  = "pdf"
)

// ErrUnknownFormat is returned for data that is not a recognized image.
var ErrUnknownFormat = errors.New("unrecognized image format")

// Info describes an image without decoding its pixels. Width and Height
// are zero for formats that have no single raster size, such as PDF.
type Info struct {
	Format string `json:"format"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Bytes  int    `json:"bytes"`
}

// DetectFormat reads the first bytes from r to identify the format. The
// returned reader replays the consumed bytes.
func DetectFormat(r io.Reader) (format string, replay io.Reader, err error) {
	buf := make([]byte, 12)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("reading header: %w", err)
	}
	buf = buf[:n]

	replay = io.MultiReader(bytes.NewReader(buf), r)

	switch {
	case n >= 3 && buf[0] == 0xFF && buf[1] == 0xD8 && buf[2] == 0xFF:
		return FormatJPEG, replay, nil
	case n >= 8 && string(buf[:8]) == "\x89PNG\r\n\x1a\n":
		return FormatPNG, replay, nil
	case n >= 6 && (string(buf[:6]) == "GIF87a" || string(buf[:6]) == "GIF89a"):
		return FormatGIF, replay, nil
	case n >= 12 && string(buf[:4]) == "RIFF" && string(buf[8:12]) == "WEBP":
		return FormatWebP, replay, nil
	case n >= 2 && string(buf[:2]) == "BM":
		return FormatBMP, replay, nil
	case n >= 4 && (string(buf[:4]) == "II*\x00" || string(buf[:4]) == "MM\x00*"):
		return FormatTIFF, replay, nil
	case n >= 5 && string(buf[:5]) == "%PDF-":
		return FormatPDF, replay, nil
	}

	return "", replay, ErrUnknownFormat
}

// Probe identifies data and reads its dimensions from the header.
func Probe(data []byte) (Info, error) {
	format, replay, err := DetectFormat(bytes.NewReader(data))
	if err != nil {
		return Info{}, err
	}
	info := Info{Format: format, Bytes: len(data)}
	if format == FormatPDF {
		return info, nil
	}

	cfg, _, err := image.DecodeConfig(replay)
	if err != nil {
		return Info{}, fmt.Errorf("decoding %s header: %w", format, err)
	}
	info.Width = cfg.Width
	info.Height = cfg.Height
	return info, nil
}

// FormatFromContentType maps a MIME type such as "image/jpeg; q=1" to a
// format name, or "" when the type is not an image format we know.
func FormatFromContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return FormatJPEG
	case "image/png":
		return FormatPNG
	case "image/gif":
		return FormatGIF
	case "image/webp":
		return FormatWebP
	case "image/bmp", "image/x-ms-bmp":
		return FormatBMP
	case "image/tiff":
		return FormatTIFF
	case "application/pdf":
		return FormatPDF
	}
	return ""
}

// Extension returns the file extension, with leading dot, for a format.
// Unknown formats get ".bin".
func Extension(format string) string {
	switch format {
	case FormatJPEG:
		return ".jpg"
	case FormatPNG, FormatGIF, FormatWebP, FormatBMP, FormatPDF:
		return "." + format
	case FormatTIFF:
		return ".tif"
	default:
		return ".bin"
	}
}

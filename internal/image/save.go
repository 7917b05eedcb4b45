package image

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/sydlexius/coverart/internal/filesystem"
)

// Save writes data to dir/baseName plus the extension of its detected
// format, replacing other formats of the same base name. It returns the
// written path and the probed info.
func Save(dir, baseName string, data []byte, logger *slog.Logger) (string, Info, error) {
	info, err := Probe(data)
	if err != nil {
		return "", Info{}, fmt.Errorf("probing image: %w", err)
	}

	fileName := baseName + Extension(info.Format)
	if err := CleanupConflictingFormats(dir, fileName, logger); err != nil {
		logger.Warn("failed to clean up conflicting formats",
			slog.String("dir", dir),
			slog.String("file", fileName),
			slog.String("error", err.Error()))
	}

	target := filepath.Join(dir, fileName)
	if err := filesystem.WriteReaderAtomic(target, bytes.NewReader(data), 0o644); err != nil {
		return "", Info{}, fmt.Errorf("writing %s: %w", target, err)
	}

	logger.Debug("saved image",
		slog.String("path", target),
		slog.String("format", info.Format),
		slog.Int("width", info.Width),
		slog.Int("height", info.Height))
	return target, info, nil
}

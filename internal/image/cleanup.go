package image

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// imageExtensions lists every extension Save may produce.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff", ".pdf"}

// CleanupConflictingFormats deletes files that share fileName's base name
// but carry a different image extension. Saving "front.png" removes an
// older "front.jpg" so a directory never holds two versions of one cover.
func CleanupConflictingFormats(dir string, fileName string, logger *slog.Logger) error {
	ext := strings.ToLower(filepath.Ext(fileName))
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	for _, altExt := range imageExtensions {
		if altExt == ext {
			continue
		}
		altPath := filepath.Join(dir, base+altExt)
		if _, err := os.Stat(altPath); err != nil {
			continue
		}
		if err := os.Remove(altPath); err != nil {
			return err
		}
		logger.Info("deleted conflicting image format",
			slog.String("deleted", altPath),
			slog.String("replaced_by", filepath.Join(dir, fileName)))
	}
	return nil
}

// Package filesystem writes downloaded artwork to disk without leaving
// half-written files behind.
package filesystem

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to target. See WriteReaderAtomic.
func WriteFileAtomic(target string, data []byte, perm os.FileMode) error {
	return WriteReaderAtomic(target, bytes.NewReader(data), perm)
}

// WriteReaderAtomic streams r into target using the tmp/bak/rename pattern:
//
//  1. Copy r into <target>.tmp and fsync it
//  2. If <target> exists, rename it to <target>.bak
//  3. Rename <target>.tmp to <target>
//  4. Remove <target>.bak
//
// A failure at any step leaves the previous target in place. If a rename
// crosses a mount point it falls back to copy+delete.
func WriteReaderAtomic(target string, r io.Reader, perm os.FileMode) error {
	tmpPath := target + ".tmp"
	bakPath := target + ".bak"

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil { //nolint:gosec // G301: output directories are user-facing
		return fmt.Errorf("creating parent directory: %w", err)
	}

	if err := writeSynced(tmpPath, r, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}

	if _, err := os.Stat(target); err == nil {
		if err := renameSafe(target, bakPath); err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("backing up existing file: %w", err)
		}
	}

	if err := renameSafe(tmpPath, target); err != nil {
		if _, bakErr := os.Stat(bakPath); bakErr == nil {
			_ = renameSafe(bakPath, target)
		}
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming temp to target: %w", err)
	}

	_ = os.Remove(bakPath)
	return nil
}

func writeSynced(path string, r io.Reader, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm) //nolint:gosec // G304: path is derived from the caller's target
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return f.Close()
}

// renameSafe attempts os.Rename first, then falls back to copy+delete.
func renameSafe(oldPath, newPath string) error {
	err := os.Rename(oldPath, newPath)
	if err == nil {
		return nil
	}
	info, statErr := os.Stat(oldPath)
	if statErr != nil {
		return err
	}
	in, openErr := os.Open(oldPath) //nolint:gosec // G304: oldPath is one of our own tmp/bak paths
	if openErr != nil {
		return fmt.Errorf("copy fallback: %w (rename error: %w)", openErr, err)
	}
	defer in.Close() //nolint:errcheck
	if copyErr := writeSynced(newPath, in, info.Mode().Perm()); copyErr != nil {
		return fmt.Errorf("copy fallback: %w (rename error: %w)", copyErr, err)
	}
	_ = os.Remove(oldPath)
	return nil
}

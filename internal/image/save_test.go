package image

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSave_PicksExtensionFromContent(t *testing.T) {
	dir := t.TempDir()
	data := makePNG(t, 20, 10)

	path, info, err := Save(dir, "front", data, testLogger())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if path != filepath.Join(dir, "front.png") {
		t.Errorf("path = %s, want front.png", path)
	}
	if info.Width != 20 || info.Height != 10 {
		t.Errorf("unexpected info: %+v", info)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("saved content mismatch")
	}
}

func TestSave_ReplacesOtherFormats(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "front.png")
	if err := os.WriteFile(old, []byte("old png"), 0o644); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(dir, "back.png")
	if err := os.WriteFile(other, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	path, _, err := Save(dir, "front", makeJPEG(t, 10, 10), testLogger())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(path) != "front.jpg" {
		t.Errorf("unexpected path %s", path)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("front.png should have been deleted")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("back.png should be untouched")
	}
}

func TestSave_RejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := Save(dir, "front", []byte("<html>"), testLogger()); err == nil {
		t.Fatal("expected error for non-image data")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected nothing written, found %d entries", len(entries))
	}
}

func TestCleanupConflictingFormats(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"front.jpg", "front.jpeg", "front.webp", "front.png", "frontcover.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := CleanupConflictingFormats(dir, "front.png", testLogger()); err != nil {
		t.Fatalf("CleanupConflictingFormats: %v", err)
	}

	for name, wantExists := range map[string]bool{
		"front.jpg":      false,
		"front.jpeg":     false,
		"front.webp":     false,
		"front.png":      true,
		"frontcover.jpg": true,
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		if exists := err == nil; exists != wantExists {
			t.Errorf("%s exists = %v, want %v", name, exists, wantExists)
		}
	}
}

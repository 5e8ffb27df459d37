package zip

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestArchiveDirectory(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"002_b.mp4": "bbbb",
		"001_a.mp4": "aa",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := ArchiveDirectory(&buf, dir); err != nil {
		t.Fatalf("ArchiveDirectory error: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("archive has %d entries, want 2", len(zr.File))
	}
	if zr.File[0].Name != "001_a.mp4" || zr.File[1].Name != "002_b.mp4" {
		t.Fatalf("entries = %q, %q", zr.File[0].Name, zr.File[1].Name)
	}
}

func TestArchiveDirectoryMissing(t *testing.T) {
	var buf bytes.Buffer
	if err := ArchiveDirectory(&buf, filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

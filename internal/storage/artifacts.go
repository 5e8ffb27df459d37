package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"mediafetch/internal/domain"
)

// Artifacts owns the shared download directory. Destination paths embed the
// sanitized title, the video id, and a creation timestamp so concurrent jobs
// for different videos can never collide.
type Artifacts struct {
	baseDir string
}

// NewArtifacts initializes the artifact root, creating it if needed.
func NewArtifacts(baseDir string) (*Artifacts, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return nil, errors.New("storage: download directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure download directory: %w", err)
	}
	return &Artifacts{baseDir: baseDir}, nil
}

// BaseDir returns the configured download root.
func (a *Artifacts) BaseDir() string {
	return a.baseDir
}

// DestinationPath builds the on-disk target for a job. Single videos get a
// file, playlists get a directory the downloader fills per entry.
func (a *Artifacts) DestinationPath(title, videoID string, playlist bool, now time.Time) string {
	name := fmt.Sprintf("%s_%s_%d", SanitizeTitle(title), videoID, now.UnixMilli())
	if playlist {
		return filepath.Join(a.baseDir, name)
	}
	return filepath.Join(a.baseDir, name+".mp4")
}

// EnsurePlaylistDir creates the destination directory of a playlist job
// before the downloader starts writing entries into it.
func (a *Artifacts) EnsurePlaylistDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// Exists reports whether the artifact is actually present. Completed status
// is only trusted when this returns true at read time.
func (a *Artifacts) Exists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes the artifact, recursively for playlist directories.
func (a *Artifacts) Remove(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	return os.RemoveAll(path)
}

// PlaylistEntry describes one downloaded file inside a playlist directory.
type PlaylistEntry struct {
	Index int
	Name  string
	Size  int64
}

// ListPlaylist enumerates the files of a playlist directory in name order.
func (a *Artifacts) ListPlaylist(dir string) ([]PlaylistEntry, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, domain.ErrArtifactMissing
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: read playlist directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]PlaylistEntry, 0, len(names))
	for i, name := range names {
		entry := PlaylistEntry{Index: i, Name: name}
		if fi, err := os.Stat(filepath.Join(dir, name)); err == nil {
			entry.Size = fi.Size()
		}
		out = append(out, entry)
	}
	return out, nil
}

// PlaylistFile resolves the index-th file of a playlist directory to its
// full path. The result is re-checked against the directory to block
// traversal through crafted names.
func (a *Artifacts) PlaylistFile(dir string, index int) (string, error) {
	entries, err := a.ListPlaylist(dir)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(entries) {
		return "", domain.ErrNotFound
	}
	full := filepath.Join(dir, entries[index].Name)
	if rel, err := filepath.Rel(dir, full); err != nil || strings.HasPrefix(rel, "..") {
		return "", domain.ErrNotFound
	}
	return full, nil
}

// SanitizeTitle makes a display title safe for filesystem use: Unicode is
// normalized, path separators and other reserved characters become
// underscores, and the result is length-capped.
func SanitizeTitle(title string) string {
	title = norm.NFC.String(strings.TrimSpace(title))
	if title == "" {
		return "video"
	}
	var b strings.Builder
	for _, r := range title {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		case r < 0x20 || r == 0x7f:
			b.WriteRune('_')
		case unicode.IsSpace(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "video"
	}
	if runes := []rune(out); len(runes) > 120 {
		out = string(runes[:120])
	}
	return out
}

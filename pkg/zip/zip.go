package zip

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// ArchiveDirectory streams the regular files of dir (non-recursive, name
// order) into w as a zip archive.
func ArchiveDirectory(w io.Writer, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	zw := zip.NewWriter(w)
	for _, name := range names {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		dst, err := zw.Create(name)
		if err != nil {
			f.Close()
			zw.Close()
			return err
		}
		if _, err := io.Copy(dst, f); err != nil {
			f.Close()
			zw.Close()
			return err
		}
		f.Close()
	}
	return zw.Close()
}

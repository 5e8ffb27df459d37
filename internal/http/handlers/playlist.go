package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mediafetch/pkg/zip"
)

// Playlist enumerates the files of a playlist download.
func (a *App) Playlist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entries, err := a.Core.Playlist(id)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "playlist not found")
		return
	}
	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, map[string]any{
			"index": e.Index,
			"name":  e.Name,
			"size":  e.Size,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"files": items})
}

// PlaylistFile streams a single file of a playlist download by index.
func (a *App) PlaylistFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "index must be a number")
		return
	}
	path, err := a.Core.PlaylistFile(id, index)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "playlist file not found")
		return
	}
	http.ServeFile(w, r, path)
}

// PlaylistZip streams the whole playlist directory as a zip archive, so the
// client can fetch everything in one request.
func (a *App) PlaylistZip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := a.Core.Get(id)
	if err != nil || !job.Playlist || job.FilePath == "" {
		a.error(w, http.StatusNotFound, "not_found", "playlist not found")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(job.FilePath)+".zip"))
	if err := zip.ArchiveDirectory(w, job.FilePath); err != nil {
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("playlist zip stream failed")
	}
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mediafetch/internal/domain"
)

type downloadRequest struct {
	URL      string `json:"url"`
	Quality  string `json:"quality"`
	Playlist bool   `json:"playlist"`
}

// Download accepts a new request and responds with a job id promptly. The
// client polls for the outcome; failures land on the record, not here.
func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	id, err := a.Core.Enqueue(req.URL, req.Quality, req.Playlist)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidURL) {
			a.error(w, http.StatusBadRequest, "bad_request", "url is required")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue download")
		return
	}
	a.json(w, http.StatusAccepted, map[string]string{"downloadId": id})
}

// Status returns the compact polling view of a job.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	job, ok := a.lookup(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"status":   job.Status,
		"progress": job.Progress,
		"message":  job.Message,
		"title":    job.Title,
	})
}

// Progress returns the full job record.
func (a *App) Progress(w http.ResponseWriter, r *http.Request) {
	job, ok := a.lookup(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, jobJSON(job))
}

// ListDownloads returns all records, newest first.
func (a *App) ListDownloads(w http.ResponseWriter, r *http.Request) {
	jobs := a.Core.List()
	items := make([]map[string]any, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, jobJSON(job))
	}
	a.json(w, http.StatusOK, map[string]any{"downloads": items})
}

// ServeArtifact streams the completed artifact. A vanished artifact answers
// 404 with shouldRedownload so the client re-triggers the download.
func (a *App) ServeArtifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	path, job, err := a.Core.ArtifactPath(id)
	if err != nil {
		if errors.Is(err, domain.ErrArtifactMissing) {
			a.json(w, http.StatusNotFound, map[string]any{
				"error":            "not_found",
				"message":          "file not available",
				"shouldRedownload": true,
			})
			return
		}
		a.error(w, http.StatusNotFound, "not_found", "download not found")
		return
	}
	if job.Playlist {
		a.error(w, http.StatusBadRequest, "bad_request", "playlist downloads are served per file")
		return
	}
	http.ServeFile(w, r, path)
}

// CheckArtifact reports artifact presence; lookups through it read-repair
// stale completed records.
func (a *App) CheckArtifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exists, reason, err := a.Core.Check(id)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "download not found")
		return
	}
	resp := map[string]any{"exists": exists}
	if reason != "" {
		resp["reason"] = reason
	}
	a.json(w, http.StatusOK, resp)
}

// DeleteDownload removes the artifact and every record sharing the video
// identity.
func (a *App) DeleteDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Core.Delete(id); err != nil {
		a.error(w, http.StatusNotFound, "not_found", "download not found")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type formatsRequest struct {
	URL string `json:"url"`
}

// Formats lists the raw format lines the downloader reports for a URL.
func (a *App) Formats(w http.ResponseWriter, r *http.Request) {
	var req formatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	lines, err := a.Core.Formats(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidURL) {
			a.error(w, http.StatusBadRequest, "bad_request", "url is required")
			return
		}
		a.error(w, http.StatusBadGateway, "downloader_failed", "could not list formats")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"formats": lines})
}

func (a *App) lookup(w http.ResponseWriter, r *http.Request) (domain.Job, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id is required")
		return domain.Job{}, false
	}
	job, err := a.Core.Get(id)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "download not found")
		return domain.Job{}, false
	}
	return job, true
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"mediafetch/internal/domain"
	"mediafetch/internal/storage"
)

// Core is the download orchestration surface the transport consumes. The
// lifecycle controller implements it; handler tests substitute a stub.
type Core interface {
	Enqueue(url, quality string, playlist bool) (string, error)
	Get(id string) (domain.Job, error)
	List() []domain.Job
	Check(id string) (bool, string, error)
	ArtifactPath(id string) (string, domain.Job, error)
	Playlist(id string) ([]storage.PlaylistEntry, error)
	PlaylistFile(id string, index int) (string, error)
	Formats(ctx context.Context, url string) ([]string, error)
	Delete(id string) error
}

type App struct {
	Core   Core
	Logger zerolog.Logger
}

func NewApp(core Core, logger zerolog.Logger) *App {
	return &App{Core: core, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, reason, msg string) {
	a.json(w, code, map[string]string{"error": reason, "message": msg})
}

// jobJSON shapes a record for the API. The on-disk path stays server-side;
// clients address artifacts through the download endpoints.
func jobJSON(job domain.Job) map[string]any {
	return map[string]any{
		"downloadId": job.ID,
		"videoId":    job.VideoID,
		"status":     job.Status,
		"progress":   job.Progress,
		"title":      job.Title,
		"message":    job.Message,
		"sourceUrl":  job.SourceURL,
		"quality":    job.Quality,
		"playlist":   job.Playlist,
		"createdAt":  job.CreatedAt,
		"updatedAt":  job.UpdatedAt,
	}
}

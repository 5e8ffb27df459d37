package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"mediafetch/internal/http/handlers"
	"mediafetch/internal/middleware"
)

// NewRouter wires the fixed HTTP contract the mobile client consumes.
func NewRouter(app *handlers.App, logger zerolog.Logger, rateLimitPerMin int, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(corsOrigins),
	)

	r.Get("/healthz", app.Health)

	r.With(middleware.RateLimit(rateLimitPerMin, time.Minute)).
		Post("/download", app.Download)
	r.Post("/formats", app.Formats)

	r.Get("/status/{id}", app.Status)
	r.Get("/progress/{id}", app.Progress)
	r.Get("/downloads", app.ListDownloads)

	r.Route("/download/{id}", func(r chi.Router) {
		r.Get("/", app.ServeArtifact)
		r.Get("/check", app.CheckArtifact)
		r.Get("/playlist", app.Playlist)
		r.Get("/playlist.zip", app.PlaylistZip)
		r.Get("/playlist-file/{index}", app.PlaylistFile)
		r.Delete("/", app.DeleteDownload)
	})

	return r
}

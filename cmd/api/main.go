package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mediafetch/internal/controller"
	"mediafetch/internal/http/handlers"
	"mediafetch/internal/http/httpapi"
	"mediafetch/internal/infra"
	"mediafetch/internal/storage"
	"mediafetch/internal/store"
	"mediafetch/internal/ytdlp"
)

func main() {
	// .env is optional.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	artifacts, err := storage.NewArtifacts(cfg.DownloadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare download directory")
	}

	jobs := store.New()
	runner := ytdlp.NewRunner(cfg.YTDLPPath, cfg.FFProbePath, cfg.DownloadTimeout, logger)
	core := controller.New(jobs, artifacts, runner, logger, controller.Options{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     cfg.RetryBackoff,
	})

	app := handlers.NewApp(core, logger)
	router := httpapi.NewRouter(app, logger, cfg.RateLimitPerMin, cfg.CORSOrigins)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	core.Shutdown()
	logger.Info().Msg("server stopped")
}

package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DownloadDir string

	YTDLPPath   string
	FFProbePath string

	DownloadTimeout time.Duration
	MaxAttempts     int
	RetryBackoff    time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. Nothing is mandatory: the service comes up with a
// local ./downloads directory and yt-dlp/ffprobe from PATH.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DownloadDir:      getEnv("DOWNLOAD_DIR", "./downloads"),
		YTDLPPath:        getEnv("YTDLP_PATH", "yt-dlp"),
		FFProbePath:      getEnv("FFPROBE_PATH", "ffprobe"),
		DownloadTimeout:  time.Second * time.Duration(getEnvInt("DOWNLOAD_TIMEOUT_SECONDS", 600)),
		MaxAttempts:      getEnvInt("DOWNLOAD_MAX_ATTEMPTS", 3),
		RetryBackoff:     time.Second * time.Duration(getEnvInt("DOWNLOAD_RETRY_BACKOFF_SECONDS", 5)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 0)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:      splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

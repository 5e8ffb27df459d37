package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DOWNLOAD_DIR", "")
	t.Setenv("DOWNLOAD_TIMEOUT_SECONDS", "")
	t.Setenv("DOWNLOAD_MAX_ATTEMPTS", "")
	t.Setenv("DOWNLOAD_RETRY_BACKOFF_SECONDS", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DownloadDir != "./downloads" {
		t.Fatalf("DownloadDir = %q", cfg.DownloadDir)
	}
	if cfg.DownloadTimeout != 600*time.Second {
		t.Fatalf("DownloadTimeout = %s, want 600s", cfg.DownloadTimeout)
	}
	if cfg.MaxAttempts != 3 {
		t.Fatalf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.RetryBackoff != 5*time.Second {
		t.Fatalf("RetryBackoff = %s, want 5s", cfg.RetryBackoff)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DOWNLOAD_DIR", "/srv/media")
	t.Setenv("DOWNLOAD_TIMEOUT_SECONDS", "120")
	t.Setenv("DOWNLOAD_MAX_ATTEMPTS", "5")
	t.Setenv("YTDLP_PATH", "/opt/bin/yt-dlp")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://beta.example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "9090" || cfg.DownloadDir != "/srv/media" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.DownloadTimeout != 120*time.Second {
		t.Fatalf("DownloadTimeout = %s", cfg.DownloadTimeout)
	}
	if cfg.MaxAttempts != 5 {
		t.Fatalf("MaxAttempts = %d", cfg.MaxAttempts)
	}
	if cfg.YTDLPPath != "/opt/bin/yt-dlp" {
		t.Fatalf("YTDLPPath = %q", cfg.YTDLPPath)
	}
	want := []string{"https://app.example.com", "https://beta.example.com"}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != want[0] || cfg.CORSOrigins[1] != want[1] {
		t.Fatalf("CORSOrigins = %v, want %v", cfg.CORSOrigins, want)
	}
}

func TestLoadConfigIgnoresUnparseableInt(t *testing.T) {
	t.Setenv("DOWNLOAD_MAX_ATTEMPTS", "many")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.MaxAttempts != 3 {
		t.Fatalf("MaxAttempts = %d, want fallback 3", cfg.MaxAttempts)
	}
}

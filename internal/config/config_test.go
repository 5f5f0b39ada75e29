package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Export.JPEGQuality != 92 {
		t.Errorf("Export.JPEGQuality = %d, want 92", cfg.Export.JPEGQuality)
	}
	if cfg.Session.MaxUploadBytes != 25<<20 {
		t.Errorf("Session.MaxUploadBytes = %d, want %d", cfg.Session.MaxUploadBytes, 25<<20)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Gemini.Model != DefaultConfig().Gemini.Model {
		t.Errorf("Gemini.Model = %q, want default", cfg.Gemini.Model)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nano-studio.yml")
	content := `
server:
  port: 9191
  native_picker: false
gemini:
  model: gemini-3-pro-image-preview
  request_timeout: 45s
session:
  idle_ttl: 10m
export:
  jpeg_quality: 80
  bundle_compression: zstd
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.Server.NativePicker {
		t.Error("Server.NativePicker = true, want false")
	}
	if cfg.Gemini.Model != "gemini-3-pro-image-preview" {
		t.Errorf("Gemini.Model = %q", cfg.Gemini.Model)
	}
	if cfg.Gemini.RequestTimeout != 45*time.Second {
		t.Errorf("Gemini.RequestTimeout = %v, want 45s", cfg.Gemini.RequestTimeout)
	}
	if cfg.Session.IdleTTL != 10*time.Minute {
		t.Errorf("Session.IdleTTL = %v, want 10m", cfg.Session.IdleTTL)
	}
	if cfg.Export.JPEGQuality != 80 || cfg.Export.BundleCompression != "zstd" {
		t.Errorf("Export = %+v", cfg.Export)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	// Untouched keys keep their defaults.
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want default 10s", cfg.Server.ShutdownTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NANO_STUDIO_SERVER__PORT", "7070")
	t.Setenv("NANO_STUDIO_SERVER__ALLOWED_ORIGINS", "https://studio.example.com, http://localhost:5173")
	t.Setenv("NANO_STUDIO_LOG__FORMAT", "json")
	t.Setenv("NANO_STUDIO_METRICS__ENABLED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	want := []string{"https://studio.example.com", "http://localhost:5173"}
	if len(cfg.Server.AllowedOrigins) != len(want) {
		t.Fatalf("Server.AllowedOrigins = %v, want %v", cfg.Server.AllowedOrigins, want)
	}
	for i := range want {
		if cfg.Server.AllowedOrigins[i] != want[i] {
			t.Errorf("AllowedOrigins[%d] = %q, want %q", i, cfg.Server.AllowedOrigins[i], want[i])
		}
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"empty model", func(c *Config) { c.Gemini.Model = " " }},
		{"negative timeout", func(c *Config) { c.Gemini.RequestTimeout = -time.Second }},
		{"zero upload cap", func(c *Config) { c.Session.MaxUploadBytes = 0 }},
		{"jpeg quality", func(c *Config) { c.Export.JPEGQuality = 101 }},
		{"compression", func(c *Config) { c.Export.BundleCompression = "brotli" }},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() error = nil, want error")
			}
		})
	}
}

// Package config loads the studio configuration: built-in defaults, then an
// optional YAML file, then NANO_STUDIO_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/fpang/nano-studio/internal/imaging"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "nano-studio.yml"

// EnvPrefix prefixes environment overrides. Nested keys use a double
// underscore: NANO_STUDIO_SERVER__PORT=9090 sets server.port.
const EnvPrefix = "NANO_STUDIO_"

// Config is the full studio configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" koanf:"server"`
	Gemini  GeminiConfig  `yaml:"gemini" koanf:"gemini"`
	Session SessionConfig `yaml:"session" koanf:"session"`
	Export  ExportConfig  `yaml:"export" koanf:"export"`
	Presets PresetsConfig `yaml:"presets" koanf:"presets"`
	Log     LogConfig     `yaml:"log" koanf:"log"`
	Metrics MetricsConfig `yaml:"metrics" koanf:"metrics"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" koanf:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins" koanf:"allowed_origins"`
	NativePicker    bool          `yaml:"native_picker" koanf:"native_picker"`
	ReadTimeout     time.Duration `yaml:"read_timeout" koanf:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" koanf:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" koanf:"shutdown_timeout"`
}

type GeminiConfig struct {
	Model          string        `yaml:"model" koanf:"model"`
	BaseURL        string        `yaml:"base_url" koanf:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout" koanf:"request_timeout"`
	ValidateKey    bool          `yaml:"validate_key" koanf:"validate_key"`
}

type SessionConfig struct {
	IdleTTL        time.Duration `yaml:"idle_ttl" koanf:"idle_ttl"`
	SweepInterval  time.Duration `yaml:"sweep_interval" koanf:"sweep_interval"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" koanf:"max_upload_bytes"`
}

type ExportConfig struct {
	JPEGQuality       int    `yaml:"jpeg_quality" koanf:"jpeg_quality"`
	BundleCompression string `yaml:"bundle_compression" koanf:"bundle_compression"`
}

type PresetsConfig struct {
	// File replaces the built-in catalog when set.
	File string `yaml:"file" koanf:"file"`
}

type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
	// File, when set, also writes logs to a size-rotated file.
	File string `yaml:"file" koanf:"file"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" koanf:"enabled"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			AllowedOrigins:  []string{"http://localhost:*", "http://127.0.0.1:*"},
			NativePicker:    true,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    3 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Gemini: GeminiConfig{
			Model:          "gemini-2.5-flash-image",
			RequestTimeout: 2 * time.Minute,
			ValidateKey:    true,
		},
		Session: SessionConfig{
			IdleTTL:        time.Hour,
			SweepInterval:  5 * time.Minute,
			MaxUploadBytes: 25 << 20,
		},
		Export: ExportConfig{
			JPEGQuality:       imaging.DefaultJPEGQuality,
			BundleCompression: string(imaging.CompressionDeflate),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from path (if it exists) and overlays
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	// Slices decode element-wise onto existing values; drop the default
	// list so a shorter override does not keep stale entries.
	if k.Exists("server.allowed_origins") {
		cfg.Server.AllowedOrigins = nil
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// envKey maps NANO_STUDIO_SERVER__ALLOWED_ORIGINS=a,b to
// server.allowed_origins = [a b].
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if key == "server.allowed_origins" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return key, parts
	}
	return key, value
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"console": true,
	"json":    true,
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server timeouts must be non-negative")
	}
	if strings.TrimSpace(c.Gemini.Model) == "" {
		return fmt.Errorf("gemini.model is required")
	}
	if c.Gemini.RequestTimeout < 0 {
		return fmt.Errorf("gemini.request_timeout must be non-negative")
	}
	if c.Session.MaxUploadBytes <= 0 {
		return fmt.Errorf("session.max_upload_bytes must be positive")
	}
	if c.Session.IdleTTL < 0 || c.Session.SweepInterval < 0 {
		return fmt.Errorf("session durations must be non-negative")
	}
	if c.Export.JPEGQuality < 1 || c.Export.JPEGQuality > 100 {
		return fmt.Errorf("export.jpeg_quality %d out of range: must be 1-100", c.Export.JPEGQuality)
	}
	if _, err := imaging.ParseCompression(c.Export.BundleCompression); err != nil {
		return fmt.Errorf("export.bundle_compression: %w", err)
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	if !validLogFormats[c.Log.Format] {
		return fmt.Errorf("invalid log.format %q: must be console or json", c.Log.Format)
	}
	return nil
}

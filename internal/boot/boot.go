// Package boot holds the startup steps shared by the studio binaries.
//
// Each binary needs some subset of: .env loading, configuration, logging,
// metrics, the preset catalog and session defaults. Keeping them here makes
// every main a short composition of helpers.
package boot

import (
	"io"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/fpang/nano-studio/internal/config"
	"github.com/fpang/nano-studio/internal/gemini"
	"github.com/fpang/nano-studio/internal/imaging"
	"github.com/fpang/nano-studio/internal/logging"
	"github.com/fpang/nano-studio/internal/metrics"
	"github.com/fpang/nano-studio/internal/presets"
	"github.com/fpang/nano-studio/internal/studio"
)

// Version is stamped at build time with -ldflags "-X ...boot.Version=...".
var Version = "dev"

// LoadConfig reads .env (if present) and the YAML/env configuration, then
// validates it. Fatals on error, which is logged with the default logger
// because the configured one does not exist yet.
func LoadConfig(path string) *config.Config {
	_ = godotenv.Load()

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	return cfg
}

// InitLogging configures the global logger from cfg, writing to out.
func InitLogging(cfg *config.Config, out io.Writer) io.Closer {
	return logging.Init(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Out:    out,
	})
}

// InitMetrics points the EMF recorder at w. Binaries that speak a protocol
// on stdout must pass stderr.
func InitMetrics(cfg *config.Config, w io.Writer, service string) {
	metrics.Configure(w, cfg.Metrics.Enabled)
	metrics.SetService(service)
}

// LoadCatalog loads the configured preset catalog. Fatals on error.
func LoadCatalog(cfg *config.Config) *presets.Catalog {
	catalog, err := presets.Load(cfg.Presets.File)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load preset catalog")
	}
	log.Debug().Int("presets", catalog.Len()).Str("file", cfg.Presets.File).Msg("Preset catalog loaded")
	return catalog
}

// SessionOptions maps configuration onto session defaults.
func SessionOptions(cfg *config.Config) studio.Options {
	compression, err := imaging.ParseCompression(cfg.Export.BundleCompression)
	if err != nil {
		compression = imaging.CompressionDeflate
	}
	return studio.Options{
		MaxUploadBytes: cfg.Session.MaxUploadBytes,
		RequestTimeout: cfg.Gemini.RequestTimeout,
		JPEGQuality:    cfg.Export.JPEGQuality,
		Compression:    compression,
	}
}

// GeminiConfig maps configuration onto the image client settings. The API
// key is resolved separately.
func GeminiConfig(cfg *config.Config) gemini.Config {
	return gemini.Config{
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
	}
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).
		Version(Version).
		InitDuration(time.Since(initStart))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/nano-studio/internal/boot"
	"github.com/fpang/nano-studio/internal/cli"
	"github.com/fpang/nano-studio/internal/config"
	"github.com/fpang/nano-studio/internal/studio"
	"github.com/fpang/nano-studio/internal/web"
)

// CLI flags
var (
	configFlag string
	portFlag   int
	modelFlag  string
	noPickFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "studio-web",
	Short: "Web UI for AI product-photo editing",
	Long: `Studio Web starts a local web server with a browser UI for editing product
photos. Upload or drop an image, describe the change (or pick a preset), compare
against the original, and download the result as PNG or JPEG.

Examples:
  studio-web
  studio-web --port 9090
  studio-web --model gemini-3-pro-image-preview
  studio-web --config ./nano-studio.yml`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", config.DefaultPath, "Path to the YAML configuration file")
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides server.port)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini image model (overrides gemini.model)")
	rootCmd.Flags().BoolVar(&noPickFlag, "no-native-picker", false, "Disable the host file dialog endpoint")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()

	cfg := boot.LoadConfig(configFlag)
	if portFlag != 0 {
		cfg.Server.Port = portFlag
	}
	if modelFlag != "" {
		cfg.Gemini.Model = modelFlag
	}
	if noPickFlag {
		cfg.Server.NativePicker = false
	}

	logCloser := boot.InitLogging(cfg, os.Stderr)
	defer logCloser.Close()
	boot.InitMetrics(cfg, os.Stdout, "studio-web")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	editor := cli.InitImageClient(ctx, boot.GeminiConfig(cfg), cfg.Gemini.ValidateKey)
	catalog := boot.LoadCatalog(cfg)

	store := studio.NewStore(editor, boot.SessionOptions(cfg), cfg.Session.IdleTTL)
	defer store.Close()

	server := web.New(store, catalog, web.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		NativePicker:   cfg.Server.NativePicker,
		MaxUploadBytes: cfg.Session.MaxUploadBytes,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	boot.StartupLog("studio-web", initStart).
		Endpoint("http", addr).
		Feature("nativePicker", cfg.Server.NativePicker).
		Feature("metrics", cfg.Metrics.Enabled).
		Feature("keyValidation", cfg.Gemini.ValidateKey).
		Config("model", editor.Model()).
		Config("allowedOrigins", strings.Join(cfg.Server.AllowedOrigins, ",")).
		Config("sessionIdleTTL", cfg.Session.IdleTTL.String()).
		Config("requestTimeout", cfg.Gemini.RequestTimeout.String()).
		Config("presets", fmt.Sprint(catalog.Len())).
		Log()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Printf("\n  Nano Studio: http://localhost:%d\n\n", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return store.Run(gctx, cfg.Session.SweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
	log.Info().Msg("Server stopped")
}

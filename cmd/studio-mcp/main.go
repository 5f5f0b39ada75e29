package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/nano-studio/internal/boot"
	"github.com/fpang/nano-studio/internal/cli"
	"github.com/fpang/nano-studio/internal/config"
	"github.com/fpang/nano-studio/internal/mcptools"
	"github.com/fpang/nano-studio/internal/studio"
)

// CLI flags
var (
	configFlag string
	modelFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "studio-mcp",
	Short: "MCP server for AI product-photo editing",
	Long: `Studio MCP serves the Model Context Protocol over stdio so an assistant can
open product photos, apply edits or presets, and export the results.

Stdout carries protocol frames; logs and metrics go to stderr.

Example client configuration:
  {"command": "studio-mcp", "env": {"GEMINI_API_KEY": "..."}}`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", config.DefaultPath, "Path to the YAML configuration file")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Gemini image model (overrides gemini.model)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()

	cfg := boot.LoadConfig(configFlag)
	if modelFlag != "" {
		cfg.Gemini.Model = modelFlag
	}
	logCloser := boot.InitLogging(cfg, os.Stderr)
	defer logCloser.Close()
	boot.InitMetrics(cfg, os.Stderr, "studio-mcp")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	editor := cli.InitImageClient(ctx, boot.GeminiConfig(cfg), cfg.Gemini.ValidateKey)
	catalog := boot.LoadCatalog(cfg)

	store := studio.NewStore(editor, boot.SessionOptions(cfg), cfg.Session.IdleTTL)
	defer store.Close()
	go store.Run(ctx, cfg.Session.SweepInterval)

	boot.StartupLog("studio-mcp", initStart).
		Endpoint("transport", "stdio").
		Feature("metrics", cfg.Metrics.Enabled).
		Config("model", editor.Model()).
		Config("presets", fmt.Sprint(catalog.Len())).
		Log()

	server := mcptools.New(store, catalog).MCPServer(boot.Version)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
	log.Info().Msg("MCP server stopped")
}

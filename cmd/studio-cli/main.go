package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fpang/nano-studio/internal/config"
)

// Global flags
var (
	configFlag string
	modelFlag  string
)

// rootCmd is the main Cobra command for the studio CLI.
var rootCmd = &cobra.Command{
	Use:   "studio-cli",
	Short: "AI product-photo editing from the terminal",
	Long: `Studio CLI edits product photos with Gemini image models. Apply one or more
instructions or presets to a photo and export the result as PNG or JPEG.

Examples:
  studio-cli edit mug.jpg --prompt "Change background to pure white"
  studio-cli edit mug.jpg --preset styles/studio --preset camera/close-up --format jpeg
  studio-cli edit            # pick a file and presets interactively
  studio-cli presets
  studio-cli auth set-key`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", config.DefaultPath, "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Gemini image model (overrides gemini.model)")

	rootCmd.AddCommand(editCmd, presetsCmd, authCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

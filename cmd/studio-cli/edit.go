package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/nano-studio/internal/boot"
	"github.com/fpang/nano-studio/internal/cli"
	"github.com/fpang/nano-studio/internal/config"
	"github.com/fpang/nano-studio/internal/imaging"
	"github.com/fpang/nano-studio/internal/presets"
	"github.com/fpang/nano-studio/internal/studio"
)

// edit flags
var (
	promptFlags    []string
	presetFlags    []string
	formatFlag     string
	scaleFlag      float64
	outFlag        string
	bundleFlag     string
	noValidateFlag bool
)

var editCmd = &cobra.Command{
	Use:   "edit [image]",
	Short: "Apply edits to a product photo and export the result",
	Long: `Edit uploads a photo, applies every --prompt and then every --preset in order,
and exports the final image. Each edit builds on the previous result.

Without an image argument the native file dialog opens. Without --prompt or
--preset you choose edits interactively until you pick "Done".`,
	Args: cobra.MaximumNArgs(1),
	Run:  runEdit,
}

func init() {
	editCmd.Flags().StringArrayVarP(&promptFlags, "prompt", "p", nil, "Edit instruction (repeatable)")
	editCmd.Flags().StringArrayVar(&presetFlags, "preset", nil, "Preset reference group/id (repeatable)")
	editCmd.Flags().StringVarP(&formatFlag, "format", "f", "png", "Export format: png or jpeg")
	editCmd.Flags().Float64VarP(&scaleFlag, "scale", "s", 1, "Export scale factor in (0, 4], e.g. 1 or 0.5")
	editCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Output file or directory (default: nano-studio-<date>.<ext>)")
	editCmd.Flags().StringVar(&bundleFlag, "bundle", "", "Also write every step as a ZIP to this file or directory")
	editCmd.Flags().BoolVar(&noValidateFlag, "no-validate", false, "Skip the API key check before editing")
}

func runEdit(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	format, err := imaging.ParseFormat(formatFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid --format")
	}
	if err := imaging.ValidateScale(scaleFlag); err != nil {
		log.Fatal().Err(err).Msg("Invalid --scale")
	}

	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		path, err = cli.PickImageFile()
		if errors.Is(err, zenity.ErrCanceled) {
			fmt.Println("No file selected.")
			return
		}
		if err != nil {
			log.Fatal().Err(err).Msg("File picker failed")
		}
	}
	path, mimeType, err := cli.ResolveImageFile(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot use image")
	}

	catalog := boot.LoadCatalog(cfg)
	instructions, err := resolveInstructions(catalog, promptFlags, presetFlags)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid edit")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	editor := cli.InitImageClient(ctx, boot.GeminiConfig(cfg), cfg.Gemini.ValidateKey && !noValidateFlag)
	sess := studio.NewSession(uuid.NewString(), editor, boot.SessionOptions(cfg))

	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Msg(studio.MsgReadFailed)
	}
	err = sess.Upload(ctx, f, mimeType)
	f.Close()
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Upload failed")
	}
	if info := sess.Snapshot().Info; info != nil {
		fmt.Printf("Loaded %s (%dx%d, %s)\n", path, info.Width, info.Height, cli.FormatBytes(int64(info.Bytes)))
	}

	if len(instructions) > 0 {
		for i, instruction := range instructions {
			if err := applyEdit(ctx, sess, i+1, instruction); err != nil {
				log.Fatal().Err(err).Msg("Edit failed")
			}
		}
	} else {
		for n := 1; ; n++ {
			instruction, err := cli.PromptForEdit(catalog)
			if errors.Is(err, cli.ErrDone) {
				break
			}
			if err != nil {
				log.Fatal().Err(err).Msg("Prompt failed")
			}
			if err := applyEdit(ctx, sess, n, instruction); err != nil {
				fmt.Printf("  ✗ %s\n", sess.Snapshot().Error)
				sess.DismissError()
				n--
			}
		}
	}

	if sess.Snapshot().HistoryLen < 2 {
		fmt.Println("No edits applied; exporting the original.")
	}
	exportResult(sess, format, scaleFlag, outFlag)
	if bundleFlag != "" {
		writeBundle(sess, bundleFlag)
	}
}

func loadConfig() *config.Config {
	cfg := boot.LoadConfig(configFlag)
	if modelFlag != "" {
		cfg.Gemini.Model = modelFlag
	}
	boot.InitLogging(cfg, os.Stderr)
	boot.InitMetrics(cfg, os.Stderr, "studio-cli")
	return cfg
}

// resolveInstructions expands presets into their instruction text. Prompts
// run first, in flag order, followed by presets.
func resolveInstructions(catalog *presets.Catalog, prompts, refs []string) ([]string, error) {
	var out []string
	for _, p := range prompts {
		if p == "" {
			return nil, studio.ErrEmptyInstruction
		}
		out = append(out, p)
	}
	for _, ref := range refs {
		text, err := catalog.Instruction(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, nil
}

func applyEdit(ctx context.Context, sess *studio.Session, n int, instruction string) error {
	spinner := cli.StartSpinner(fmt.Sprintf("Edit %d", n))
	_, err := sess.Generate(ctx, instruction)
	elapsed := spinner.Stop()
	if err != nil {
		return err
	}
	fmt.Printf("  ✓ Edit %d applied in %s\n", n, cli.FormatDurationShort(elapsed))
	return nil
}

func exportResult(sess *studio.Session, format imaging.Format, scale float64, out string) {
	exported, err := sess.Export(imaging.ExportOptions{Format: format, Scale: scale})
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}
	path := imaging.OutputPath(out, imaging.FileName(format, time.Now()))
	if err := os.WriteFile(path, exported.Data, 0o644); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write export")
	}
	fmt.Printf("Saved %s (%dx%d, %s)\n", path, exported.Width, exported.Height, cli.FormatBytes(int64(len(exported.Data))))
}

func writeBundle(sess *studio.Session, requested string) {
	path := imaging.OutputPath(requested, imaging.BundleFileName(time.Now()))
	f, err := os.Create(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to create bundle")
	}
	defer f.Close()
	if err := sess.Bundle(f); err != nil {
		log.Fatal().Err(err).Msg("Failed to write bundle")
	}
	fmt.Printf("Saved history %s (%d images)\n", path, sess.Snapshot().HistoryLen)
}

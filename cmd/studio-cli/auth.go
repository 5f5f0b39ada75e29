package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/nano-studio/internal/auth"
	"github.com/fpang/nano-studio/internal/boot"
	"github.com/fpang/nano-studio/internal/cli"
	"github.com/fpang/nano-studio/internal/gemini"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Gemini API key stored in the OS keyring",
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key [key]",
	Short: "Store the API key (prompts when no key is given)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()
		key := ""
		if len(args) == 1 {
			key = args[0]
		} else {
			prompt := promptui.Prompt{
				Label: "Gemini API key",
				Mask:  '*',
				Validate: func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("key cannot be empty")
					}
					return nil
				},
			}
			var err error
			if key, err = prompt.Run(); err != nil {
				log.Fatal().Err(err).Msg("Prompt failed")
			}
		}
		if err := auth.SetAPIKey(key); err != nil {
			log.Fatal().Err(err).Msg("Failed to store API key")
		}
		fmt.Printf("Stored %s in the OS keyring.\n", auth.MaskKey(strings.TrimSpace(key)))
	},
}

var deleteKeyCmd = &cobra.Command{
	Use:   "delete-key",
	Short: "Remove the API key from the OS keyring",
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()
		if err := auth.DeleteAPIKey(); err != nil {
			log.Fatal().Err(err).Msg("Failed to delete API key")
		}
		fmt.Println("API key removed.")
	},
}

var validateKeyCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the configured API key works",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		key, err := auth.GetAPIKey()
		if err != nil {
			cli.HandleValidationError(err)
		}

		gcfg := boot.GeminiConfig(cfg)
		gcfg.APIKey = key
		client, err := gemini.NewImageClient(context.Background(), gcfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		if err := auth.ValidateAPIKey(context.Background(), client.GenAI(), gemini.ModelGemini25Flash); err != nil {
			cli.HandleValidationError(err)
		}
		fmt.Printf("API key %s is valid.\n", auth.MaskKey(key))
	},
}

func init() {
	authCmd.AddCommand(setKeyCmd, deleteKeyCmd, validateKeyCmd)
}

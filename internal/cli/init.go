package cli

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/fpang/nano-studio/internal/auth"
	"github.com/fpang/nano-studio/internal/gemini"
)

// InitImageClient resolves the API key, creates the Gemini image client and,
// when validate is set, checks the key before any image is sent.
// Exits fatally on failure.
func InitImageClient(ctx context.Context, cfg gemini.Config, validate bool) *gemini.ImageClient {
	apiKey, err := auth.GetAPIKey()
	if err != nil {
		HandleValidationError(err)
	}
	cfg.APIKey = apiKey

	client, err := gemini.NewImageClient(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Gemini client")
	}
	log.Debug().Str("key", auth.MaskKey(apiKey)).Str("model", client.Model()).Msg("Gemini client initialized")

	if validate {
		if err := auth.ValidateAPIKey(ctx, client.GenAI(), gemini.ModelGemini25Flash); err != nil {
			HandleValidationError(err)
		}
		log.Info().Msg("API key validation complete - ready for edits")
	}

	return client
}

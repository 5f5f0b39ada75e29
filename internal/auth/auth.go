package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zalando/go-keyring"
)

// APIKeyEnvVar names the environment variable checked first.
const APIKeyEnvVar = "GEMINI_API_KEY"

const (
	keyringService = "nano-studio"
	keyringUser    = "gemini-api-key"
)

// GetAPIKey retrieves the Gemini API key from available sources.
// Priority order:
//  1. GEMINI_API_KEY environment variable
//  2. the OS keyring entry written by SetAPIKey
func GetAPIKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv(APIKeyEnvVar)); key != "" {
		log.Debug().Msg("Using API key from environment variable")
		return key, nil
	}

	key, err := keyring.Get(keyringService, keyringUser)
	if err == nil && strings.TrimSpace(key) != "" {
		log.Debug().Msg("Using API key from OS keyring")
		return strings.TrimSpace(key), nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		log.Warn().Err(err).Msg("Failed to read API key from OS keyring")
	}

	return "", &ValidationError{
		Type:    ErrTypeNoKey,
		Message: fmt.Sprintf("API key not found. Set %s or run `studio-cli auth set-key`", APIKeyEnvVar),
		Err:     err,
	}
}

// SetAPIKey stores the key in the OS keyring.
func SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key is empty")
	}
	if err := keyring.Set(keyringService, keyringUser, key); err != nil {
		return fmt.Errorf("failed to store API key in keyring: %w", err)
	}
	log.Info().Msg("API key stored in OS keyring")
	return nil
}

// DeleteAPIKey removes the stored key. Deleting a missing key is not an error.
func DeleteAPIKey() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete API key from keyring: %w", err)
	}
	log.Info().Msg("API key removed from OS keyring")
	return nil
}

// MaskKey returns a display-safe form of an API key.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// Package gemini edits images with the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/nano-studio/internal/imaging"
)

// Config selects the model and endpoint.
type Config struct {
	APIKey string
	// Model defaults to DefaultModelName.
	Model string
	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL string
	// SystemInstruction defaults to SystemInstruction; set "-" to send none.
	SystemInstruction string
}

// ImageClient edits images through a Gemini image model.
type ImageClient struct {
	client            *genai.Client
	model             string
	systemInstruction string
}

// NewImageClient builds a client for the Gemini Developer API.
func NewImageClient(ctx context.Context, cfg Config) (*ImageClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModelName
	}
	system := cfg.SystemInstruction
	switch system {
	case "":
		system = SystemInstruction
	case "-":
		system = ""
	}

	log.Debug().Str("model", model).Msg("Gemini image client ready")
	return &ImageClient{client: client, model: model, systemInstruction: system}, nil
}

// Model returns the model used for edits.
func (c *ImageClient) Model() string { return c.model }

// GenAI exposes the underlying SDK client.
func (c *ImageClient) GenAI() *genai.Client { return c.client }

// EditImage sends src with the instruction and returns the edited image.
//
// The service answers with inline image parts. When an inline part carries
// no MIME type, the request's MIME type is assumed; this is the documented
// contract of the API, not a guess about the bytes.
func (c *ImageClient) EditImage(ctx context.Context, src imaging.Image, instruction string) (imaging.Image, error) {
	start := time.Now()
	log.Info().
		Str("model", c.model).
		Int("image_bytes", len(src.Data)).
		Str("image_mime", src.MIMEType).
		Msg("Sending image to Gemini for editing")

	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: src.MIMEType, Data: src.Data}},
		genai.NewPartFromText(instruction),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	if c.systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(c.systemInstruction, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Gemini image editing request failed")
		return imaging.Image{}, fmt.Errorf("image edit request failed: %w", err)
	}

	out, text := extractImage(resp, src.MIMEType)
	if out.Empty() {
		if reason := blockReason(resp); reason != "" {
			return imaging.Image{}, fmt.Errorf("no image returned: %s", reason)
		}
		return imaging.Image{}, fmt.Errorf("no image returned in response (text: %s)", truncateString(text, 200))
	}

	log.Info().
		Int("output_bytes", len(out.Data)).
		Str("output_mime", out.MIMEType).
		Dur("duration", time.Since(start)).
		Msg("Gemini image editing complete")

	return out, nil
}

// extractImage returns the first inline image of the first candidate that
// has one, plus any text the model returned alongside it.
func extractImage(resp *genai.GenerateContentResponse, fallbackMIME string) (imaging.Image, string) {
	if resp == nil {
		return imaging.Image{}, ""
	}
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" {
				text.WriteString(part.Text)
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = fallbackMIME
				}
				return imaging.Image{Data: part.InlineData.Data, MIMEType: mimeType}, text.String()
			}
		}
	}
	return imaging.Image{}, text.String()
}

// blockReason describes why the model declined, if it said so.
func blockReason(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	if pf := resp.PromptFeedback; pf != nil && pf.BlockReason != "" {
		if pf.BlockReasonMessage != "" {
			return fmt.Sprintf("prompt blocked (%s): %s", pf.BlockReason, pf.BlockReasonMessage)
		}
		return fmt.Sprintf("prompt blocked (%s)", pf.BlockReason)
	}
	for _, cand := range resp.Candidates {
		if cand == nil {
			continue
		}
		switch string(cand.FinishReason) {
		case "SAFETY", "PROHIBITED_CONTENT", "IMAGE_SAFETY", "IMAGE_PROHIBITED_CONTENT":
			return fmt.Sprintf("edit refused (%s)", cand.FinishReason)
		}
	}
	return ""
}

// truncateString truncates a string to maxLen, appending "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

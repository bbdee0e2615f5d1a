package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"
)

// ---------------------------------------------------------------------------
// Gemini Chat Service
// Alternative answer generator using the Google Gen AI SDK.
// Selected with CHAT_PROVIDER=gemini; transcription still goes through Whisper.
// ---------------------------------------------------------------------------

const defaultGeminiModel = "gemini-2.0-flash"

type GeminiService struct {
	client *genai.Client
	model  string
}

var _ ChatProvider = (*GeminiService)(nil)

// NewGeminiService creates the SDK client once; it is safe for concurrent use.
func NewGeminiService(ctx context.Context, apiKey, model string) (*GeminiService, error) {
	return NewGeminiServiceWithConfig(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, model)
}

// NewGeminiServiceWithConfig allows a custom endpoint (used by tests).
func NewGeminiServiceWithConfig(ctx context.Context, cfg *genai.ClientConfig, model string) (*GeminiService, error) {
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiService{
		client: client,
		model:  model,
	}, nil
}

// GenerateAnswer implements ChatProvider.
func (s *GeminiService) GenerateAnswer(ctx context.Context, systemPrompt, message string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(message), config)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", fmt.Errorf("gemini returned an empty answer")
	}

	log.Printf("[Gemini] Answer generated (model=%s, text: %q)", s.model, truncateString(answer, 80))

	return answer, nil
}

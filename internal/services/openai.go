package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4o

type OpenAIService struct {
	client *openai.Client
	model  string
}

// Ensure OpenAIService implements both provider interfaces at compile time.
var (
	_ ChatProvider = (*OpenAIService)(nil)
	_ Transcriber  = (*OpenAIService)(nil)
)

func NewOpenAIService(apiKey, model string) *OpenAIService {
	return NewOpenAIServiceWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAIServiceWithConfig builds the service from a full client config,
// e.g. to point BaseURL at a proxy or an Azure deployment.
func NewOpenAIServiceWithConfig(cfg openai.ClientConfig, model string) *OpenAIService {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// GenerateAnswer sends a system instruction plus a single user message and
// returns the assistant's reply.
func (s *OpenAIService) GenerateAnswer(ctx context.Context, systemPrompt, message string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: message,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("openai returned an empty answer (finish_reason=%s)", resp.Choices[0].FinishReason)
	}

	log.Printf("[OpenAI] Answer generated (model=%s, promptTokens=%d, completionTokens=%d, text: %q)",
		s.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, truncateString(answer, 80))

	return answer, nil
}

// ---------------------------------------------------------------------------
// Whisper Transcription
// ---------------------------------------------------------------------------

// Transcribe sends the audio file at audioPath to Whisper and returns the text verbatim.
// The client opens the file itself, so the caller owns the file's lifetime.
func (s *OpenAIService) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription failed: %w", err)
	}

	log.Printf("[Whisper] Transcribed %d chars (text: %q)", len(resp.Text), truncateString(resp.Text, 80))

	return resp.Text, nil
}

// truncateString truncates a string to maxLen and appends "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

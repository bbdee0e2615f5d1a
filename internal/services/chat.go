package services

import "context"

// ChatProvider produces a single answer from a system instruction and a user message.
// OpenAI and Gemini both implement it; the pipeline never sees which one is configured.
type ChatProvider interface {
	GenerateAnswer(ctx context.Context, systemPrompt, message string) (string, error)
}

// Transcriber turns an audio file on disk into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Enums
type InteractionKind string

const (
	InteractionKindChat          InteractionKind = "chat"
	InteractionKindTranscription InteractionKind = "transcription"
)

type InteractionStatus string

const (
	InteractionStatusSucceeded InteractionStatus = "succeeded"
	InteractionStatusFailed    InteractionStatus = "failed"
)

// API request/response types

type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResult is the aggregated output of the chat pipeline.
// Audio and Video carry base64-encoded media; Video is nil when lip-sync
// was skipped or failed, and always serializes (as null in that case).
type ChatResult struct {
	Response string  `json:"response"`
	Audio    string  `json:"audio"`
	Video    *string `json:"video"`
}

type TranscriptionResult struct {
	Text string `json:"text"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Interaction is the audit record stored for each handled request.
// Only sizes and outcomes are kept, never message text or media.
type Interaction struct {
	ID             uuid.UUID         `json:"id"`
	Kind           InteractionKind   `json:"kind"`
	RequestID      *string           `json:"request_id,omitempty"`
	Status         InteractionStatus `json:"status"`
	InputChars     int               `json:"input_chars"`
	OutputChars    int               `json:"output_chars"`
	VideoGenerated bool              `json:"video_generated"`
	ErrorMessage   *string           `json:"error_message,omitempty"`
	DurationMs     int64             `json:"duration_ms"`
	CreatedAt      time.Time         `json:"created_at"`
}

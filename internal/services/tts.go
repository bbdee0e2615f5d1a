package services

import (
	"bytes"
	"context"
)

// ---------------------------------------------------------------------------
// TTSService is the common interface for text-to-speech providers
// Google Translate TTS and ElevenLabs both implement this interface so the
// pipeline can use whichever is configured without knowing the provider.
// ---------------------------------------------------------------------------

// TTSResponse is the common response type from any TTS provider.
type TTSResponse struct {
	AudioData  []byte
	DurationMs int    // Estimated from word count; providers don't report it
	Format     string // "mp3", "wav", etc.
}

// TTSService is the interface that any TTS provider must implement.
// Language and speaking rate are fixed when the provider is constructed.
type TTSService interface {
	GenerateSpeech(ctx context.Context, text string) (*TTSResponse, error)
}

// estimateAudioDuration estimates duration based on text length and speed.
// Average conversational speaking rate is ~150 words per minute at speed 1.0.
func estimateAudioDuration(text string, speed float64) int {
	words := len(bytes.Fields([]byte(text)))
	if speed <= 0 {
		speed = 1.0
	}

	actualWPM := 150.0 * speed
	minutes := float64(words) / actualWPM
	return int(minutes * 60 * 1000)
}

package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Google Translate Text-to-Speech Service
// Uses the public translate_tts endpoint (the same backend gTTS uses).
// The endpoint rejects long inputs, so text is split into <=100 character
// chunks on sentence and word boundaries. Each chunk comes back as a
// standalone MP3 stream; MP3 frames concatenate cleanly, and the transcoding
// stage re-muxes the result into a single well-formed file.
// ---------------------------------------------------------------------------

const (
	googleTTSBaseURL   = "https://translate.google.com"
	googleTTSMaxChunk  = 100
	googleTTSUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// GoogleTTSService handles text-to-speech via Google Translate.
type GoogleTTSService struct {
	baseURL  string
	language string
	client   *http.Client
}

// Ensure GoogleTTSService implements TTSService at compile time.
var _ TTSService = (*GoogleTTSService)(nil)

// NewGoogleTTSService creates a service speaking the given language at normal speed.
func NewGoogleTTSService(language string) *GoogleTTSService {
	return NewGoogleTTSServiceWithURL(googleTTSBaseURL, language)
}

// NewGoogleTTSServiceWithURL overrides the endpoint host (used by tests and mirrors).
func NewGoogleTTSServiceWithURL(baseURL, language string) *GoogleTTSService {
	if language == "" {
		language = "en"
	}
	return &GoogleTTSService{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// GenerateSpeech converts text to MP3 audio.
// Implements the TTSService interface.
func (s *GoogleTTSService) GenerateSpeech(ctx context.Context, text string) (*TTSResponse, error) {
	chunks := splitTTSText(text, googleTTSMaxChunk)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no text to synthesize")
	}

	log.Printf("[GoogleTTS] Generating speech (lang=%s, textLen=%d, chunks=%d)", s.language, len(text), len(chunks))

	var audioData []byte
	for i, chunk := range chunks {
		data, err := s.fetchChunk(ctx, chunk, i, len(chunks))
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		audioData = append(audioData, data...)
	}

	durationMs := estimateAudioDuration(text, 1.0)

	log.Printf("[GoogleTTS] Speech generated (%d bytes, estimated %dms)", len(audioData), durationMs)

	return &TTSResponse{
		AudioData:  audioData,
		DurationMs: durationMs,
		Format:     "mp3",
	}, nil
}

func (s *GoogleTTSService) fetchChunk(ctx context.Context, chunk string, idx, total int) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", s.language)
	params.Set("q", chunk)
	params.Set("ttsspeed", "1")
	params.Set("total", fmt.Sprintf("%d", total))
	params.Set("idx", fmt.Sprintf("%d", idx))
	params.Set("textlen", fmt.Sprintf("%d", utf8.RuneCountInString(chunk)))

	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/translate_tts?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", googleTTSUserAgent)
	req.Header.Set("Referer", "https://translate.google.com/")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("google tts returned status %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("google tts returned empty audio")
	}

	return data, nil
}

// splitTTSText breaks text into chunks of at most maxLen runes.
// Chunks end at sentence punctuation where possible, otherwise at word
// boundaries; a single word longer than maxLen is hard-split.
func splitTTSText(text string, maxLen int) []string {
	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
		}
		current = current[:0]
		currentLen = 0
	}

	for _, word := range strings.Fields(text) {
		for utf8.RuneCountInString(word) > maxLen {
			flush()
			runes := []rune(word)
			chunks = append(chunks, string(runes[:maxLen]))
			word = string(runes[maxLen:])
		}
		if word == "" {
			continue
		}

		wordLen := utf8.RuneCountInString(word)
		needed := wordLen
		if currentLen > 0 {
			needed += currentLen + 1
		}
		if needed > maxLen {
			flush()
			needed = wordLen
		}

		current = append(current, word)
		currentLen = needed

		if strings.ContainsAny(word[len(word)-1:], ".!?;:") {
			flush()
		}
	}
	flush()

	return chunks
}

package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobarin/tutor/internal/models"
	"github.com/bobarin/tutor/internal/services"
	"github.com/google/uuid"
)

// TutorSystemPrompt is the fixed persona sent with every chat message.
const TutorSystemPrompt = "You are a helpful AI tutor. Provide clear, concise, and educational responses."

var (
	ErrEmptyMessage = errors.New("message is required")
	ErrMissingAudio = errors.New("no audio file provided")
)

// Timeouts bounds each external call. Zero means no stage-specific limit
// (the request context still applies).
type Timeouts struct {
	Chat       time.Duration
	Speech     time.Duration
	Transcode  time.Duration
	LipSync    time.Duration
	Transcribe time.Duration
}

type Config struct {
	WorkDir   string // Directory for per-request temp artifacts
	FaceImage string // Reference face for lip-sync
	Timeouts  Timeouts
}

// Orchestrator sequences the external calls behind each endpoint.
// It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	chat        services.ChatProvider
	tts         services.TTSService
	transcoder  services.Transcoder
	renderer    services.VideoRenderer // Optional: nil disables lip-sync
	transcriber services.Transcriber
	workDir     string
	faceImage   string
	timeouts    Timeouts
}

func New(
	chat services.ChatProvider,
	tts services.TTSService,
	transcoder services.Transcoder,
	renderer services.VideoRenderer,
	transcriber services.Transcriber,
	cfg Config,
) (*Orchestrator, error) {
	if chat == nil || tts == nil || transcoder == nil || transcriber == nil {
		return nil, fmt.Errorf("chat, tts, transcoder and transcriber are required")
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "tutor")
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}

	return &Orchestrator{
		chat:        chat,
		tts:         tts,
		transcoder:  transcoder,
		renderer:    renderer,
		transcriber: transcriber,
		workDir:     workDir,
		faceImage:   cfg.FaceImage,
		timeouts:    cfg.Timeouts,
	}, nil
}

// HandleChat answers a message as text, speech audio and (when lip-sync works) video.
//
// Stages run strictly in order:
//  1. answer generation   (fatal)
//  2. speech synthesis    (fatal)
//  3. audio transcoding   (fatal)
//  4. lip-sync rendering  (degradable: failure yields Video == nil)
//
// The speech artifact written for stage 4 exists only while stage 4 runs.
func (o *Orchestrator) HandleChat(ctx context.Context, message string) (*models.ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	runID := uuid.New()
	tag := runID.String()[:8]
	start := time.Now()

	// 1: Answer
	log.Printf("[Pipeline %s] Generating answer (messageLen=%d)...", tag, len(message))
	answer, err := runStage(ctx, o.timeouts.Chat, func(ctx context.Context) (string, error) {
		return o.chat.GenerateAnswer(ctx, TutorSystemPrompt, message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return nil, fmt.Errorf("failed to generate answer: empty response")
	}

	// 2: Speech
	log.Printf("[Pipeline %s] Synthesizing speech (answerLen=%d)...", tag, len(answer))
	speech, err := runStage(ctx, o.timeouts.Speech, func(ctx context.Context) (*services.TTSResponse, error) {
		return o.tts.GenerateSpeech(ctx, answer)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	if speech == nil || len(speech.AudioData) == 0 {
		return nil, fmt.Errorf("failed to synthesize speech: empty audio")
	}
	log.Printf("[Pipeline %s] Speech ready (%d bytes %s, ~%dms)",
		tag, len(speech.AudioData), speechFormat(speech), speech.DurationMs)

	// 3: Transcode
	audio, err := runStage(ctx, o.timeouts.Transcode, func(ctx context.Context) ([]byte, error) {
		return o.transcoder.TranscodeAudio(ctx, speech.AudioData)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to transcode audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("failed to transcode audio: empty output")
	}

	// 4: Lip-sync (non-critical, failure falls back to audio only)
	video := o.renderVideo(ctx, tag, runID, speech)

	log.Printf("[Pipeline %s] Chat complete in %v (audio=%d bytes, video=%t)",
		tag, time.Since(start).Round(time.Millisecond), len(audio), video != nil)

	return &models.ChatResult{
		Response: answer,
		Audio:    base64.StdEncoding.EncodeToString(audio),
		Video:    video,
	}, nil
}

// renderVideo is the isolation boundary for the lip-sync stage: no error or
// panic escapes it, and anything short of a complete video becomes nil.
// The renderer reads the pre-transcode speech from a file that lives only
// for the duration of this call.
func (o *Orchestrator) renderVideo(ctx context.Context, tag string, runID uuid.UUID, speech *services.TTSResponse) (video *string) {
	if o.renderer == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Pipeline %s] Lip-sync panicked, continuing without video: %v", tag, r)
			video = nil
		}
	}()

	speechPath := o.artifactPath("speech", runID, "."+speechFormat(speech))
	defer removeArtifact(speechPath)

	if err := os.WriteFile(speechPath, speech.AudioData, 0644); err != nil {
		log.Printf("[Pipeline %s] Failed to write speech for lip-sync, continuing without video: %v", tag, err)
		return nil
	}

	log.Printf("[Pipeline %s] Rendering lip-sync video...", tag)
	videoData, err := runStage(ctx, o.timeouts.LipSync, func(ctx context.Context) ([]byte, error) {
		return o.renderer.Render(ctx, o.faceImage, speechPath)
	})
	if err != nil {
		log.Printf("[Pipeline %s] Lip-sync failed, continuing without video: %v", tag, err)
		return nil
	}
	if len(videoData) == 0 {
		log.Printf("[Pipeline %s] Lip-sync returned no video, continuing without it", tag)
		return nil
	}

	encoded := base64.StdEncoding.EncodeToString(videoData)
	return &encoded
}

// HandleTranscription converts an uploaded clip to text. filename is only used
// to pick the temp file extension so the provider can sniff the format.
func (o *Orchestrator) HandleTranscription(ctx context.Context, audio []byte, filename string) (*models.TranscriptionResult, error) {
	if len(audio) == 0 {
		return nil, ErrMissingAudio
	}

	runID := uuid.New()
	tag := runID.String()[:8]

	uploadPath := o.artifactPath("upload", runID, uploadExtension(filename))
	defer removeArtifact(uploadPath)

	if err := os.WriteFile(uploadPath, audio, 0644); err != nil {
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	log.Printf("[Pipeline %s] Transcribing upload (%d bytes)...", tag, len(audio))
	text, err := runStage(ctx, o.timeouts.Transcribe, func(ctx context.Context) (string, error) {
		return o.transcriber.Transcribe(ctx, uploadPath)
	})
	if err != nil {
		return nil, err
	}

	return &models.TranscriptionResult{Text: text}, nil
}

// speechFormat is the container the TTS provider reported, mp3 when unknown.
func speechFormat(speech *services.TTSResponse) string {
	if speech.Format == "" {
		return "mp3"
	}
	return strings.ToLower(speech.Format)
}

func (o *Orchestrator) artifactPath(kind string, runID uuid.UUID, ext string) string {
	return filepath.Join(o.workDir, fmt.Sprintf("%s_%s%s", kind, runID.String(), ext))
}

// runStage applies a stage-specific deadline on top of the request context.
func runStage[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx)
}

// uploadExtension keeps short alphanumeric extensions and falls back to .wav.
func uploadExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 6 {
		return ".wav"
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ".wav"
		}
	}
	return ext
}

func removeArtifact(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to remove temp file %s: %v", path, err)
	}
}

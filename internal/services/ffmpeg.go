package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// Transcoder re-encodes audio entirely in memory.
type Transcoder interface {
	TranscodeAudio(ctx context.Context, input []byte) ([]byte, error)
}

// Output encoding for the audio returned to clients
const (
	audioCodec      = "libmp3lame"
	audioBitrate    = "128k"
	audioSampleRate = "44100"
)

// ---------------------------------------------------------------------------
// FFmpegService
// ---------------------------------------------------------------------------

type FFmpegService struct {
	binary string
}

var _ Transcoder = (*FFmpegService)(nil)

// NewFFmpegService uses the given ffmpeg binary (a name on PATH or an absolute path).
func NewFFmpegService(binary string) *FFmpegService {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegService{binary: binary}
}

// Available reports whether the ffmpeg binary can be found.
func (s *FFmpegService) Available() bool {
	_, err := exec.LookPath(s.binary)
	return err == nil
}

// TranscodeAudio normalizes arbitrary input audio into a single self-contained MP3.
// Input is piped through stdin and the result read from stdout, so no files touch disk.
func (s *FFmpegService) TranscodeAudio(ctx context.Context, input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("no audio to transcode")
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "pipe:0",
		"-vn",
		"-c:a", audioCodec,
		"-b:a", audioBitrate,
		"-ar", audioSampleRate,
		"-f", "mp3",
		"pipe:1",
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.binary, args...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg transcode failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no audio")
	}

	log.Printf("[FFmpeg] Transcoded audio %d -> %d bytes", len(input), stdout.Len())

	return stdout.Bytes(), nil
}

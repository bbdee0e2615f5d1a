package services

import (
	"bytes"
	"context"
	"os/exec"
	"testing"
	"time"
)

func requireFFmpeg(t *testing.T) *FFmpegService {
	t.Helper()
	svc := NewFFmpegService("")
	if !svc.Available() {
		t.Skip("ffmpeg not found on PATH")
	}
	return svc
}

// sineWAV renders one second of a 440Hz tone as WAV bytes.
func sineWAV(t *testing.T) []byte {
	t.Helper()
	var out bytes.Buffer
	cmd := exec.Command("ffmpeg", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=1", "-f", "wav", "pipe:1")
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		t.Fatalf("failed to generate test tone: %v", err)
	}
	return out.Bytes()
}

func TestTranscodeAudioProducesMP3(t *testing.T) {
	svc := requireFFmpeg(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mp3, err := svc.TranscodeAudio(ctx, sineWAV(t))
	if err != nil {
		t.Fatalf("TranscodeAudio failed: %v", err)
	}

	// Either an ID3v2 tag or a bare MPEG frame sync
	isID3 := bytes.HasPrefix(mp3, []byte("ID3"))
	isFrame := len(mp3) > 1 && mp3[0] == 0xFF && mp3[1]&0xE0 == 0xE0
	if !isID3 && !isFrame {
		t.Errorf("output does not look like MP3 (first bytes % x)", mp3[:min(4, len(mp3))])
	}
}

func TestTranscodeAudioRejectsGarbage(t *testing.T) {
	svc := requireFFmpeg(t)

	if _, err := svc.TranscodeAudio(context.Background(), []byte("definitely not audio")); err == nil {
		t.Fatal("expected error for invalid input")
	}
}

func TestTranscodeAudioEmptyInput(t *testing.T) {
	svc := NewFFmpegService("ffmpeg")
	if _, err := svc.TranscodeAudio(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

package services

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// Fake inference scripts. Each one locates --outfile in its arguments the
// same way Wav2Lip's argparse would.
const (
	fakeWav2LipOK = `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    --outfile) out="$2"; shift ;;
    --face) face="$2"; shift ;;
    --audio) audio="$2"; shift ;;
  esac
  shift
done
[ -f "$face" ] || exit 3
[ -f "$audio" ] || exit 4
printf 'fake-mp4-video' > "$out"
`
	fakeWav2LipPartialFailure = `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    --outfile) out="$2"; shift ;;
  esac
  shift
done
printf 'partial' > "$out"
echo "CUDA out of memory" >&2
exit 1
`
	fakeWav2LipNoOutput = `#!/bin/sh
exit 0
`
	fakeWav2LipSlow = `#!/bin/sh
exec sleep 5
`
	// Hands the final write to a child process the way inference.py hands it to ffmpeg.
	fakeWav2LipDelegatedWrite = `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    --outfile) out="$2"; shift ;;
  esac
  shift
done
sh -c "sleep 0.6; printf late > '$out'"
exit 0
`
)

type lipSyncFixture struct {
	renderer  *Wav2LipRenderer
	outputDir string
	face      string
	audio     string
}

func newLipSyncFixture(t *testing.T, script string) lipSyncFixture {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "inference.sh")
	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	face := filepath.Join(dir, "face.jpg")
	if err := os.WriteFile(face, []byte("jpeg"), 0644); err != nil {
		t.Fatal(err)
	}
	audio := filepath.Join(dir, "speech.mp3")
	if err := os.WriteFile(audio, []byte("mp3"), 0644); err != nil {
		t.Fatal(err)
	}
	outputDir := filepath.Join(dir, "out")

	r, err := NewWav2LipRenderer(Wav2LipConfig{
		Command:        "sh",
		Script:         scriptPath,
		CheckpointPath: filepath.Join(dir, "wav2lip.pt"),
		OutputDir:      outputDir,
		MaxConcurrent:  1,
	})
	if err != nil {
		t.Fatalf("NewWav2LipRenderer failed: %v", err)
	}

	return lipSyncFixture{renderer: r, outputDir: outputDir, face: face, audio: audio}
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected %s to be empty, found %v", dir, names)
	}
}

func TestWav2LipRenderSuccess(t *testing.T) {
	f := newLipSyncFixture(t, fakeWav2LipOK)

	video, err := f.renderer.Render(context.Background(), f.face, f.audio)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if string(video) != "fake-mp4-video" {
		t.Errorf("unexpected video bytes %q", video)
	}
	assertDirEmpty(t, f.outputDir)
}

func TestWav2LipRenderNonZeroExitRemovesPartialOutput(t *testing.T) {
	f := newLipSyncFixture(t, fakeWav2LipPartialFailure)

	video, err := f.renderer.Render(context.Background(), f.face, f.audio)
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if video != nil {
		t.Errorf("expected no video on failure, got %d bytes", len(video))
	}
	assertDirEmpty(t, f.outputDir)
}

func TestWav2LipRenderMissingOutput(t *testing.T) {
	f := newLipSyncFixture(t, fakeWav2LipNoOutput)

	_, err := f.renderer.Render(context.Background(), f.face, f.audio)
	if err == nil {
		t.Fatal("expected error when no output file is produced")
	}
	if !strings.Contains(err.Error(), "no output file") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestWav2LipRenderMissingFace(t *testing.T) {
	f := newLipSyncFixture(t, fakeWav2LipOK)

	if _, err := f.renderer.Render(context.Background(), filepath.Join(t.TempDir(), "nobody.jpg"), f.audio); err == nil {
		t.Fatal("expected error for missing face image")
	}
}

func TestWav2LipRenderTimeout(t *testing.T) {
	f := newLipSyncFixture(t, fakeWav2LipSlow)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := f.renderer.Render(ctx, f.face, f.audio)
	if err == nil {
		t.Fatal("expected error when the context expires")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("render was not cancelled promptly (took %v)", elapsed)
	}
}

func TestWav2LipRenderTimeoutKillsChildProcesses(t *testing.T) {
	f := newLipSyncFixture(t, fakeWav2LipDelegatedWrite)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if _, err := f.renderer.Render(ctx, f.face, f.audio); err == nil {
		t.Fatal("expected error when the context expires")
	}

	// Give a surviving child time to write its output
	time.Sleep(time.Second)
	assertDirEmpty(t, f.outputDir)
}

func TestWav2LipRenderSlotWaitCancelled(t *testing.T) {
	f := newLipSyncFixture(t, fakeWav2LipOK)

	// Occupy the only slot
	if err := f.renderer.slots.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	defer f.renderer.slots.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.renderer.Render(ctx, f.face, f.audio)
	if err == nil || !strings.Contains(err.Error(), "slot") {
		t.Fatalf("expected slot wait error, got %v", err)
	}
}

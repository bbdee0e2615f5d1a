package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// VideoRenderer turns a still face image and a speech track into a talking-head video.
// Implementations own any intermediate files they create.
type VideoRenderer interface {
	Render(ctx context.Context, facePath, audioPath string) ([]byte, error)
}

// ---------------------------------------------------------------------------
// Wav2Lip renderer
// Runs the Wav2Lip inference script as a subprocess:
//   <command> [script] --checkpoint_path <ckpt> --face <img> --audio <mp3> --outfile <mp4>
// Success means exit code 0 AND a non-empty output file.
//
// Wav2Lip writes intermediate frames to temp/ under its working directory,
// so concurrent runs in the same checkout clobber each other. The semaphore
// caps how many run at once (1 unless configured otherwise).
// ---------------------------------------------------------------------------

type Wav2LipConfig struct {
	Command        string // Interpreter or executable, e.g. "python"
	Script         string // inference.py; omitted from argv when empty
	CheckpointPath string
	OutputDir      string // Where rendered videos are written before being read back
	MaxConcurrent  int
}

type Wav2LipRenderer struct {
	command    string
	script     string
	checkpoint string
	workDir    string
	outputDir  string
	slots      *semaphore.Weighted
}

var _ VideoRenderer = (*Wav2LipRenderer)(nil)

// processWaitDelay bounds how long Wait lingers after the process group was killed.
const processWaitDelay = 5 * time.Second

func NewWav2LipRenderer(cfg Wav2LipConfig) (*Wav2LipRenderer, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("wav2lip command is required")
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}

	// The subprocess runs inside the script's directory, so every path handed
	// to it must be absolute.
	script, err := absIfSet(cfg.Script)
	if err != nil {
		return nil, fmt.Errorf("invalid wav2lip script path: %w", err)
	}
	checkpoint, err := absIfSet(cfg.CheckpointPath)
	if err != nil {
		return nil, fmt.Errorf("invalid wav2lip checkpoint path: %w", err)
	}
	outputDir, err := absIfSet(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("invalid wav2lip output dir: %w", err)
	}
	if outputDir == "" {
		outputDir = os.TempDir()
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create wav2lip output dir: %w", err)
	}

	workDir := ""
	if script != "" {
		workDir = filepath.Dir(script)
	}

	return &Wav2LipRenderer{
		command:    cfg.Command,
		script:     script,
		checkpoint: checkpoint,
		workDir:    workDir,
		outputDir:  outputDir,
		slots:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}, nil
}

// Render runs inference and returns the rendered MP4 bytes.
// The output file is removed before Render returns, whether or not inference succeeded.
func (r *Wav2LipRenderer) Render(ctx context.Context, facePath, audioPath string) ([]byte, error) {
	face, err := filepath.Abs(facePath)
	if err != nil {
		return nil, fmt.Errorf("invalid face image path: %w", err)
	}
	if _, err := os.Stat(face); err != nil {
		return nil, fmt.Errorf("face image unavailable: %w", err)
	}
	audio, err := filepath.Abs(audioPath)
	if err != nil {
		return nil, fmt.Errorf("invalid audio path: %w", err)
	}

	waitStart := time.Now()
	if err := r.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("cancelled while waiting for a wav2lip slot: %w", err)
	}
	defer r.slots.Release(1)
	if waited := time.Since(waitStart); waited > time.Second {
		log.Printf("[Wav2Lip] Waited %v for a render slot", waited.Round(time.Millisecond))
	}

	outPath := filepath.Join(r.outputDir, fmt.Sprintf("lipsync_%s.mp4", uuid.New().String()))
	// A failed run can still leave a partial file behind
	defer removeFile(outPath)

	var args []string
	if r.script != "" {
		args = append(args, r.script)
	}
	args = append(args,
		"--checkpoint_path", r.checkpoint,
		"--face", face,
		"--audio", audio,
		"--outfile", outPath,
	)

	log.Printf("[Wav2Lip] Rendering (face=%s, audio=%s)", filepath.Base(face), filepath.Base(audio))
	start := time.Now()

	cmd := exec.CommandContext(ctx, r.command, args...)
	cmd.Dir = r.workDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	killProcessTree(cmd)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("wav2lip inference aborted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("wav2lip inference failed: %w", err)
	}

	videoData, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("wav2lip produced no output file: %w", err)
	}
	if len(videoData) == 0 {
		return nil, fmt.Errorf("wav2lip produced an empty output file")
	}

	log.Printf("[Wav2Lip] Rendered %d bytes in %v", len(videoData), time.Since(start).Round(time.Millisecond))

	return videoData, nil
}

func absIfSet(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	return filepath.Abs(path)
}

// removeFile deletes a temp artifact, ignoring files that were never created.
func removeFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to remove temp file %s: %v", path, err)
	}
}

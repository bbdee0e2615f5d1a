//go:build unix

package services

import (
	"os/exec"
	"syscall"
)

// killProcessTree runs cmd in its own process group and SIGKILLs the whole
// group on context cancellation, including helpers it spawned (Wav2Lip's ffmpeg).
func killProcessTree(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = processWaitDelay
}

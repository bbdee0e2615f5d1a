//go:build !unix

package services

import "os/exec"

// No process groups here; only the direct child is killed on cancellation.
func killProcessTree(cmd *exec.Cmd) {
	cmd.WaitDelay = processWaitDelay
}

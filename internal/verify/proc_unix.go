//go:build unix

package verify

import (
	"os/exec"
	"syscall"
)

// killProcessGroup runs cmd in its own process group so cancellation also
// stops the build tools sh started.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

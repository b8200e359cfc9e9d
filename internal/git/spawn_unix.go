//go:build !windows

package git

import (
	"os/exec"
	"syscall"
)

// configureCommand puts git in its own process group so a timeout kills
// hooks and helpers it spawned, not just git itself.
func configureCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

//go:build windows

package git

import (
	"os/exec"
	"syscall"
)

// createNoWindow keeps git from flashing a console window when the host
// process has none.
const createNoWindow = 0x08000000

func configureCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: createNoWindow,
	}
}

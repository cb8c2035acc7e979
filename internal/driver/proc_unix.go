//go:build !windows

package driver

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// The compiler-under-test may spawn helpers of its own; running it in a
// fresh process group lets Kill take the whole tree down in one signal.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
}

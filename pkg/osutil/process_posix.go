//go:build unix

package osutil

import (
	"os/exec"
	"syscall"
)

// SetProcessGroup runs cmd in its own process group so that a timed out hook
// can be killed together with anything it spawned.
func SetProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// SetProcessGroupKill makes context cancellation SIGKILL the whole group.
// Must be called after SetProcessGroup and before cmd.Start().
func SetProcessGroupKill(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

// ShellCommand returns the interpreter and flag used to run a hook command line.
func ShellCommand() (string, string) {
	return "sh", "-c"
}

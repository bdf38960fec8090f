//go:build windows

package osutil

import (
	"os/exec"
	"syscall"
)

// SetProcessGroup starts cmd in a new process group.
func SetProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
		HideWindow:    true,
	}
}

// SetProcessGroupKill makes context cancellation kill the process tree.
// Windows has no process-group signal, so the tree is walked instead.
func SetProcessGroupKill(cmd *exec.Cmd) {
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return KillProcessTree(cmd.Process.Pid)
	}
}

// ShellCommand returns the interpreter and flag used to run a hook command line.
func ShellCommand() (string, string) {
	return "cmd", "/C"
}

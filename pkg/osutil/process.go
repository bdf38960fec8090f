// Package osutil contains the process-control helpers used to run hook
// commands with a hard deadline.
package osutil

import (
	"github.com/shirou/gopsutil/v4/process"
)

// IsProcessAlive reports whether a process with the given pid is still
// running. Zombies count as dead.
func IsProcessAlive(pid int) bool {
	found, _ := process.PidExists(int32(pid))
	if !found {
		return false
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	status, err := p.Status()
	if err != nil {
		return true
	}
	for _, s := range status {
		if s == process.Zombie {
			return false
		}
	}
	return true
}

// KillProcessTree kills pid and every descendant it can find. Children are
// killed before their parent so that none of them is re-parented mid-walk.
func KillProcessTree(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return killTree(p)
}

func killTree(p *process.Process) error {
	children, _ := p.Children()
	for _, child := range children {
		_ = killTree(child)
	}
	return p.Kill()
}

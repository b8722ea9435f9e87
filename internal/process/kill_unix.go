//go:build !windows

package process

import "syscall"

// killTree sends SIGKILL to the process group (negative PID).
func killTree(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}

// Package process terminates browser process trees left behind by proofs.
package process

import (
	"errors"
	"fmt"
)

// ErrInvalidPID is returned for PIDs that would target the caller's own
// process group.
var ErrInvalidPID = errors.New("invalid pid")

// KillProcessGroup kills the process pid and all its children.
// Errors are informational: callers fall back to the launcher's own kill.
func KillProcessGroup(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPID, pid)
	}
	return killTree(pid)
}

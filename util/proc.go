package util

import (
	"errors"
	"os"
	"syscall"
)

// IsProcessAlive reports whether a process with the given pid exists
// and has not been reaped yet.
func IsProcessAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// signal 0 performs the existence and permission checks only
	err = p.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}

	// the process exists but belongs to someone else
	return errors.Is(err, syscall.EPERM)
}

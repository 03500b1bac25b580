//go:build !windows

package backend

import (
	"os"
	"os/exec"
	"syscall"
)

func initCmd(cmd *exec.Cmd) {
	// the interpreter may fork helpers, put them all in one group
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// processTree addresses the process group of the backend.
type processTree struct{}

func newProcessTree(*os.Process) (*processTree, error) {
	return &processTree{}, nil
}

func (t *processTree) signal(pid int, force bool) error {
	signal := syscall.SIGTERM
	if force {
		signal = syscall.SIGKILL
	}

	if pgid, err := syscall.Getpgid(pid); err == nil {
		// Negative pid sends signal to all in process group
		return syscall.Kill(-pgid, signal)
	}

	return syscall.Kill(pid, signal)
}

func (t *processTree) release() {}

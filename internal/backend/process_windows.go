package backend

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

func initCmd(cmd *exec.Cmd) {
	// No-op on Windows.
}

// processTree addresses the backend and every process it spawned
// through a job object. Rscript.exe runs the application in a child
// R.exe, which a plain process kill would leave running.
//
// The job kills its members once its last handle is closed, so the
// tree also goes away if the launcher itself dies.
type processTree struct {
	mu  sync.Mutex
	job windows.Handle
}

func newProcessTree(p *os.Process) (*processTree, error) {
	t := &processTree{}

	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return t, fmt.Errorf("failed to create job object: %w", err)
	}

	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE,
		},
	}

	if _, err := windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	); err != nil {
		windows.CloseHandle(job)
		return t, fmt.Errorf("failed to configure job object: %w", err)
	}

	handle, err := windows.OpenProcess(
		windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE,
		false,
		uint32(p.Pid),
	)
	if err != nil {
		windows.CloseHandle(job)
		return t, fmt.Errorf("failed to open process: %w", err)
	}
	defer windows.CloseHandle(handle)

	if err := windows.AssignProcessToJobObject(job, handle); err != nil {
		windows.CloseHandle(job)
		return t, fmt.Errorf("failed to assign process to job object: %w", err)
	}

	t.job = job

	return t, nil
}

// signal always kills on Windows, there is no portable way to
// deliver a graceful termination request.
func (t *processTree) signal(pid int, _ bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.job != 0 {
		return windows.TerminateJobObject(t.job, 1)
	}

	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	return p.Kill()
}

func (t *processTree) release() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.job != 0 {
		windows.CloseHandle(t.job)
		t.job = 0
	}
}

package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type ExitEvent struct {
	// Code is the exit code of the process
	Code *int

	// Signal is the signal that caused the process to exit
	Signal *int

	// Stderr holds the last lines the process wrote to stderr
	Stderr string
}

func (e ExitEvent) String() string {
	switch {
	case e.Signal != nil:
		return fmt.Sprintf("terminated by signal %d", *e.Signal)
	case e.Code != nil:
		return fmt.Sprintf("exited with code %d", *e.Code)
	default:
		return "exited"
	}
}

// Process is a handle to the running backend. It is created by the
// Supervisor and stays valid after the process exited.
type Process struct {
	pid  int
	cmd  string
	args []string

	done chan struct{}
	exit ExitEvent

	// tree addresses the process and its children
	tree *processTree

	// signal delivers a termination request to the process tree,
	// force selects a kill over a graceful termination
	signal func(pid int, force bool) error

	killOnce sync.Once
	termOnce sync.Once

	relay *relay

	log *zap.Logger
}

func startProcess(
	ctx context.Context,
	config Config,
	sink LogSink,
	log *zap.Logger,
) (*Process, error) {
	// exit early if the context is already cancelled
	if ctx.Err() != nil {
		return nil, &SpawnError{Cmd: config.Start.Cmd, Err: ctx.Err()}
	}

	cmd := exec.Command(config.Start.Cmd, config.Start.Args...)

	if config.Start.Env != nil {
		env := os.Environ()
		for k, v := range config.Start.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
	}

	if config.Start.Cwd != "" {
		cmd.Dir = config.Start.Cwd
	}

	relay := newRelay(sink, config.Output.BufferSize)
	stderrTail := newTail(config.Output.TailSize)

	stdout := newLineWriter(Stdout, relay.offer)
	stderr := newLineWriter(Stderr, func(l Line) {
		stderrTail.add(l.Text)
		relay.offer(l)
	})

	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// children that inherited the pipes must not keep Wait blocked
	cmd.WaitDelay = defaultWaitDelay

	initCmd(cmd)

	if err := cmd.Start(); err != nil {
		relay.close()
		return nil, &SpawnError{Cmd: config.Start.Cmd, Err: err}
	}

	p := &Process{
		pid:   cmd.Process.Pid,
		cmd:   config.Start.Cmd,
		args:  config.Start.Args,
		done:  make(chan struct{}),
		relay: relay,
		log:   log.Named("proc").With(zap.Int("pid", cmd.Process.Pid)),
	}

	tree, err := newProcessTree(cmd.Process)
	if err != nil {
		// the process itself can still be killed
		p.log.Warn("failed to track process tree", zap.Error(err))
	}

	p.tree = tree
	p.signal = tree.signal

	go func() {
		// block until the process exits and its output is drained
		err := cmd.Wait()

		tree.release()

		stdout.Flush()
		stderr.Flush()
		relay.close()

		p.exit = getExitEvent(err, stderrTail.String())

		if dropped := relay.Dropped(); dropped > 0 {
			p.log.Warn("dropped backend output", zap.Int64("lines", dropped))
		}

		p.log.Info("process exited", zap.Stringer("exit", p.exit))

		close(p.done)
	}()

	// the process does not outlive the context it was started with
	go func() {
		select {
		case <-p.done:
		case <-ctx.Done():
			p.Kill()
		}
	}()

	return p, nil
}

func (p *Process) Pid() int {
	return p.pid
}

// Cmd returns the executable the process was started from.
func (p *Process) Cmd() string {
	return p.cmd
}

// Args returns a copy of the argument vector the process was started with.
func (p *Process) Args() []string {
	return append([]string(nil), p.args...)
}

// Dropped returns the number of output lines that were not
// forwarded to the log sink because it could not keep up.
func (p *Process) Dropped() int64 {
	return p.relay.Dropped()
}

// Running reports whether the process has not exited yet.
func (p *Process) Running() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Done returns a channel that is closed once the process exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exit returns the exit details of the process. The result is
// only meaningful after Done has been closed.
func (p *Process) Exit() ExitEvent {
	select {
	case <-p.done:
		return p.exit
	default:
		return ExitEvent{}
	}
}

// Kill requests the termination of the process. It may be called any
// number of times; at most one kill signal is ever sent, and none if the
// process already exited. Kill does not wait for the process to exit.
func (p *Process) Kill() {
	p.killOnce.Do(func() {
		if !p.Running() {
			p.log.Debug("process already terminated")
			return
		}

		p.log.Info("killing process")

		// best effort, the process may exit concurrently
		if err := p.signal(p.pid, true); err != nil && !errors.Is(err, syscall.ESRCH) {
			p.log.Error("kill failed", zap.Error(err))
		}
	})
}

// Terminate asks the process to exit and waits up to timeout for it to
// do so, falling back to Kill. A timeout <= 0 kills right away.
func (p *Process) Terminate(timeout time.Duration) error {
	if !p.Running() {
		return nil
	}

	if timeout <= 0 {
		p.Kill()
		return nil
	}

	p.termOnce.Do(func() {
		p.log.Info("terminating process")

		if err := p.signal(p.pid, false); err != nil && !errors.Is(err, syscall.ESRCH) {
			p.log.Error("terminate failed", zap.Error(err))
		}
	})

	select {
	case <-p.done:
		return nil
	case <-time.After(timeout):
		p.Kill()
		return ErrKillTimeout
	}
}

// Wait blocks until the process exited or ctx is done.
func (p *Process) Wait(ctx context.Context) (ExitEvent, error) {
	select {
	case <-ctx.Done():
		return ExitEvent{}, ctx.Err()
	case <-p.done:
		return p.exit, nil
	}
}

// MARK: - Helpers

func getExitEvent(err error, stderr string) ExitEvent {
	var cell int
	var exitStatus *int
	var signo *int

	var exitError *exec.ExitError

	if err == nil || errors.Is(err, exec.ErrWaitDelay) {
		// the process exited successfully, set the exit code to 0
		exitStatus = &cell
	} else if errors.As(err, &exitError) {
		// the process exited with an error
		if status, ok := exitError.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				// the process was terminated by a signal
				cell = int(status.Signal())
				signo = &cell
			} else {
				// the process exited with an exit code
				cell = status.ExitStatus()
				exitStatus = &cell
			}
		}
	}

	if signo == nil && exitStatus == nil {
		// could not determine the exit status or signal,
		// set exit status to 1
		cell = 1
		exitStatus = &cell
	}

	return ExitEvent{
		Code:   exitStatus,
		Signal: signo,
		Stderr: stderr,
	}
}

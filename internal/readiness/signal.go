package readiness

import (
	"errors"
	"sync"
)

var (
	ErrNotReadyTimeout     = errors.New("backend did not become ready in time")
	ErrUnsupportedStrategy = errors.New("unsupported readiness strategy")
)

// Signal is a one-shot readiness event. It fires at most once, either
// because the target became ready or because the gate gave up, in which
// case Err reports the reason.
type Signal struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// fire resolves the signal and reports whether this call did so.
// Subsequent calls are ignored.
func (s *Signal) fire(err error) bool {
	fired := false

	s.once.Do(func() {
		s.err = err
		fired = true
		close(s.done)
	})

	return fired
}

// Done returns a channel that is closed once the signal fired.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Err returns the failure the signal fired with, if any. It returns
// nil while the signal has not fired.
func (s *Signal) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Fired reports whether the signal has fired.
func (s *Signal) Fired() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

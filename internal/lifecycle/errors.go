package lifecycle

import "errors"

var (
	ErrBackendExited  = errors.New("backend exited unexpectedly")
	ErrAlreadyRunning = errors.New("controller already running")
)

package backend

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyStarted = errors.New("backend already started")
	ErrKillTimeout    = errors.New("kill timeout")
)

// SpawnError is returned when the backend executable
// cannot be found or started.
type SpawnError struct {
	Cmd string
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn backend %q: %v", e.Cmd, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

func IsSpawnError(err error) bool {
	if err == nil {
		return false
	}

	var spawnErr *SpawnError
	return errors.As(err, &spawnErr)
}

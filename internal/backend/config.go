package backend

import "time"

// StartConfig describes how the backend process is spawned.
type StartConfig struct {
	// Cmd is the path or name of the binary to execute
	Cmd string `conf:"cmd"`

	// Cwd is the working directory in which
	// the binary should be executed
	Cwd string `conf:"cwd"`

	// Args is the list of arguments to pass to the command
	Args []string `conf:"args"`

	// Env is a map of environment variables to set on top
	// of the environment inherited from the parent process
	Env map[string]string `conf:"env"`
}

type StopConfig struct {
	// Timeout is the duration to wait for the backend to exit after
	// a graceful termination request before it is killed
	Timeout time.Duration `conf:"timeout"`
}

type OutputConfig struct {
	// BufferSize is the number of output lines that may be queued for
	// the log sink. Lines are dropped while the queue is full.
	BufferSize int `conf:"buffer_size"`

	// TailSize is the number of trailing stderr lines kept for the
	// exit event
	TailSize int `conf:"tail_size"`
}

type Config struct {
	Start  StartConfig  `conf:"start,squash"`
	Stop   StopConfig   `conf:"stop"`
	Output OutputConfig `conf:"output"`
}

const (
	defaultBufferSize = 256
	defaultTailSize   = 20
	defaultWaitDelay  = 2 * time.Second
)

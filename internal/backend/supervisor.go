package backend

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type Params struct {
	// Config is the config used to spawn and stop the backend
	Config Config

	// Sink receives the output of the backend. If nil,
	// output is written to the supervisor's logger.
	Sink LogSink

	// Log is the logger to use for the supervisor
	Log *zap.Logger
}

// Supervisor owns the single backend process of an application run.
type Supervisor struct {
	config Config
	sink   LogSink

	processLock sync.Mutex
	process     *Process

	log *zap.Logger
}

func New(params Params) *Supervisor {
	log := params.Log
	if log == nil {
		log = zap.NewNop()
	}

	log = log.Named("backend")

	sink := params.Sink
	if sink == nil {
		sink = NewZapSink(log.Named("output"))
	}

	return &Supervisor{
		config: params.Config,
		sink:   sink,
		log:    log,
	}
}

// Start spawns the backend. The process is bound to ctx: once ctx is done,
// the process is killed. Start returns a *SpawnError if the executable
// could not be started, and ErrAlreadyStarted if a process was already
// spawned by this supervisor.
func (s *Supervisor) Start(ctx context.Context) (*Process, error) {
	s.processLock.Lock()
	defer s.processLock.Unlock()

	if s.process != nil {
		return nil, ErrAlreadyStarted
	}

	s.log.Debug("starting backend",
		zap.String("command", s.config.Start.Cmd),
		zap.Strings("args", s.config.Start.Args),
		zap.String("cwd", s.config.Start.Cwd),
	)

	process, err := startProcess(ctx, s.config, s.sink, s.log)
	if err != nil {
		s.log.Error("failed to start backend", zap.Error(err))
		return nil, err
	}

	s.log.Info("backend started", zap.Int("pid", process.Pid()))

	s.process = process

	return process, nil
}

// Process returns the spawned process, or nil if Start did not succeed.
func (s *Supervisor) Process() *Process {
	s.processLock.Lock()
	defer s.processLock.Unlock()

	return s.process
}

// Kill kills the backend, if any. Safe to call any number of times.
func (s *Supervisor) Kill() {
	if p := s.Process(); p != nil {
		p.Kill()
	}
}

// Stop gracefully terminates the backend using the configured timeout.
func (s *Supervisor) Stop() error {
	p := s.Process()
	if p == nil {
		return nil
	}

	return p.Terminate(s.config.Stop.Timeout)
}

package desktop_test

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/lambda-feedback/shinydesk/app/desktop"
	"github.com/lambda-feedback/shinydesk/config"
	"github.com/lambda-feedback/shinydesk/internal/backend"
	"github.com/lambda-feedback/shinydesk/internal/lifecycle"
	"github.com/lambda-feedback/shinydesk/internal/platform"
	"github.com/lambda-feedback/shinydesk/internal/readiness"
	"github.com/lambda-feedback/shinydesk/internal/surface"
	surface_mocks "github.com/lambda-feedback/shinydesk/mocks/surface"
	"github.com/lambda-feedback/shinydesk/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

type stubSurface struct {
	done chan struct{}
	once sync.Once
}

func newStubSurface() *stubSurface {
	return &stubSurface{done: make(chan struct{})}
}

func (s *stubSurface) Load(string) error     { return nil }
func (s *stubSurface) Show() error           { return nil }
func (s *stubSurface) Hide() error           { return nil }
func (s *stubSurface) Done() <-chan struct{} { return s.done }
func (s *stubSurface) OnDOMReady(func())     {}

func (s *stubSurface) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

type stubFactory struct{}

func (stubFactory) Placeholder(context.Context) (surface.Surface, error) {
	return newStubSurface(), nil
}

func (stubFactory) Main(context.Context) (surface.Surface, error) {
	return newStubSurface(), nil
}

func newTestApp(t *testing.T, cfg desktop.Config, notifier surface.Notifier) (*fxtest.App, *backend.Supervisor, *lifecycle.Controller) {
	var (
		supervisor *backend.Supervisor
		ctrl       *lifecycle.Controller
	)

	gate, err := readiness.New(readiness.Params{
		Config: readiness.Config{Strategy: readiness.DOMStrategy},
	})
	require.NoError(t, err)

	app := fxtest.New(t,
		fx.Supply(fx.Annotate(context.Background(), fx.As(new(context.Context)))),
		fx.Supply(zap.NewNop()),
		fx.Supply(cfg),
		fx.Supply(fx.Annotate(gate, fx.As(new(readiness.Gate)))),
		fx.Supply(fx.Annotate(stubFactory{}, fx.As(new(surface.Factory)))),
		fx.Supply(fx.Annotate(notifier, fx.As(new(surface.Notifier)))),
		fx.Provide(desktop.NewSupervisor),
		fx.Provide(desktop.NewLifecycleController),
		fx.Populate(&supervisor, &ctrl),
	)

	return app, supervisor, ctrl
}

func TestLifecycleController_StopKillsBackend(t *testing.T) {
	cfg := desktop.Config{
		URL: "http://127.0.0.1:9191",
		Backend: backend.Config{
			Start: backend.StartConfig{Cmd: "sleep", Args: []string{"10"}},
			Stop:  backend.StopConfig{Timeout: time.Second},
		},
	}

	app, supervisor, ctrl := newTestApp(t, cfg, surface_mocks.NewMockNotifier(t))
	app.RequireStart()

	require.Eventually(t, func() bool {
		return supervisor.Process() != nil
	}, time.Second, 5*time.Millisecond)

	pid := supervisor.Process().Pid()
	assert.True(t, util.IsProcessAlive(pid))

	app.RequireStop()

	<-ctrl.Done()
	assert.NoError(t, ctrl.Err())

	require.Eventually(t, func() bool {
		return !util.IsProcessAlive(pid)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLifecycleController_SpawnFailureShutsDown(t *testing.T) {
	cfg := desktop.Config{
		Backend: backend.Config{
			Start: backend.StartConfig{Cmd: "shinydesk-nonexistent-rscript"},
		},
	}

	notifier := surface_mocks.NewMockNotifier(t)
	notifier.EXPECT().Notify(mock.Anything, mock.Anything).Return().Once()

	app, supervisor, _ := newTestApp(t, cfg, notifier)
	app.RequireStart()

	select {
	case sig := <-app.Wait():
		assert.Equal(t, desktop.ExitCodeSpawnFailed, sig.ExitCode)
	case <-time.After(2 * time.Second):
		t.Fatal("application did not shut down")
	}

	assert.Nil(t, supervisor.Process())

	app.RequireStop()
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{nil, 0},
		{&backend.SpawnError{Cmd: "Rscript", Err: exec.ErrNotFound}, desktop.ExitCodeSpawnFailed},
		{fmt.Errorf("failed to start backend: %w", &backend.SpawnError{Cmd: "Rscript"}), desktop.ExitCodeSpawnFailed},
		{readiness.ErrNotReadyTimeout, desktop.ExitCodeNotReady},
		{fmt.Errorf("%w: exit code 1", lifecycle.ErrBackendExited), desktop.ExitCodeBackendExited},
		{surface.ErrNoBrowser, desktop.ExitCodeFailure},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, desktop.ExitCode(tt.err), tt.err)
	}
}

func TestNewConfig_RunsResolvedEntry(t *testing.T) {
	cfg := config.Config{
		Server:  config.ServerConfig{Host: "127.0.0.1", Port: 9191},
		Dialogs: true,
	}

	paths := platform.Paths{
		Interpreter: "/usr/bin/Rscript",
		EntryFile:   "/opt/app/app.R",
		AppDir:      "/opt/app",
	}

	c := desktop.NewConfig(cfg, paths)

	assert.Equal(t, "http://127.0.0.1:9191", c.URL)
	assert.Equal(t, "/usr/bin/Rscript", c.Backend.Start.Cmd)
	assert.Equal(t, platform.Args(paths.EntryFile, "127.0.0.1", 9191), c.Backend.Start.Args)
	assert.Equal(t, "/opt/app", c.Backend.Start.Cwd)
	assert.True(t, c.Dialogs)
}

func TestNewConfig_CustomCommand(t *testing.T) {
	cfg := config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8000},
		Backend: backend.Config{
			Start: backend.StartConfig{Cmd: "python", Args: []string{"-m", "shiny", "run"}, Cwd: "/srv"},
		},
	}

	c := desktop.NewConfig(cfg, platform.Paths{Interpreter: "/usr/bin/Rscript", AppDir: "/opt/app"})

	assert.Equal(t, "python", c.Backend.Start.Cmd)
	assert.Equal(t, []string{"-m", "shiny", "run"}, c.Backend.Start.Args)
	assert.Equal(t, "/srv", c.Backend.Start.Cwd)
}

package desktop

import (
	"context"
	"errors"

	"github.com/lambda-feedback/shinydesk/internal/backend"
	"github.com/lambda-feedback/shinydesk/internal/lifecycle"
	"github.com/lambda-feedback/shinydesk/internal/readiness"
	"github.com/lambda-feedback/shinydesk/internal/surface"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	ExitCodeFailure       = 1
	ExitCodeSpawnFailed   = 2
	ExitCodeNotReady      = 3
	ExitCodeBackendExited = 4
)

type ControllerParams struct {
	fx.In

	// Context is the application context
	Context context.Context

	Config     Config
	Supervisor *backend.Supervisor
	Gate       readiness.Gate
	Surfaces   surface.Factory
	Notifier   surface.Notifier

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Log        *zap.Logger
}

func NewController(params ControllerParams) *lifecycle.Controller {
	return lifecycle.New(lifecycle.Params{
		URL:      params.Config.URL,
		Launcher: lifecycle.SupervisorLauncher(params.Supervisor),
		Surfaces: params.Surfaces,
		Gate:     params.Gate,
		Notifier: params.Notifier,
		Log:      params.Log,
	})
}

// NewLifecycleController binds the controller to the application
// lifecycle. The application shuts down once the controller closed,
// and closing the application closes the controller.
func NewLifecycleController(params ControllerParams) *lifecycle.Controller {
	ctrl := NewController(params)
	log := params.Log

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				err := ctrl.Run(params.Context)
				if err != nil {
					log.Error("application closed", zap.Error(err))
				}

				if err := params.Shutdowner.Shutdown(fx.ExitCode(ExitCode(err))); err != nil {
					log.Debug("failed to request shutdown", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctrl.Quit()

			select {
			case <-ctrl.Done():
				return nil
			case <-ctx.Done():
				log.Warn("controller did not close in time, stopping backend")
				return errors.Join(ctx.Err(), params.Supervisor.Stop())
			}
		},
	})

	return ctrl
}

// ExitCode maps the result of a controller run to a process exit code.
func ExitCode(err error) int {
	var spawnErr *backend.SpawnError

	switch {
	case err == nil:
		return 0
	case errors.As(err, &spawnErr):
		return ExitCodeSpawnFailed
	case errors.Is(err, readiness.ErrNotReadyTimeout):
		return ExitCodeNotReady
	case errors.Is(err, lifecycle.ErrBackendExited):
		return ExitCodeBackendExited
	default:
		return ExitCodeFailure
	}
}

package desktop

import (
	"github.com/lambda-feedback/shinydesk/internal/backend"
	"github.com/lambda-feedback/shinydesk/internal/readiness"
	"github.com/lambda-feedback/shinydesk/internal/surface"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ComponentParams struct {
	fx.In

	Config Config
	Log    *zap.Logger
}

func NewSupervisor(params ComponentParams) *backend.Supervisor {
	return backend.New(backend.Params{
		Config: params.Config.Backend,
		Log:    params.Log,
	})
}

func NewGate(params ComponentParams) (readiness.Gate, error) {
	return readiness.New(readiness.Params{
		Config: params.Config.Readiness,
		URL:    params.Config.URL,
		Log:    params.Log,
	})
}

func NewSurfaceFactory(params ComponentParams) (surface.Factory, error) {
	factory, err := surface.NewLorcaFactory(params.Config.Surface, params.Log)
	if err != nil {
		return nil, err
	}

	return factory, nil
}

func NewNotifier(params ComponentParams) surface.Notifier {
	if !params.Config.Dialogs {
		return surface.NewLogNotifier(params.Log)
	}

	return surface.NewDialogNotifier(params.Config.Surface, params.Log)
}

package desktop

import (
	"go.uber.org/fx"

	"github.com/lambda-feedback/shinydesk/internal/lifecycle"
	"github.com/lambda-feedback/shinydesk/util/logging"
)

// Module provides the desktop application: the backend supervisor,
// the surfaces and the lifecycle controller driving them.
func Module(config Config) fx.Option {
	return fx.Module(
		"desktop",
		// provide desktop config
		fx.Supply(config),
		// rename logger for module
		logging.DecorateLogger("desktop"),
		// provide collaborators
		fx.Provide(
			NewSupervisor,
			NewGate,
			NewSurfaceFactory,
			NewNotifier,
		),
		// provide controller
		fx.Provide(NewLifecycleController),
		// invoke controller
		fx.Invoke(func(*lifecycle.Controller) {}),
	)
}

package desktop

import (
	"github.com/lambda-feedback/shinydesk/config"
	"github.com/lambda-feedback/shinydesk/internal/backend"
	"github.com/lambda-feedback/shinydesk/internal/platform"
	"github.com/lambda-feedback/shinydesk/internal/readiness"
	"github.com/lambda-feedback/shinydesk/internal/surface"
)

type Config struct {
	// URL is the address the backend serves the application on
	URL string

	// Backend is the fully resolved backend process configuration
	Backend backend.Config

	Readiness readiness.Config

	Surface surface.Config

	// Dialogs enables native error dialogs
	Dialogs bool
}

// NewConfig derives the desktop configuration from the application
// configuration. Unless a backend command is configured explicitly,
// the backend runs the resolved entry file with the resolved interpreter.
func NewConfig(cfg config.Config, paths platform.Paths) Config {
	backendConfig := cfg.Backend

	if backendConfig.Start.Cmd == "" {
		backendConfig.Start.Cmd = paths.Interpreter
		backendConfig.Start.Args = platform.Args(paths.EntryFile, cfg.Server.Host, cfg.Server.Port)
	}

	if backendConfig.Start.Cwd == "" {
		backendConfig.Start.Cwd = paths.AppDir
	}

	return Config{
		URL:       cfg.URL(),
		Backend:   backendConfig,
		Readiness: cfg.Readiness,
		Surface:   cfg.Surface,
		Dialogs:   cfg.Dialogs,
	}
}

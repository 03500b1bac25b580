package config

import (
	"time"

	"github.com/lambda-feedback/shinydesk/internal/backend"
	"github.com/lambda-feedback/shinydesk/internal/platform"
	"github.com/lambda-feedback/shinydesk/internal/readiness"
	"github.com/lambda-feedback/shinydesk/internal/surface"
	"github.com/lambda-feedback/shinydesk/util/conf"
)

type ServerConfig struct {
	// Host is the loopback address the backend binds to
	Host string `conf:"host"`

	// Port is the port the backend listens on
	Port int `conf:"port"`
}

type Config struct {
	// LogLevel is the log level for the application
	LogLevel string `conf:"log_level"`

	// LogFormat is the log format for the application
	LogFormat string `conf:"log_format"`

	// Server is the address the backend serves the application on
	Server ServerConfig `conf:"server"`

	// Backend is the backend process configuration. If no command is
	// set, the resolved interpreter runs the application entry file.
	Backend backend.Config `conf:"backend"`

	// Platform is the interpreter and application file configuration
	Platform platform.Config `conf:"platform"`

	// Readiness is the readiness detection configuration
	Readiness readiness.Config `conf:"readiness"`

	// Surface is the window configuration
	Surface surface.Config `conf:"surface"`

	// Dialogs enables native error dialogs. Errors are only
	// logged if disabled.
	Dialogs bool `conf:"dialogs"`
}

var DefaultConfig = conf.DefaultConfig{
	"log_level":  "info",
	"log_format": "production",

	"server.host": "127.0.0.1",
	"server.port": 9191,

	"backend.stop.timeout":       5 * time.Second,
	"backend.output.buffer_size": 256,
	"backend.output.tail_size":   20,

	"platform.entry":     "app.R",
	"platform.platforms": []string{"windows", "darwin", "linux"},

	"readiness.strategy":     string(readiness.PollStrategy),
	"readiness.interval":     250 * time.Millisecond,
	"readiness.timeout":      60 * time.Second,
	"readiness.settle_delay": 2 * time.Second,

	"readiness.reload_interval": 5 * time.Second,

	"surface.main.width":         1024,
	"surface.main.height":        768,
	"surface.placeholder.width":  480,
	"surface.placeholder.height": 320,
	"surface.poll_interval":      250 * time.Millisecond,
	"surface.dialog_timeout":     5 * time.Minute,

	"dialogs": true,
}

// URL returns the address the application is served on.
func (c Config) URL() string {
	return platform.URL(c.Server.Host, c.Server.Port)
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lambda-feedback/shinydesk/config"
	"github.com/lambda-feedback/shinydesk/internal/shell"
	"github.com/lambda-feedback/shinydesk/util/conf"
	"github.com/lambda-feedback/shinydesk/util/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	appName  = "shinydesk"
	appUsage = `Run a Shiny application as a desktop application.

The application server is started in the background while a
loading window is shown. The application window is revealed
once the server is ready, and the server is stopped when the
application window is closed.`
	rootApp = &cli.App{
		Name:            appName,
		Usage:           appUsage,
		HideHelpCommand: true,
		Action:          launchAction,
		Flags: []cli.Flag{
			// general flags
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "set the log level. Options: debug, info, warn, error, panic, fatal.",
				EnvVars: []string{"SHINYDESK_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "set the log format. Options: production, development.",
				EnvVars: []string{"SHINYDESK_LOG_FORMAT"},
			},
			&cli.PathFlag{
				Name:    "config",
				Usage:   "the configuration file to load. Files ending in .env are parsed as dotenv files, all others as json.",
				Aliases: []string{"c"},
				EnvVars: []string{"SHINYDESK_CONFIG"},
			},
			// server flags
			&cli.StringFlag{
				Name:     "host",
				Usage:    "the loopback address the application server binds to.",
				Category: "server",
			},
			&cli.IntFlag{
				Name:     "port",
				Aliases:  []string{"p"},
				Usage:    "the port the application server listens on.",
				Category: "server",
			},
			// platform flags
			&cli.PathFlag{
				Name:     "app-dir",
				Usage:    "the directory holding the application. Defaults to the directory of the executable.",
				Category: "application",
			},
			&cli.StringFlag{
				Name:     "entry",
				Usage:    "the application entry file, relative to the application directory.",
				Category: "application",
			},
			&cli.PathFlag{
				Name:     "interpreter",
				Usage:    "the Rscript executable to use instead of the resolved one.",
				Category: "application",
			},
			// readiness flags
			&cli.StringFlag{
				Name:     "strategy",
				Usage:    "how readiness of the application is detected. Options: poll, dom.",
				Category: "readiness",
			},
			&cli.DurationFlag{
				Name:     "ready-timeout",
				Usage:    "how long to wait for the application to become ready.",
				Category: "readiness",
			},
			&cli.DurationFlag{
				Name:     "settle-delay",
				Usage:    "how long to wait after the application is ready before it is shown.",
				Category: "readiness",
			},
			// surface flags
			&cli.BoolFlag{
				Name:     "dialogs",
				Usage:    "show errors in a dialog window.",
				Value:    true,
				Category: "window",
			},
		},
		Before: func(ctx *cli.Context) error {
			// bootstrap logger, used while parsing the config
			log, err := createLogger(ctx.String("log-level"), ctx.String("log-format"))
			if err != nil {
				return err
			}

			cfg, err := conf.Parse[config.Config](conf.ParseOptions{
				Cli:       ctx,
				CliMap:    cliMap,
				Defaults:  config.DefaultConfig,
				EnvPrefix: "SHINYDESK_",
				FileName:  ctx.Path("config"),
				Schema:    config.Schema,
				Log:       log,
			})
			if err != nil {
				return err
			}

			// final logger, honoring the parsed config
			log, err = createLogger(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}

			// inject logger into cli context
			ctx.Context = logging.ContextWithLogger(ctx.Context, log)

			// inject the config into the cli context
			ctx.Context = conf.ContextWithConfig(ctx.Context, cfg)

			return nil
		},
		After: func(ctx *cli.Context) error {
			logging.LoggerFromContextOrNop(ctx.Context).Sync()
			return nil
		},
	}

	// cliMap maps flag names to config keys
	cliMap = map[string]string{
		"host":          "server.host",
		"port":          "server.port",
		"app-dir":       "platform.app_dir",
		"entry":         "platform.entry",
		"interpreter":   "platform.interpreter",
		"strategy":      "readiness.strategy",
		"ready-timeout": "readiness.timeout",
		"settle-delay":  "readiness.settle_delay",
		"config":        "-",
	}
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:               "version",
		Usage:              "print the version",
		DisableDefaultText: true,
	}
}

type ExecuteParams struct {
	Version  string
	Compiled time.Time
}

func Execute(params ExecuteParams) {
	rootApp.Version = params.Version
	rootApp.Compiled = params.Compiled

	run(context.Background(), os.Args)
}

func run(ctx context.Context, args []string) {
	err := rootApp.RunContext(ctx, args)

	// if app exited without error, return
	if err == nil {
		return
	}

	// the shell logged the cause already
	if !shell.IsExitError(err) {
		fmt.Fprintf(os.Stderr, "exit error: %s\n", err.Error())
	}

	os.Exit(shell.ExitCode(err))
}

func createLogger(level, format string) (*zap.Logger, error) {
	var config zap.Config
	if format == "development" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	config.InitialFields = map[string]any{
		"app": appName,
	}

	config.Level = parseLogLevel(level)

	return config.Build()
}

func parseLogLevel(lvl string) zap.AtomicLevel {
	if atom, err := zap.ParseAtomicLevel(lvl); err == nil {
		return atom
	}

	return zap.NewAtomicLevelAt(zap.InfoLevel)
}

package cmd

import (
	"github.com/lambda-feedback/shinydesk/app"
	"github.com/lambda-feedback/shinydesk/app/desktop"
	"github.com/lambda-feedback/shinydesk/config"
	"github.com/lambda-feedback/shinydesk/internal/platform"
	"github.com/lambda-feedback/shinydesk/util/conf"
	"github.com/urfave/cli/v2"
)

var (
	launchCmdDescription = `The launch command starts the application server and opens
	the application window once the server is ready. This is the
	default command.

	The command blocks until the application window is closed,
	the application server exits or the process is terminated.
	The application server is stopped in every case.`
	launchCmd = &cli.Command{
		Name:        "launch",
		Usage:       "Start the application server and open the application window.",
		Description: launchCmdDescription,
		Action:      launchAction,
	}
)

func launchAction(ctx *cli.Context) error {
	cfg, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return err
	}

	paths, err := platform.NewResolver(cfg.Platform).Resolve()
	if err != nil {
		return err
	}

	app, err := app.New(ctx)
	if err != nil {
		return err
	}

	return app.Run(ctx.Context, desktop.Module(desktop.NewConfig(cfg, paths)))
}

func init() {
	rootApp.Commands = append(rootApp.Commands, launchCmd)
}

package cmd

import (
	"fmt"

	"github.com/lambda-feedback/shinydesk/config"
	"github.com/lambda-feedback/shinydesk/internal/readiness"
	"github.com/lambda-feedback/shinydesk/util/conf"
	"github.com/lambda-feedback/shinydesk/util/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	probeCmdDescription = `The probe command polls the application server until it
	responds or the readiness timeout expires, the same way the
	launch command does before revealing the application window.

	The command does not start the application server.`
	probeCmd = &cli.Command{
		Name:        "probe",
		Usage:       "Wait for a running application server to respond.",
		Description: probeCmdDescription,
		Action:      probeAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "the url to probe. Defaults to the configured server address.",
			},
		},
	}
)

func probeAction(ctx *cli.Context) error {
	cfg, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return err
	}

	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return err
	}

	url := ctx.String("url")
	if url == "" {
		url = cfg.URL()
	}

	log.Info("probing application server", zap.String("url", url))

	if err := readiness.Probe(ctx.Context, url, cfg.Readiness); err != nil {
		return fmt.Errorf("%s: %w", url, err)
	}

	fmt.Fprintf(ctx.App.Writer, "%s is ready\n", url)

	return nil
}

func init() {
	rootApp.Commands = append(rootApp.Commands, probeCmd)
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/lambda-feedback/shinydesk/app/desktop"
	"github.com/lambda-feedback/shinydesk/config"
	"github.com/lambda-feedback/shinydesk/internal/platform"
	"github.com/lambda-feedback/shinydesk/util/conf"
	"github.com/urfave/cli/v2"
)

var (
	pathsCmdDescription = `The paths command resolves the interpreter and application
	entry file for the host platform and prints them together with
	the command line used to start the application server.

	Nothing is started.`
	pathsCmd = &cli.Command{
		Name:        "paths",
		Usage:       "Print the resolved interpreter, entry file and server command.",
		Description: pathsCmdDescription,
		Action:      pathsAction,
	}
)

func pathsAction(ctx *cli.Context) error {
	cfg, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return err
	}

	paths, err := platform.NewResolver(cfg.Platform).Resolve()
	if err != nil {
		return err
	}

	desktopConfig := desktop.NewConfig(cfg, paths)
	start := desktopConfig.Backend.Start

	w := ctx.App.Writer
	fmt.Fprintf(w, "app dir:      %s\n", paths.AppDir)
	fmt.Fprintf(w, "entry file:   %s\n", paths.EntryFile)
	fmt.Fprintf(w, "interpreter:  %s\n", paths.Interpreter)
	fmt.Fprintf(w, "url:          %s\n", desktopConfig.URL)
	fmt.Fprintf(w, "command:      %s %s\n", start.Cmd, formatArgs(start.Args))

	return nil
}

// formatArgs renders args for display, quoting arguments with spaces.
func formatArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		if strings.ContainsAny(arg, " \t\"") {
			arg = fmt.Sprintf("%q", arg)
		}
		quoted[i] = arg
	}
	return strings.Join(quoted, " ")
}

func init() {
	rootApp.Commands = append(rootApp.Commands, pathsCmd)
}

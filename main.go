package main

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lambda-feedback/shinydesk/cmd"
	"github.com/lambda-feedback/shinydesk/util"
)

var Version string
var Buildtime string
var Commit string

func main() {
	if options, ok := sentryOptions(); ok {
		if err := sentry.Init(options); err != nil {
			log.Fatalf("sentry init failed: %s", err)
		}

		// deliver errors captured with user notices before exit
		defer sentry.Flush(2 * time.Second)
	}

	appVersion := "local"
	if Version != "" {
		appVersion = Version
	}

	appBuildtime, _ := time.Parse(time.RFC3339, Buildtime)

	cmd.Execute(cmd.ExecuteParams{
		Version:  appVersion,
		Compiled: appBuildtime,
	})
}

// sentryOptions configures error reporting from the environment. Only
// captured errors are sent, the launcher records no traces.
func sentryOptions() (sentry.ClientOptions, bool) {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return sentry.ClientOptions{}, false
	}

	return sentry.ClientOptions{
		Dsn:              dsn,
		Debug:            util.Truthy(strings.ToLower(os.Getenv("SENTRY_DEBUG"))),
		Release:          Commit,
		AttachStacktrace: true,
	}, true
}

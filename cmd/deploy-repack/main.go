// Package main is the entry point for the deploy-repack CLI.
//
// This binary customizes the deployment descriptor of a resource adaptor
// deployable unit and writes a renamed copy of the archive. It delegates
// all functionality to the internal/cli package, which defines the cobra
// command.
//
// Build-time variables (version, commit, date) are injected via ldflags
// during the release process. During development, they default to "dev",
// "none", and "unknown" respectively.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/shinji-kodama/deploy-repack/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	// Ctrl-C cancels the run between archive entries; the workspace is
	// still cleaned up on the way out.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	code := cli.Run(ctx, cli.NewRootCommand())
	stop()
	os.Exit(int(code))
}

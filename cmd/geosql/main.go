// Command geosql compiles spatial expressions to engine-specific SQL.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/roach88/geosql/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Commands print their own errors; cobra prints usage errors.
	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}

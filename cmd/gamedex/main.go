// gamedex is the command-line client for a gamedex server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gamedex/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}

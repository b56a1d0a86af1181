package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/receiptvault/internal/client/cli"
	"github.com/dmitrijs2005/receiptvault/internal/client/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, args := config.LoadConfig(os.Args[1:])

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error initializing session database: %v\n", err)
		return cli.ExitError
	}
	defer app.Close()

	return app.Run(ctx, args)
}

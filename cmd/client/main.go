package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/buildinfo"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/cli"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/config"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.NewTextLogger(os.Stderr, slog.LevelWarn)

	app, cleanup, err := cli.Bootstrap(ctx, cfg, os.Stdin, os.Stdout, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}
	defer cleanup()

	app.Run(ctx)

}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/yigit/coursemarket/internal/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(defaultEnvironment()).RunContext(ctx, os.Args); err != nil {
		logger.Error().Err(err).Msg("Admin command failed")
		os.Exit(1)
	}
}

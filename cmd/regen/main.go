package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/regenlabs/regen/internal/command"
	"github.com/regenlabs/regen/internal/logginglevel"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = logginglevel.Level

	logger, err := loggerConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	zap.ReplaceGlobals(logger)

	// Set up a signal-interruptible context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Run the command
	if err := command.NewRootCommand().ExecuteContext(ctx); err != nil {
		logger.Sugar().Fatal(err)
	}
}

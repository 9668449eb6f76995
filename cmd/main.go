package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := runner.command()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

func (r *Runner) command() *cli.Command {
	return &cli.Command{
		Name:     "likebox",
		Usage:    "Sync liked music libraries across Spotify and Apple Music",
		Version:  "0.1.0",
		Flags:    r.flags(),
		Before:   r.Before,
		After:    r.After,
		Commands: r.register(),
	}
}

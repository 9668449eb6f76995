package main

import (
	"context"

	"github.com/jihwannnn/likebox-2024-test/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the RPC server until the context is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.services(); err != nil {
		return err
	}

	config := r.config.Server
	if port := cmd.Int("port"); port != 0 {
		config.Port = int(port)
	}

	verifier, err := server.NewVerifier(ctx, config)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Deps{
		Config:     config,
		Tokens:     r.tokens,
		Reconciler: r.recon,
		Library:    r.library,
		Verifier:   verifier,
		Logger:     r.logger,
	})
	if err != nil {
		return err
	}

	r.logger.Info("listening", "addr", config.Addr(), "auth", config.AuthMode)
	return srv.Run(ctx)
}

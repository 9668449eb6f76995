package main

import (
	"context"
	"fmt"

	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded config template to --config.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", configPath)
	return r.writePlain("✓ Config written to %s\n", configPath)
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "driver", r.config.Database.Driver, "dsn", r.config.Database.DSN)

	if _, err := r.openDatabase(); err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.DSN)
	return r.writePlain("✓ Database ready\n")
}

// SetupUser writes the default account documents for --uid. Existing documents are kept.
func (r *Runner) SetupUser(ctx context.Context, cmd *cli.Command) error {
	if err := r.services(); err != nil {
		return err
	}

	uid := cmd.String("uid")
	if err := r.library.CreateDefault(ctx, uid); err != nil {
		return fmt.Errorf("failed to create account for %s: %w", uid, err)
	}
	return r.writePlain("✓ Account ready for %s\n", uid)
}

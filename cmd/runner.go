package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/jihwannnn/likebox-2024-test/internal/library"
	"github.com/jihwannnn/likebox-2024-test/internal/repositories"
	"github.com/jihwannnn/likebox-2024-test/internal/services"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/jihwannnn/likebox-2024-test/internal/store"
	"github.com/jihwannnn/likebox-2024-test/internal/tasks"
	"github.com/jihwannnn/likebox-2024-test/internal/tokens"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database and platform adapters are opened on first use so commands that need neither,
// such as `auth token`, work without a configured backend.
type Runner struct {
	config   *shared.Config
	logger   *log.Logger
	output   io.Writer
	db       *sqlx.DB
	repos    *repositories.Repositories
	registry *services.Registry
	tokens   *tokens.Manager
	recon    *tasks.Reconciler
	library  *library.Facade
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Repos and Registry are normally built from the config; tests inject them directly.
type RunnerOpts struct {
	Config   *shared.Config
	Logger   *log.Logger
	Output   io.Writer
	Repos    *repositories.Repositories
	Registry *services.Registry
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:   opts.Config,
		logger:   opts.Logger,
		output:   opts.Output,
		repos:    opts.Repos,
		registry: opts.Registry,
	}
}

func (r *Runner) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Path to a .env file with LIKEBOX_* overrides",
			Value: ".env",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, authCommand, syncCommand, libraryCommand, exportCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads configuration. A missing config file falls back to the embedded defaults.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil {
		config, err := loadConfig(cmd.String("config"), r.logger)
		if err != nil {
			return ctx, err
		}
		if err := shared.LoadEnv(config, cmd.String("env-file")); err != nil {
			return ctx, err
		}
		if err := config.Validate(); err != nil {
			return ctx, err
		}
		r.config = config
	}

	shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.Log.Level))
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// After releases the database connection, if one was opened.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func loadConfig(path string, logger *log.Logger) (*shared.Config, error) {
	if _, err := os.Stat(path); err != nil {
		logger.Debug("config file not found, using defaults", "path", path)
		return shared.DefaultConfig(), nil
	}
	return shared.LoadConfig(path)
}

// openDatabase connects to the configured database and brings its schema up to date.
func (r *Runner) openDatabase() (*sqlx.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Driver, r.config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	return db, nil
}

// services builds the repositories, adapters and the components on top of them.
func (r *Runner) services() error {
	if r.recon != nil {
		return nil
	}

	if r.repos == nil {
		db, err := r.openDatabase()
		if err != nil {
			return err
		}
		r.repos = repositories.New(store.New(db, r.config.Sync.BatchSize, r.logger), r.config, r.logger)
	}

	if r.registry == nil {
		registry, err := services.NewRegistryFromConfig(r.config, r.logger)
		if err != nil {
			return err
		}
		r.registry = registry
	}

	r.tokens = tokens.NewManager(r.repos, r.registry, r.logger)
	r.recon = tasks.NewReconciler(r.repos, r.tokens, r.registry, r.logger)
	r.library = library.New(r.repos, r.logger)
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

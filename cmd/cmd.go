// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func uidFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "uid",
		Aliases:  []string{"u"},
		Usage:    "User id",
		Required: true,
	}
}

func platformFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "platform",
		Aliases:  []string{"p"},
		Usage:    "Platform: spotify or apple-music",
		Required: required,
	}
}

// setupCommand handles setup operations for the database and user accounts.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "user",
				Usage:  "Create the default account documents for a user",
				Flags:  []cli.Flag{uidFlag()},
				Action: r.SetupUser,
			},
		},
	}
}

// serveCommand starts the RPC server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the callable functions over HTTP",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "Override server.port",
			},
		},
		Action: r.Serve,
	}
}

// authCommand handles platform linking.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Link and unlink streaming platforms",
		Commands: []*cli.Command{
			{
				Name:  "url",
				Usage: "Print the authorization URL for a platform",
				Flags: []cli.Flag{
					platformFlag(true),
					&cli.StringFlag{
						Name:  "uid",
						Usage: "Bind the OAuth state to this user so the server callback can link it",
					},
					&cli.BoolFlag{
						Name:  "open",
						Usage: "Open the URL in the default browser",
					},
				},
				Action: r.AuthURL,
			},
			{
				Name:  "link",
				Usage: "Exchange an authorization code and store the token",
				Flags: []cli.Flag{
					uidFlag(),
					platformFlag(true),
					&cli.StringFlag{
						Name:     "code",
						Usage:    "Authorization code (Music User Token for Apple Music)",
						Required: true,
					},
				},
				Action: r.AuthLink,
			},
			{
				Name:   "verify",
				Usage:  "Check a stored token, refreshing it when expired",
				Flags:  []cli.Flag{uidFlag(), platformFlag(true)},
				Action: r.AuthVerify,
			},
			{
				Name:  "unlink",
				Usage: "Remove stored tokens",
				Flags: []cli.Flag{
					uidFlag(),
					platformFlag(false),
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Remove the tokens of every platform",
					},
				},
				Action: r.AuthUnlink,
			},
			{
				Name:  "token",
				Usage: "Issue a caller bearer token for the RPC server (hmac auth mode)",
				Flags: []cli.Flag{
					uidFlag(),
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime",
						Value: 24 * time.Hour,
					},
				},
				Action: r.AuthToken,
			},
		},
	}
}

// syncCommand reconciles a user's library with a platform.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync a user's library from a platform",
		Flags: []cli.Flag{
			uidFlag(),
			platformFlag(true),
			&cli.StringFlag{
				Name:    "kind",
				Aliases: []string{"k"},
				Usage:   "Content type: track, playlist, album or artist (default: all)",
			},
		},
		Action: r.Sync,
	}
}

// libraryCommand prints stored library content.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Show a user's stored library",
		Flags: []cli.Flag{
			uidFlag(),
			platformFlag(true),
			&cli.StringFlag{
				Name:    "kind",
				Aliases: []string{"k"},
				Usage:   "Content type: track, playlist, album or artist",
				Value:   "track",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Library,
	}
}

// exportCommand writes a snapshot of a user's library.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a user's library to files or object storage",
		Flags: []cli.Flag{
			uidFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: json, csv or markdown",
				Value:   "json",
			},
			&cli.StringSliceFlag{
				Name:    "platform",
				Aliases: []string{"p"},
				Usage:   "Platforms to include (default: all)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: export.dir)",
			},
			&cli.BoolFlag{
				Name:  "minio",
				Usage: "Upload to the configured MinIO bucket instead of a directory",
			},
		},
		Action: r.Export,
	}
}

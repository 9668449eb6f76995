package main

import (
	"context"
	"fmt"

	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/server"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/urfave/cli/v3"
)

// openBrowser is swapped out by tests.
var openBrowser = shared.OpenBrowser

// AuthURL prints the authorization URL for --platform and optionally opens it.
func (r *Runner) AuthURL(ctx context.Context, cmd *cli.Command) error {
	if err := r.services(); err != nil {
		return err
	}

	p, err := models.ParsePlatform(cmd.String("platform"))
	if err != nil {
		return err
	}

	state := shared.GenerateID()
	if uid := cmd.String("uid"); uid != "" {
		signer, err := server.NewStateSigner(r.config.Server.StateSecret, server.DefaultStateTTL)
		if err != nil {
			return err
		}
		if state, err = signer.Sign(uid, p); err != nil {
			return err
		}
	}

	url, err := r.tokens.AuthURL(p, state)
	if err != nil {
		return err
	}

	if cmd.Bool("open") {
		if err := openBrowser(url); err != nil {
			r.logger.Warn("could not open browser", "err", err)
		}
	}
	return r.writePlain("%s\n", url)
}

// AuthLink exchanges --code and stores the token for --uid.
func (r *Runner) AuthLink(ctx context.Context, cmd *cli.Command) error {
	if err := r.services(); err != nil {
		return err
	}

	p, err := models.ParsePlatform(cmd.String("platform"))
	if err != nil {
		return err
	}

	token, err := r.tokens.Link(ctx, cmd.String("uid"), p, cmd.String("code"))
	if err != nil {
		return err
	}

	r.writePlain("%s\n", styles.ok.Render(fmt.Sprintf("✓ %s linked", p)))
	if !token.ExpiresAt.IsZero() {
		r.writePlain("Access token expires %s\n", token.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// AuthVerify makes sure the stored token is usable, refreshing it when needed.
func (r *Runner) AuthVerify(ctx context.Context, cmd *cli.Command) error {
	if err := r.services(); err != nil {
		return err
	}

	p, err := models.ParsePlatform(cmd.String("platform"))
	if err != nil {
		return err
	}

	_, refreshed, err := r.tokens.EnsureFresh(ctx, cmd.String("uid"), p)
	if shared.KindOf(err) == shared.KindReauthRequired {
		r.writePlain("%s\n", styles.err.Render(fmt.Sprintf("✗ %s needs to be linked again", p)))
		r.writePlain("%s\n", styles.help.Render("Run 'likebox auth url --platform "+cmd.String("platform")+"' to start over."))
		return err
	}
	if err != nil {
		return err
	}

	if refreshed {
		return r.writePlain("%s\n", styles.ok.Render("✓ Access token refreshed"))
	}
	return r.writePlain("%s\n", styles.ok.Render("✓ Access token is valid"))
}

// AuthUnlink removes the token of --platform, or every token with --all.
func (r *Runner) AuthUnlink(ctx context.Context, cmd *cli.Command) error {
	uid := cmd.String("uid")
	all := cmd.Bool("all")
	platform := cmd.String("platform")

	if all == (platform != "") {
		return fmt.Errorf("%w: exactly one of --platform or --all is required", shared.ErrInvalidArgument)
	}
	if err := r.services(); err != nil {
		return err
	}

	if all {
		removed, err := r.tokens.UnlinkAll(ctx, uid)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Removed %d token(s)\n", len(removed))
	}

	p, err := models.ParsePlatform(platform)
	if err != nil {
		return err
	}
	if err := r.tokens.Unlink(ctx, uid, p); err != nil {
		return err
	}
	return r.writePlain("✓ %s unlinked\n", p)
}

// AuthToken prints an HS256 bearer token for calling the server as --uid.
func (r *Runner) AuthToken(ctx context.Context, cmd *cli.Command) error {
	token, err := server.IssueToken(r.config.Server.JWTSecret, cmd.String("uid"), cmd.Duration("ttl"))
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", token)
}

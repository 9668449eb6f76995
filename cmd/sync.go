package main

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/jihwannnn/likebox-2024-test/internal/formatter"
	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/jihwannnn/likebox-2024-test/internal/tasks"
	"github.com/urfave/cli/v3"
)

// watchProgress prints progress messages until the returned stop func is called.
func (r *Runner) watchProgress() (chan tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 32)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.logger.Debug(update.Message, "phase", update.Phase, "kind", update.Kind)
			r.writePlain("%s\n", update.Message)
		}
	}()

	return progress, func() {
		close(progress)
		wg.Wait()
	}
}

// Sync reconciles --kind (or every kind) of --platform into the user's library.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	p, err := models.ParsePlatform(cmd.String("platform"))
	if err != nil {
		return err
	}

	var kind models.ContentKind
	if k := cmd.String("kind"); k != "" {
		if kind, err = models.ParseContentKind(k); err != nil {
			return err
		}
	}

	if err := r.services(); err != nil {
		return err
	}

	uid := cmd.String("uid")
	progress, stop := r.watchProgress()

	var results []tasks.Result
	if kind.Valid() {
		var res *tasks.Result
		res, err = r.recon.Reconcile(ctx, uid, p, kind, progress)
		if res != nil {
			results = append(results, *res)
		}
	} else {
		results, err = r.recon.ReconcileAll(ctx, uid, p, progress)
	}
	stop()

	if len(results) > 0 {
		rows := make([][]string, 0, len(results))
		for _, res := range results {
			rows = append(rows, []string{
				res.Kind.String(),
				strconv.Itoa(res.Fetched),
				strconv.Itoa(res.Added),
				strconv.Itoa(res.Removed),
			})
		}
		r.writePlain("\n%s\n", summaryTable([]string{"Kind", "Fetched", "Added", "Removed"}, rows))
	}

	if shared.KindOf(err) == shared.KindReauthRequired {
		r.writePlain("%s\n", styles.warn.Render(fmt.Sprintf("%s rejected the stored token. Link it again with 'likebox auth url --platform %s'.", p, cmd.String("platform"))))
	}
	return err
}

// Library prints the stored content of --kind for --platform.
func (r *Runner) Library(ctx context.Context, cmd *cli.Command) error {
	p, err := models.ParsePlatform(cmd.String("platform"))
	if err != nil {
		return err
	}
	kind, err := models.ParseContentKind(cmd.String("kind"))
	if err != nil {
		return err
	}

	if err := r.services(); err != nil {
		return err
	}

	content, err := r.library.LikedContent(ctx, cmd.String("uid"), p, kind)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(content, true)
	}

	if !content.Found {
		return r.writePlain("%s\n", styles.help.Render("No library yet. Run 'likebox setup user' first."))
	}

	section := formatter.Section{
		Kind:      kind,
		Tracks:    content.Tracks,
		Playlists: content.Playlists,
		Albums:    content.Albums,
		Artists:   content.Artists,
	}
	return formatter.Render(r.output, formatter.FormatMarkdown, section)
}

// Export writes a snapshot of the user's library to a directory or the MinIO bucket.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	var platforms []models.Platform
	for _, s := range cmd.StringSlice("platform") {
		p, err := models.ParsePlatform(s)
		if err != nil {
			return err
		}
		platforms = append(platforms, p)
	}

	var sink tasks.Sink
	if cmd.Bool("minio") {
		minioSink, err := tasks.NewMinioSink(r.config.Export, nil)
		if err != nil {
			return err
		}
		if err := minioSink.EnsureBucket(ctx); err != nil {
			return err
		}
		sink = minioSink
	} else {
		dir := cmd.String("output")
		if dir == "" {
			dir = r.config.Export.Dir
		}
		sink = &tasks.DirSink{Dir: dir}
	}

	if err := r.services(); err != nil {
		return err
	}

	progress, stop := r.watchProgress()
	result, err := tasks.NewExporter(r.library, sink, r.logger).Export(ctx, cmd.String("uid"), tasks.ExportOpts{
		Format:    format,
		Platforms: platforms,
	}, progress)
	stop()
	if err != nil {
		return err
	}

	r.writePlainHeader("Export Summary")
	r.writePlain("Run:       %s\n", result.Manifest.RunID)
	r.writePlain("Manifest:  %s\n", result.ManifestLocation)
	r.writePlain("Succeeded: %d\n", result.Succeeded)
	if result.Failed > 0 {
		r.writePlain("%s\n", styles.err.Render(fmt.Sprintf("Failed:    %d", result.Failed)))
		return fmt.Errorf("%d of %d kinds failed to export", result.Failed, len(result.Manifest.Entries))
	}
	return nil
}

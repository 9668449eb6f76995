package tasks

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jihwannnn/likebox-2024-test/internal/formatter"
	"github.com/jihwannnn/likebox-2024-test/internal/library"
	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"
)

// Sink stores rendered export objects. Put returns where the object ended up.
type Sink interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// DirSink writes objects below a local directory.
type DirSink struct {
	Dir string
}

// Put writes data to Dir/name, creating parent directories.
func (s *DirSink) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	target := filepath.Join(s.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	return target, nil
}

// MinioSink uploads objects to an S3-compatible bucket.
type MinioSink struct {
	client *minio.Client
	bucket string
}

// NewMinioSink connects to the endpoint in cfg. transport may be nil.
func NewMinioSink(cfg shared.ExportConfig, transport http.RoundTripper) (*MinioSink, error) {
	if cfg.MinioEndpoint == "" || cfg.MinioBucket == "" {
		return nil, fmt.Errorf("%w: export.minio_endpoint and export.minio_bucket", shared.ErrMissingConfig)
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure:    cfg.MinioUseSSL,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioSink{client: client, bucket: cfg.MinioBucket}, nil
}

// EnsureBucket creates the bucket when it does not exist.
func (s *MinioSink) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put uploads data as bucket/name.
func (s *MinioSink) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return s.bucket + "/" + name, nil
}

// ContentLoader loads the stored library content for a set of platforms.
type ContentLoader interface {
	PlatformsContent(ctx context.Context, uid string, kind models.ContentKind, platforms []models.Platform) (*library.Content, error)
}

// ExportOpts contains configuration for library exports.
type ExportOpts struct {
	Format     formatter.Format     // Export format: json, csv, markdown
	Platforms  []models.Platform    // Platforms to include (default: all)
	Kinds      []models.ContentKind // Content kinds to export (default: all)
	RunID      string               // Object prefix below the uid (default: new uuid)
	NumWorkers int                  // Concurrent kinds (default: 2)
}

// ExportResult summarizes an export run.
type ExportResult struct {
	Manifest         formatter.Manifest
	ManifestLocation string
	Succeeded        int
	Failed           int
}

// Exporter renders a user's library and writes it through a [Sink].
type Exporter struct {
	loader ContentLoader
	sink   Sink
	logger *log.Logger
	now    func() time.Time
}

// NewExporter creates an Exporter.
func NewExporter(loader ContentLoader, sink Sink, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &Exporter{loader: loader, sink: sink, logger: shared.WithLogger(logger, "component", "export"), now: time.Now}
}

// Export writes one object per content kind to {uid}/{runID}/{kind}.{ext} and a manifest.json
// listing them. A kind that fails is recorded in the manifest and does not stop the others.
func (e *Exporter) Export(ctx context.Context, uid string, opts ExportOpts, progress chan<- ProgressUpdate) (*ExportResult, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid", shared.ErrMissingArgument)
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if len(opts.Platforms) == 0 {
		opts.Platforms = models.Platforms()
	}
	if len(opts.Kinds) == 0 {
		opts.Kinds = models.ContentKinds()
	}
	if opts.RunID == "" {
		opts.RunID = shared.GenerateID()
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 2
	}

	entries := make([]formatter.ManifestEntry, len(opts.Kinds))
	var (
		mu        sync.Mutex
		completed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.NumWorkers)
	for i, kind := range opts.Kinds {
		g.Go(func() error {
			entry := e.exportKind(gctx, uid, kind, opts)
			entries[i] = entry

			mu.Lock()
			completed++
			step := completed
			mu.Unlock()

			if entry.Error != "" {
				e.logger.Error("export failed", "uid", uid, "kind", kind, "err", entry.Error)
				sendProgress(progress, exportFailedUpdate(step, len(opts.Kinds), kind, fmt.Errorf("%s", entry.Error)))
			} else {
				sendProgress(progress, exportCompletedUpdate(step, len(opts.Kinds), kind, entry.Items))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &ExportResult{
		Manifest: formatter.Manifest{
			RunID:      opts.RunID,
			UID:        uid,
			Format:     opts.Format,
			ExportedAt: e.now().UTC(),
			Entries:    entries,
		},
	}
	for _, entry := range entries {
		if entry.Error != "" {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}

	var buf bytes.Buffer
	if err := formatter.WriteManifest(&buf, result.Manifest); err != nil {
		return result, err
	}
	location, err := e.sink.Put(ctx, path.Join(uid, opts.RunID, "manifest.json"), buf.Bytes(), formatter.FormatJSON.ContentType())
	if err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestLocation = location

	e.logger.Info("export finished", "uid", uid, "run", opts.RunID, "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

func (e *Exporter) exportKind(ctx context.Context, uid string, kind models.ContentKind, opts ExportOpts) formatter.ManifestEntry {
	entry := formatter.ManifestEntry{Kind: kind}

	content, err := e.loader.PlatformsContent(ctx, uid, kind, opts.Platforms)
	if err != nil {
		entry.Error = fmt.Sprintf("failed to load content: %v", err)
		return entry
	}

	section := formatter.Section{
		Kind:      kind,
		Tracks:    content.Tracks,
		Playlists: content.Playlists,
		Albums:    content.Albums,
		Artists:   content.Artists,
	}

	var buf bytes.Buffer
	if err := formatter.Render(&buf, opts.Format, section); err != nil {
		entry.Error = err.Error()
		return entry
	}

	name := path.Join(uid, opts.RunID, strings.ToLower(kind.Collection())+"."+opts.Format.Ext())
	location, err := e.sink.Put(ctx, name, buf.Bytes(), opts.Format.ContentType())
	if err != nil {
		entry.Error = err.Error()
		return entry
	}

	entry.Location = location
	entry.Items = section.Len()
	return entry
}

package tasks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/jihwannnn/likebox-2024-test/internal/formatter"
	"github.com/jihwannnn/likebox-2024-test/internal/library"
	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/services"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedLibrary reconciles a small Spotify library for u1.
func seedLibrary(t *testing.T) *fixture {
	t.Helper()
	f := setup(t)
	f.spotify.SetTracks(tracks(models.Spotify, "A", "B")...)
	pl := models.NewPlaylist("p1", models.Spotify)
	pl.Name = "mix"
	pl.TrackIDs = []string{"A"}
	f.spotify.Playlist = services.Playlists{Playlists: []models.Playlist{pl}}
	f.spotify.Artists = []models.Artist{models.NewArtist("ar1", models.Spotify)}

	_, err := f.recon.ReconcileAll(context.Background(), "u1", models.Spotify, nil)
	require.NoError(t, err)
	return f
}

type failingLoader struct {
	*library.Facade
	kind models.ContentKind
}

func (l failingLoader) PlatformsContent(ctx context.Context, uid string, kind models.ContentKind, platforms []models.Platform) (*library.Content, error) {
	if kind == l.kind {
		return nil, shared.ErrStoreWrite
	}
	return l.Facade.PlatformsContent(ctx, uid, kind, platforms)
}

func TestDirSink(t *testing.T) {
	dir := t.TempDir()
	sink := &DirSink{Dir: dir}

	location, err := sink.Put(context.Background(), "u1/run/tracks.json", []byte("[]"), "application/json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "u1", "run", "tracks.json"), location)

	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestExport(t *testing.T) {
	ctx := context.Background()

	t.Run("writes every kind and a manifest", func(t *testing.T) {
		f := seedLibrary(t)
		dir := t.TempDir()
		exporter := NewExporter(f.facade, &DirSink{Dir: dir}, nil)
		progress := make(chan ProgressUpdate, 8)

		res, err := exporter.Export(ctx, "u1", ExportOpts{Format: formatter.FormatCSV, RunID: "run1"}, progress)
		require.NoError(t, err)
		close(progress)

		assert.Equal(t, 4, res.Succeeded)
		assert.Zero(t, res.Failed)
		assert.Equal(t, filepath.Join(dir, "u1", "run1", "manifest.json"), res.ManifestLocation)

		data, err := os.ReadFile(filepath.Join(dir, "u1", "run1", "tracks.csv"))
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		assert.Len(t, lines, 3)

		var manifest formatter.Manifest
		raw, err := os.ReadFile(res.ManifestLocation)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &manifest))
		assert.Equal(t, "run1", manifest.RunID)
		require.Len(t, manifest.Entries, 4)
		assert.Equal(t, models.KindTrack, manifest.Entries[0].Kind)
		assert.Equal(t, 2, manifest.Entries[0].Items)
		assert.Equal(t, 1, manifest.Entries[1].Items)
		assert.Zero(t, manifest.Entries[2].Items)

		count := 0
		for u := range progress {
			assert.Equal(t, ExportKind, u.Phase)
			count++
		}
		assert.Equal(t, 4, count)
	})

	t.Run("a failing kind is recorded and the rest continue", func(t *testing.T) {
		f := seedLibrary(t)
		dir := t.TempDir()
		exporter := NewExporter(failingLoader{Facade: f.facade, kind: models.KindAlbum}, &DirSink{Dir: dir}, nil)

		res, err := exporter.Export(ctx, "u1", ExportOpts{RunID: "run2"}, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Succeeded)
		assert.Equal(t, 1, res.Failed)
		assert.Contains(t, res.Manifest.Entries[2].Error, "failed to load content")
		assert.NoFileExists(t, filepath.Join(dir, "u1", "run2", "albums.json"))
		assert.FileExists(t, filepath.Join(dir, "u1", "run2", "artists.json"))
	})

	t.Run("defaults to a generated run id", func(t *testing.T) {
		f := seedLibrary(t)
		exporter := NewExporter(f.facade, &DirSink{Dir: t.TempDir()}, nil)

		res, err := exporter.Export(ctx, "u1", ExportOpts{Kinds: []models.ContentKind{models.KindArtist}}, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, res.Manifest.RunID)
		assert.Equal(t, formatter.FormatJSON, res.Manifest.Format)
		assert.Len(t, res.Manifest.Entries, 1)
	})

	t.Run("requires uid", func(t *testing.T) {
		exporter := NewExporter(nil, &DirSink{Dir: t.TempDir()}, nil)
		_, err := exporter.Export(ctx, "", ExportOpts{}, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidArgument)
	})
}

// objectStore is an S3 endpoint that keeps uploaded objects in memory.
type objectStore struct {
	mu      sync.Mutex
	bucket  bool
	objects map[string]string
	deny    string
}

func (o *objectStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if r.URL.Query().Has("location") {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`)
		return
	}

	key := strings.Trim(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodHead && !strings.Contains(key, "/"):
		if !o.bucket {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && !strings.Contains(key, "/"):
		o.bucket = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		if o.deny != "" && strings.HasSuffix(key, o.deny) {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		o.objects[key] = string(body)
		w.Header().Set("ETag", `"0123456789abcdef"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newMinioSink(t *testing.T, o *objectStore) *MinioSink {
	t.Helper()
	srv := httptest.NewServer(o)
	t.Cleanup(srv.Close)

	sink, err := NewMinioSink(shared.ExportConfig{
		MinioEndpoint:  strings.TrimPrefix(srv.URL, "http://"),
		MinioAccessKey: "access",
		MinioSecretKey: "secret",
		MinioBucket:    "exports",
	}, nil)
	require.NoError(t, err)
	return sink
}

func TestMinioSink(t *testing.T) {
	ctx := context.Background()

	t.Run("requires endpoint and bucket", func(t *testing.T) {
		_, err := NewMinioSink(shared.ExportConfig{}, nil)
		assert.ErrorIs(t, err, shared.ErrMissingConfig)
	})

	t.Run("creates the bucket once", func(t *testing.T) {
		o := &objectStore{objects: map[string]string{}}
		sink := newMinioSink(t, o)

		require.NoError(t, sink.EnsureBucket(ctx))
		assert.True(t, o.bucket)
		require.NoError(t, sink.EnsureBucket(ctx))
	})

	t.Run("export uploads objects", func(t *testing.T) {
		f := seedLibrary(t)
		o := &objectStore{bucket: true, objects: map[string]string{}, deny: "albums.md"}
		exporter := NewExporter(f.facade, newMinioSink(t, o), nil)

		res, err := exporter.Export(ctx, "u1", ExportOpts{Format: formatter.FormatMarkdown, RunID: "r"}, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Succeeded)
		assert.Equal(t, 1, res.Failed)
		assert.Equal(t, "exports/u1/r/manifest.json", res.ManifestLocation)

		o.mu.Lock()
		defer o.mu.Unlock()
		assert.Contains(t, o.objects["exports/u1/r/tracks.md"], "# Liked Tracks (2)")
		assert.Contains(t, o.objects, "exports/u1/r/manifest.json")
		assert.NotContains(t, o.objects, "exports/u1/r/albums.md")
	})
}

package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jihwannnn/likebox-2024-test/internal/library"
	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/repositories"
	"github.com/jihwannnn/likebox-2024-test/internal/services"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/jihwannnn/likebox-2024-test/internal/store"
	tu "github.com/jihwannnn/likebox-2024-test/internal/testing"
	"github.com/jihwannnn/likebox-2024-test/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fixture struct {
	store    *store.Store
	repos    *repositories.Repositories
	tokens   *tokens.Manager
	spotify  *tu.MockAdapter
	apple    *tu.MockAdapter
	recon    *Reconciler
	facade   *library.Facade
	registry *services.Registry
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st := tu.NewStore(t, shared.MaxBatchSize)
	repos := repositories.New(st, shared.DefaultConfig(), nil)
	spotify := tu.NewMockAdapter(models.Spotify)
	apple := tu.NewMockAdapter(models.AppleMusic)
	registry := services.NewRegistry(spotify, apple)
	manager := tokens.NewManager(repos, registry, nil)
	facade := library.New(repos, nil)

	require.NoError(t, facade.CreateDefault(ctx, "u1"))
	for _, p := range models.Platforms() {
		require.NoError(t, manager.Save(ctx, models.Token{
			UID:          "u1",
			Platform:     p,
			AccessToken:  "access-" + p.String(),
			RefreshToken: "refresh-" + p.String(),
			ExpiresAt:    time.Now().Add(time.Hour),
		}))
	}

	return &fixture{
		store:    st,
		repos:    repos,
		tokens:   manager,
		spotify:  spotify,
		apple:    apple,
		recon:    NewReconciler(repos, manager, registry, nil),
		facade:   facade,
		registry: registry,
	}
}

func (f *fixture) index(t *testing.T) *models.UserLibraryIndex {
	t.Helper()
	idx, _, err := f.repos.Index.Get(context.Background(), "u1")
	require.NoError(t, err)
	return idx
}

func (f *fixture) rawIndex(t *testing.T) *store.Document {
	t.Helper()
	doc, err := f.store.Get(context.Background(), store.Path(repositories.CollectionUserContentData, "u1"))
	require.NoError(t, err)
	return doc
}

func track(isrc string, p models.Platform) models.Track {
	tr := models.NewTrack(isrc, "n-"+isrc, p)
	tr.Name = "song " + isrc
	return tr
}

func tracks(p models.Platform, isrcs ...string) []models.Track {
	out := make([]models.Track, 0, len(isrcs))
	for _, isrc := range isrcs {
		out = append(out, track(isrc, p))
	}
	return out
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("converges to the fetched set", func(t *testing.T) {
		f := setup(t)
		f.spotify.SetTracks(tracks(models.Spotify, "A", "B", "D")...)

		res, err := f.recon.Reconcile(ctx, "u1", models.Spotify, models.KindTrack, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Added)
		assert.Zero(t, res.Removed)

		f.spotify.SetTracks(tracks(models.Spotify, "A", "B", "C")...)
		res, err = f.recon.Reconcile(ctx, "u1", models.Spotify, models.KindTrack, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Added)
		assert.Equal(t, 1, res.Removed)
		assert.Equal(t, 3, res.Fetched)

		assert.Equal(t, []string{"A", "B", "C"}, f.index(t).ByPlatform(models.KindTrack, models.Spotify))
		assert.Nil(t, f.index(t).Ref(models.KindTrack, "D"))
	})

	t.Run("repeating an unchanged reconcile leaves the index untouched", func(t *testing.T) {
		f := setup(t)
		f.spotify.SetTracks(tracks(models.Spotify, "A", "B")...)

		_, err := f.recon.Reconcile(ctx, "u1", models.Spotify, models.KindTrack, nil)
		require.NoError(t, err)
		before := f.rawIndex(t)

		res, err := f.recon.Reconcile(ctx, "u1", models.Spotify, models.KindTrack, nil)
		require.NoError(t, err)
		assert.Zero(t, res.Added)
		assert.Zero(t, res.Removed)

		after := f.rawIndex(t)
		assert.Equal(t, before.Data, after.Data)
		assert.Equal(t, before.Version, after.Version)
	})

	t.Run("tracks are shared across platforms", func(t *testing.T) {
		f := setup(t)
		f.spotify.SetTracks(tracks(models.Spotify, "A", "B")...)
		f.apple.SetTracks(tracks(models.AppleMusic, "B", "C")...)

		_, err := f.recon.Reconcile(ctx, "u1", models.Spotify, models.KindTrack, nil)
		require.NoError(t, err)
		_, err = f.recon.Reconcile(ctx, "u1", models.AppleMusic, models.KindTrack, nil)
		require.NoError(t, err)

		idx := f.index(t)
		assert.Equal(t, 3, idx.Len(models.KindTrack))
		assert.Equal(t, []models.Platform{models.Spotify, models.AppleMusic}, idx.Ref(models.KindTrack, "B").Owners)

		// The first platform to report a track owns its stored metadata.
		stored, err := f.repos.Tracks.GetByID(ctx, "B")
		require.NoError(t, err)
		assert.Equal(t, models.Spotify, stored.Platform)

		f.apple.SetTracks()
		_, err = f.recon.Reconcile(ctx, "u1", models.AppleMusic, models.KindTrack, nil)
		require.NoError(t, err)

		idx = f.index(t)
		assert.Equal(t, []models.Platform{models.Spotify}, idx.Ref(models.KindTrack, "B").Owners)
		assert.Nil(t, idx.Ref(models.KindTrack, "C"))
	})

	t.Run("playlists are never merged across platforms", func(t *testing.T) {
		f := setup(t)
		sp := models.NewPlaylist("same", models.Spotify)
		sp.Name = "v1"
		am := models.NewPlaylist("same", models.AppleMusic)
		f.spotify.Playlist = services.Playlists{Playlists: []models.Playlist{sp}}
		f.apple.Playlist = services.Playlists{Playlists: []models.Playlist{am}}

		_, err := f.recon.Reconcile(ctx, "u1", models.Spotify, models.KindPlaylist, nil)
		require.NoError(t, err)
		_, err = f.recon.Reconcile(ctx, "u1", models.AppleMusic, models.KindPlaylist, nil)
		require.NoError(t, err)

		idx := f.index(t)
		assert.Equal(t, 2, idx.Len(models.KindPlaylist))
		assert.Equal(t, []string{"sameSPOTIFY"}, idx.ByPlatform(models.KindPlaylist, models.Spotify))
		assert.Equal(t, []string{"sameAPPLE_MUSIC"}, idx.ByPlatform(models.KindPlaylist, models.AppleMusic))

		sp.Name = "v2"
		f.spotify.Playlist = services.Playlists{Playlists: []models.Playlist{sp}}
		_, err = f.recon.Reconcile(ctx, "u1", models.Spotify, models.KindPlaylist, nil)
		require.NoError(t, err)

		stored, err := f.repos.Playlists.GetByID(ctx, "sameSPOTIFY")
		require.NoError(t, err)
		assert.Equal(t, "v2", stored.Name)
	})

	t.Run("tracks and albums keep their first stored version", func(t *testing.T) {
		f := setup(t)
		album := models.NewAlbum("UPC1", "al1", models.Spotify)
		album.Name = "first"
		f.spotify.Album = services.Albums{Albums: []models.Album{album}, Tracks: tracks(models.Spotify, "T1")}

		_, err := f.recon.Reconcile(ctx, "u1", models.Spotify, models.KindAlbum, nil)
		require.NoError(t, err)

		album.Name = "second"
		changed := track("T1", models.Spotify)
		changed.Name = "renamed"
		f.spotify.Album = services.Albums{Albums: []models.Album{album}, Tracks: []models.Track{changed}}
		_, err = f.recon.Reconcile(ctx, "u1", models.Spotify, models.KindAlbum, nil)
		require.NoError(t, err)

		storedAlbum, err := f.repos.Albums.GetByID(ctx, "UPC1")
		require.NoError(t, err)
		assert.Equal(t, "first", storedAlbum.Name)

		storedTrack, err := f.repos.Tracks.GetByID(ctx, "T1")
		require.NoError(t, err)
		assert.Equal(t, "song T1", storedTrack.Name)

		// Album tracks are stored but not liked.
		assert.Zero(t, f.index(t).Len(models.KindTrack))
	})

	t.Run("artists are replaced", func(t *testing.T) {
		f := setup(t)
		artist := models.NewArtist("ar1", models.AppleMusic)
		artist.Name = "old"
		f.apple.Artists = []models.Artist{artist}

		_, err := f.recon.Reconcile(ctx, "u1", models.AppleMusic, models.KindArtist, nil)
		require.NoError(t, err)

		artist.Name = "new"
		f.apple.Artists = []models.Artist{artist}
		_, err = f.recon.Reconcile(ctx, "u1", models.AppleMusic, models.KindArtist, nil)
		require.NoError(t, err)

		stored, err := f.repos.Artists.GetByID(ctx, "ar1APPLE_MUSIC")
		require.NoError(t, err)
		assert.Equal(t, "new", stored.Name)
	})

	t.Run("fetched ids are deduplicated", func(t *testing.T) {
		f := setup(t)
		f.spotify.Liked = services.LikedTracks{
			TrackIDs: []string{"A", "", "A", "B"},
			Tracks:   tracks(models.Spotify, "A", "B"),
		}

		res, err := f.recon.Reconcile(ctx, "u1", models.Spotify, models.KindTrack, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Added)
		assert.Equal(t, 2, res.Fetched)
	})

	t.Run("rejected refresh token writes nothing", func(t *testing.T) {
		f := setup(t)
		f.spotify.SetTracks(tracks(models.Spotify, "A")...)
		require.NoError(t, f.tokens.Save(ctx, models.Token{
			UID:          "u1",
			Platform:     models.Spotify,
			AccessToken:  "stale",
			RefreshToken: "revoked",
			ExpiresAt:    time.Now().Add(-time.Hour),
		}))
		before := f.rawIndex(t)

		_, err := f.recon.Reconcile(ctx, "u1", models.Spotify, models.KindTrack, nil)
		require.ErrorIs(t, err, shared.ErrReauthRequired)
		assert.Equal(t, shared.KindReauthRequired, shared.KindOf(err))

		assert.Zero(t, f.spotify.Calls("LikedTracks"))
		assert.Equal(t, before.Version, f.rawIndex(t).Version)
		_, err = f.repos.Tracks.GetByID(ctx, "A")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("expired token is refreshed before fetching", func(t *testing.T) {
		f := setup(t)
		f.spotify.SetTracks(tracks(models.Spotify, "A")...)
		f.spotify.RefreshFunc = func(string) (*oauth2.Token, bool, error) {
			return &oauth2.Token{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)}, true, nil
		}
		require.NoError(t, f.tokens.Save(ctx, models.Token{
			UID:          "u1",
			Platform:     models.Spotify,
			AccessToken:  "stale",
			RefreshToken: "r",
			ExpiresAt:    time.Now().Add(-time.Hour),
		}))

		_, err := f.recon.Reconcile(ctx, "u1", models.Spotify, models.KindTrack, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"fresh"}, f.spotify.AccessTokens())
	})

	t.Run("fetch failure leaves the index untouched", func(t *testing.T) {
		f := setup(t)
		f.spotify.SetTracks(tracks(models.Spotify, "A")...)
		_, err := f.recon.Reconcile(ctx, "u1", models.Spotify, models.KindTrack, nil)
		require.NoError(t, err)

		f.spotify.FetchErr = shared.ErrPlatformTransient
		_, err = f.recon.Reconcile(ctx, "u1", models.Spotify, models.KindTrack, nil)
		require.ErrorIs(t, err, shared.ErrPlatformTransient)
		assert.Equal(t, []string{"A"}, f.index(t).ByPlatform(models.KindTrack, models.Spotify))
	})

	t.Run("missing index", func(t *testing.T) {
		f := setup(t)
		_, err := f.recon.Reconcile(ctx, "nobody", models.Spotify, models.KindTrack, nil)
		assert.ErrorIs(t, err, shared.ErrIndexNotFound)
	})

	t.Run("unlinked platform", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.tokens.Delete(ctx, "u1", models.AppleMusic))

		_, err := f.recon.Reconcile(ctx, "u1", models.AppleMusic, models.KindTrack, nil)
		assert.ErrorIs(t, err, shared.ErrTokenNotFound)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		f := setup(t)

		_, err := f.recon.Reconcile(ctx, "", models.Spotify, models.KindTrack, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidArgument)
		_, err = f.recon.Reconcile(ctx, "u1", models.Platform(9), models.KindTrack, nil)
		assert.ErrorIs(t, err, shared.ErrUnknownPlatform)
		_, err = f.recon.Reconcile(ctx, "u1", models.Spotify, models.ContentKind(9), nil)
		assert.ErrorIs(t, err, shared.ErrUnknownKind)
	})

	t.Run("reports progress", func(t *testing.T) {
		f := setup(t)
		f.spotify.SetTracks(tracks(models.Spotify, "A")...)
		progress := make(chan ProgressUpdate, 16)

		_, err := f.recon.Reconcile(ctx, "u1", models.Spotify, models.KindTrack, progress)
		require.NoError(t, err)
		close(progress)

		var phases []Phase
		var last ProgressUpdate
		for u := range progress {
			phases = append(phases, u.Phase)
			last = u
		}
		assert.Equal(t, []Phase{LoadIndex, RefreshToken, FetchLibrary, StoreContent, WriteIndex, Reconciled}, phases)
		require.IsType(t, &Result{}, last.Data)
		assert.Equal(t, 1, last.Data.(*Result).Added)
	})
}

func TestReconcileConcurrentPlatforms(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.spotify.SetTracks(tracks(models.Spotify, "A", "B", "C")...)
	f.apple.SetTracks(tracks(models.AppleMusic, "C", "D")...)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, p := range models.Platforms() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.recon.Reconcile(ctx, "u1", p, models.KindTrack, nil)
		}()
	}
	wg.Wait()
	require.NoError(t, errors.Join(errs...))

	idx := f.index(t)
	assert.Equal(t, []string{"A", "B", "C"}, idx.ByPlatform(models.KindTrack, models.Spotify))
	assert.Equal(t, []string{"C", "D"}, idx.ByPlatform(models.KindTrack, models.AppleMusic))
}

func TestReconcileAll(t *testing.T) {
	ctx := context.Background()

	t.Run("reconciles every kind", func(t *testing.T) {
		f := setup(t)
		f.spotify.SetTracks(tracks(models.Spotify, "A")...)
		f.spotify.Playlist = services.Playlists{Playlists: []models.Playlist{models.NewPlaylist("p1", models.Spotify)}}
		f.spotify.Album = services.Albums{Albums: []models.Album{models.NewAlbum("UPC1", "al1", models.Spotify)}}
		f.spotify.Artists = []models.Artist{models.NewArtist("ar1", models.Spotify)}

		results, err := f.recon.ReconcileAll(ctx, "u1", models.Spotify, nil)
		require.NoError(t, err)
		require.Len(t, results, 4)
		for i, kind := range models.ContentKinds() {
			assert.Equal(t, kind, results[i].Kind)
			assert.Equal(t, 1, results[i].Added)
		}

		idx := f.index(t)
		for _, kind := range models.ContentKinds() {
			assert.Equal(t, 1, idx.Len(kind), kind.String())
		}
	})

	t.Run("returns the first failure", func(t *testing.T) {
		f := setup(t)
		f.apple.FetchErr = shared.ErrPlatformAuth

		results, err := f.recon.ReconcileAll(ctx, "u1", models.AppleMusic, nil)
		require.ErrorIs(t, err, shared.ErrPlatformAuth)
		assert.NotErrorIs(t, err, shared.ErrReauthRequired)
		assert.Equal(t, shared.KindPlatformAuth, shared.KindOf(err))
		assert.Empty(t, results)
	})
}

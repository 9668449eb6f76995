package library

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/repositories"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// hydrateLimit bounds concurrent track lookups when attaching tracks to playlists and albums.
const hydrateLimit = 8

// Content is the stored content for one kind. Only the slice matching Kind is populated.
//
// Found is false when the user has no library index yet.
type Content struct {
	Kind      models.ContentKind      `json:"kind"`
	Found     bool                    `json:"found"`
	IDs       []string                `json:"ids"`
	Tracks    []models.Track          `json:"tracks,omitempty"`
	Playlists []models.PlaylistDetail `json:"playlists,omitempty"`
	Albums    []models.AlbumDetail    `json:"albums,omitempty"`
	Artists   []models.Artist         `json:"artists,omitempty"`
}

// Len returns the number of loaded items.
func (c *Content) Len() int {
	return len(c.Tracks) + len(c.Playlists) + len(c.Albums) + len(c.Artists)
}

// Facade answers library queries and manages account defaults.
type Facade struct {
	repos  *repositories.Repositories
	logger *log.Logger
}

// New creates a Facade over repos.
func New(repos *repositories.Repositories, logger *log.Logger) *Facade {
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &Facade{repos: repos, logger: shared.WithLogger(logger, "component", "library")}
}

// CreateDefault writes the account info, settings and an empty library index for uid.
// Each document is only written when absent, so calling it again changes nothing.
func (f *Facade) CreateDefault(ctx context.Context, uid string) error {
	if uid == "" {
		return fmt.Errorf("%w: uid", shared.ErrMissingArgument)
	}

	created := map[string]bool{}
	var err error

	if created["info"], err = f.repos.Info.Create(ctx, uid, models.NewInfo(uid)); err != nil {
		return fmt.Errorf("failed to create account info: %w", err)
	}
	if created["settings"], err = f.repos.Settings.Create(ctx, uid, models.NewSetting(uid)); err != nil {
		return fmt.Errorf("failed to create settings: %w", err)
	}
	if created["index"], err = f.repos.Index.Create(ctx, uid); err != nil {
		return fmt.Errorf("failed to create library index: %w", err)
	}

	f.logger.Info("account defaults ensured", "uid", uid, "info", created["info"], "settings", created["settings"], "index", created["index"])
	return nil
}

// LikedContent loads the content of kind that p claims in uid's library.
func (f *Facade) LikedContent(ctx context.Context, uid string, p models.Platform, kind models.ContentKind) (*Content, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnknownPlatform, p)
	}
	return f.PlatformsContent(ctx, uid, kind, []models.Platform{p})
}

// PlatformsContent loads the union of the content of kind claimed by any of platforms, without duplicates.
func (f *Facade) PlatformsContent(ctx context.Context, uid string, kind models.ContentKind, platforms []models.Platform) (*Content, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid", shared.ErrMissingArgument)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnknownKind, kind)
	}
	if len(platforms) == 0 {
		return nil, fmt.Errorf("%w: platforms", shared.ErrMissingArgument)
	}
	for _, p := range platforms {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %v", shared.ErrUnknownPlatform, p)
		}
	}

	idx, _, err := f.repos.Index.Get(ctx, uid)
	if errors.Is(err, shared.ErrIndexNotFound) {
		return &Content{Kind: kind, IDs: []string{}}, nil
	}
	if err != nil {
		return nil, err
	}

	content, err := f.Content(ctx, kind, idx.ByPlatforms(kind, platforms...))
	if err != nil {
		return nil, err
	}
	content.Found = true
	return content, nil
}

// Content loads the stored content of kind for ids.
func (f *Facade) Content(ctx context.Context, kind models.ContentKind, ids []string) (*Content, error) {
	c := &Content{Kind: kind, IDs: ids}
	var err error

	switch kind {
	case models.KindTrack:
		c.Tracks, err = f.GetTracks(ctx, ids)
	case models.KindPlaylist:
		c.Playlists, err = f.GetPlaylists(ctx, ids)
	case models.KindAlbum:
		c.Albums, err = f.GetAlbums(ctx, ids)
	case models.KindArtist:
		c.Artists, err = f.GetArtists(ctx, ids)
	default:
		return nil, fmt.Errorf("%w: %v", shared.ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetTrack returns one track or [shared.ErrNotFound].
func (f *Facade) GetTrack(ctx context.Context, id string) (*models.Track, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	t, err := f.repos.Tracks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTracks returns the stored tracks among ids, in request order.
func (f *Facade) GetTracks(ctx context.Context, ids []string) ([]models.Track, error) {
	return f.repos.Tracks.GetByIDs(ctx, ids)
}

// GetPlaylist returns one playlist with its tracks or [shared.ErrNotFound].
func (f *Facade) GetPlaylist(ctx context.Context, id string) (*models.PlaylistDetail, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	p, err := f.repos.Playlists.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tracks, err := f.repos.Tracks.GetByIDs(ctx, p.TrackIDs)
	if err != nil {
		return nil, err
	}
	return &models.PlaylistDetail{Playlist: p, Tracks: tracks}, nil
}

// GetPlaylists returns the stored playlists among ids with their tracks attached.
func (f *Facade) GetPlaylists(ctx context.Context, ids []string) ([]models.PlaylistDetail, error) {
	playlists, err := f.repos.Playlists.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	details := make([]models.PlaylistDetail, len(playlists))
	err = f.hydrate(ctx, len(playlists), func(i int, tracks []models.Track) {
		details[i] = models.PlaylistDetail{Playlist: playlists[i], Tracks: tracks}
	}, func(i int) []string { return playlists[i].TrackIDs })
	if err != nil {
		return nil, err
	}
	return details, nil
}

// GetAlbum returns one album with its tracks or [shared.ErrNotFound].
func (f *Facade) GetAlbum(ctx context.Context, id string) (*models.AlbumDetail, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	a, err := f.repos.Albums.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tracks, err := f.repos.Tracks.GetByIDs(ctx, a.TrackIDs)
	if err != nil {
		return nil, err
	}
	return &models.AlbumDetail{Album: a, Tracks: tracks}, nil
}

// GetAlbums returns the stored albums among ids with their tracks attached.
func (f *Facade) GetAlbums(ctx context.Context, ids []string) ([]models.AlbumDetail, error) {
	albums, err := f.repos.Albums.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	details := make([]models.AlbumDetail, len(albums))
	err = f.hydrate(ctx, len(albums), func(i int, tracks []models.Track) {
		details[i] = models.AlbumDetail{Album: albums[i], Tracks: tracks}
	}, func(i int) []string { return albums[i].TrackIDs })
	if err != nil {
		return nil, err
	}
	return details, nil
}

// GetArtist returns one artist or [shared.ErrNotFound].
func (f *Facade) GetArtist(ctx context.Context, id string) (*models.Artist, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	a, err := f.repos.Artists.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetArtists returns the stored artists among ids.
func (f *Facade) GetArtists(ctx context.Context, ids []string) ([]models.Artist, error) {
	return f.repos.Artists.GetByIDs(ctx, ids)
}

// hydrate loads the tracks for n containers concurrently. trackIDs returns the ids of container i
// and set receives its stored tracks.
func (f *Facade) hydrate(ctx context.Context, n int, set func(i int, tracks []models.Track), trackIDs func(i int) []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateLimit)

	for i := range n {
		g.Go(func() error {
			tracks, err := f.repos.Tracks.GetByIDs(ctx, trackIDs(i))
			if err != nil {
				return err
			}
			set(i, tracks)
			return nil
		})
	}
	return g.Wait()
}

// Info returns the account info or [shared.ErrNotFound].
func (f *Facade) Info(ctx context.Context, uid string) (*models.Info, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid", shared.ErrMissingArgument)
	}
	return f.repos.Info.Get(ctx, uid)
}

// UpdateInfo replaces the connected platforms of uid.
func (f *Facade) UpdateInfo(ctx context.Context, uid string, connected []models.Platform) (*models.Info, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid", shared.ErrMissingArgument)
	}
	for _, p := range connected {
		if !p.Valid() {
			return nil, fmt.Errorf("%w: %v", shared.ErrUnknownPlatform, p)
		}
	}

	platforms := lo.Uniq(connected)
	slices.Sort(platforms)
	info := models.Info{UID: uid, ConnectedPlatforms: platforms}
	if info.ConnectedPlatforms == nil {
		info.ConnectedPlatforms = []models.Platform{}
	}

	if err := f.repos.Info.Save(ctx, uid, info); err != nil {
		return nil, fmt.Errorf("failed to save account info: %w", err)
	}
	return &info, nil
}

// Setting returns the client settings or [shared.ErrNotFound].
func (f *Facade) Setting(ctx context.Context, uid string) (*models.Setting, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid", shared.ErrMissingArgument)
	}
	return f.repos.Settings.Get(ctx, uid)
}

// UpdateSetting replaces the client settings of uid.
func (f *Facade) UpdateSetting(ctx context.Context, uid string, s models.Setting) (*models.Setting, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid", shared.ErrMissingArgument)
	}
	if s.Language == "" {
		return nil, fmt.Errorf("%w: language", shared.ErrMissingArgument)
	}

	s.UID = uid
	if err := f.repos.Settings.Save(ctx, uid, s); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	return &s, nil
}

package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"golang.org/x/oauth2"
)

// Adapter defines the operations every streaming platform integration provides.
//
// List operations paginate until exhaustion and either return the complete collection
// or fail. A partial library is never returned.
type Adapter interface {
	// Platform identifies the adapter.
	Platform() models.Platform

	// AuthURL returns the URL the user visits to grant access. state is echoed back on callback.
	AuthURL(state string) (string, error)

	// ExchangeCode trades an authorization code for a token owned by uid.
	// Failures wrap [shared.ErrAuthExchange].
	ExchangeCode(ctx context.Context, uid, code string) (*models.Token, error)

	// RefreshAccessToken obtains a new access token. ok is false when the refresh token itself
	// is invalid or revoked, which requires the user to link the platform again.
	// Transient failures are returned as errors instead.
	RefreshAccessToken(ctx context.Context, refreshToken string) (token *oauth2.Token, ok bool, err error)

	// LikedTracks returns every saved track. TrackIDs are ISRCs in library order.
	LikedTracks(ctx context.Context, accessToken string) (*LikedTracks, error)

	// Playlists returns every playlist with the tracks they reference.
	Playlists(ctx context.Context, accessToken string) (*Playlists, error)

	// Albums returns every saved album with the tracks they contain.
	Albums(ctx context.Context, accessToken string) (*Albums, error)

	// FollowedArtists returns every followed artist.
	FollowedArtists(ctx context.Context, accessToken string) ([]models.Artist, error)
}

// LikedTracks is the result of [Adapter.LikedTracks].
type LikedTracks struct {
	TrackIDs []string
	Tracks   []models.Track
}

// Playlists is the result of [Adapter.Playlists].
type Playlists struct {
	Playlists []models.Playlist
	Tracks    []models.Track
}

// Albums is the result of [Adapter.Albums].
type Albums struct {
	Albums []models.Album
	Tracks []models.Track
}

// Snapshot is one complete fetch of a single content kind, normalized across kinds.
type Snapshot struct {
	Kind      models.ContentKind
	IDs       []string // ids observed for Kind
	Tracks    []models.Track
	Playlists []models.Playlist
	Albums    []models.Album
	Artists   []models.Artist
}

// Fetch runs the adapter operation matching kind and normalizes the result.
func Fetch(ctx context.Context, a Adapter, kind models.ContentKind, accessToken string) (*Snapshot, error) {
	snap := &Snapshot{Kind: kind}

	switch kind {
	case models.KindTrack:
		res, err := a.LikedTracks(ctx, accessToken)
		if err != nil {
			return nil, err
		}
		snap.IDs, snap.Tracks = res.TrackIDs, res.Tracks
	case models.KindPlaylist:
		res, err := a.Playlists(ctx, accessToken)
		if err != nil {
			return nil, err
		}
		snap.IDs, snap.Playlists, snap.Tracks = models.IDs(res.Playlists), res.Playlists, res.Tracks
	case models.KindAlbum:
		res, err := a.Albums(ctx, accessToken)
		if err != nil {
			return nil, err
		}
		snap.IDs, snap.Albums, snap.Tracks = models.IDs(res.Albums), res.Albums, res.Tracks
	case models.KindArtist:
		res, err := a.FollowedArtists(ctx, accessToken)
		if err != nil {
			return nil, err
		}
		snap.IDs, snap.Artists = models.IDs(res), res
	default:
		return nil, fmt.Errorf("%w: %v", shared.ErrUnknownKind, kind)
	}

	return snap, nil
}

// Registry resolves the adapter for a platform.
type Registry struct {
	adapters map[models.Platform]Adapter
}

// NewRegistry creates a Registry holding adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

// NewRegistryFromConfig builds adapters for every platform whose credentials are configured.
func NewRegistryFromConfig(config *shared.Config, logger *log.Logger) (*Registry, error) {
	var adapters []Adapter
	opts := []Option{WithLogger(logger), WithRateLimit(config.Sync.RateLimit)}

	if config.Credentials.Spotify.Configured() {
		s, err := NewSpotifyService(config.Credentials.Spotify, opts...)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, s)
	}

	if config.Credentials.AppleMusic.Configured() {
		a, err := NewAppleMusicService(config.Credentials.AppleMusic, opts...)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	return NewRegistry(adapters...), nil
}

// For returns the adapter for p.
func (r *Registry) For(p models.Platform) (Adapter, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnknownPlatform, p)
	}
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not configured", shared.ErrMissingCredentials, p)
	}
	return a, nil
}

// Platforms lists the configured platforms in enum order.
func (r *Registry) Platforms() []models.Platform {
	ps := make([]models.Platform, 0, len(r.adapters))
	for p := range r.adapters {
		ps = append(ps, p)
	}
	slices.Sort(ps)
	return ps
}

// Spotify API implementation of [Adapter]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/samber/lo"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	spotifyPageLimit = 50
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
	UPC  string `json:"upc"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track. Simplified tracks (album listings) carry no external ids.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	ExternalIDs externalIDs     `json:"external_ids"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Genres       []string       `json:"genres"`
	Images       []SpotifyImage `json:"images"`
	Followers    followers      `json:"followers"`
	Popularity   int            `json:"popularity"`
	ExternalURLs externalURLs   `json:"external_urls"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	ExternalIDs externalIDs     `json:"external_ids"`
}

// Owner is the user that owns a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       Owner          `json:"owner"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifySavedTrack represents a track saved in the user's library or placed in a playlist.
// Track is nil for removed or local items.
type SpotifySavedTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifySavedAlbum represents an album saved in the user's library.
type SpotifySavedAlbum struct {
	AddedAt string       `json:"added_at"`
	Album   SpotifyAlbum `json:"album"`
}

// SpotifyPage is Spotify's offset paging envelope.
type SpotifyPage[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

type spotifyCursorPage struct {
	Artists struct {
		Items   []SpotifyArtist `json:"items"`
		Next    *string         `json:"next"`
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
	} `json:"artists"`
}

// SpotifyService implements [Adapter] for the Spotify Web API.
// Uses [oauth2] for the authorization code grant and refresh.
type SpotifyService struct {
	config     *oauth2.Config
	api        *apiClient
	httpClient *http.Client
	logger     *log.Logger
}

// NewSpotifyService creates a new Spotify adapter with the given OAuth2 credentials.
func NewSpotifyService(credentials shared.SpotifyConfig, opts ...Option) (*SpotifyService, error) {
	if credentials.ClientID == "" {
		return nil, fmt.Errorf("%w: spotify client_id", shared.ErrMissingCredentials)
	}
	if credentials.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_secret", shared.ErrMissingCredentials)
	}

	o := buildOptions(opts)
	if o.baseURL == "" {
		o.baseURL = spotifyBaseURL
	}
	if o.authURL == "" {
		o.authURL = spotifyAuthURL
	}
	if o.tokenURL == "" {
		o.tokenURL = spotifyTokenURL
	}

	config := &oauth2.Config{
		ClientID:     credentials.ClientID,
		ClientSecret: credentials.ClientSecret,
		RedirectURL:  credentials.RedirectURI,
		Scopes: []string{
			"user-library-read",
			"playlist-read-private",
			"playlist-read-collaborative",
			"user-follow-read",
			"user-read-private",
			"user-read-email",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:   o.authURL,
			TokenURL:  o.tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	return &SpotifyService{
		config:     config,
		api:        newAPIClient(models.Spotify, o.baseURL, o),
		httpClient: o.httpClient,
		logger:     shared.WithLogger(o.logger, "component", "spotify"),
	}, nil
}

// Platform returns [models.Spotify].
func (s *SpotifyService) Platform() models.Platform {
	return models.Spotify
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) (string, error) {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// ExchangeCode trades an authorization code for an access and refresh token pair.
func (s *SpotifyService) ExchangeCode(ctx context.Context, uid, code string) (*models.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	s.logger.Info("exchanging authorization code", "uid", uid)
	tok, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: spotify: %v", shared.ErrAuthExchange, err)
	}

	return &models.Token{
		UID:          uid,
		Platform:     models.Spotify,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}, nil
}

// RefreshAccessToken uses the refresh grant. An invalid_grant answer means the refresh token is dead.
func (s *SpotifyService) RefreshAccessToken(ctx context.Context, refreshToken string) (*oauth2.Token, bool, error) {
	if refreshToken == "" {
		return nil, false, nil
	}

	tok, err := s.config.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && refreshTokenRejected(re) {
			s.logger.Info("refresh token is invalid or has been revoked", "code", re.ErrorCode)
			return nil, false, nil
		}
		if errors.As(err, &re) && re.Response != nil {
			return nil, false, classifyStatus(models.Spotify, "refresh", &APIResponse{
				StatusCode: re.Response.StatusCode,
				Headers:    re.Response.Header,
				Body:       re.Body,
			})
		}
		return nil, false, networkError(models.Spotify, "refresh", err)
	}

	return tok, true, nil
}

func refreshTokenRejected(re *oauth2.RetrieveError) bool {
	switch re.ErrorCode {
	case "invalid_grant", "invalid_client":
		return true
	}
	return false
}

// spotifyPages walks an offset-paged endpoint until next is null.
func spotifyPages[T any](ctx context.Context, s *SpotifyService, op, endpoint, accessToken string) ([]T, error) {
	var all []T
	offset := 0

	for {
		query := url.Values{
			"limit":  []string{strconv.Itoa(spotifyPageLimit)},
			"offset": []string{strconv.Itoa(offset)},
		}

		var page SpotifyPage[T]
		if err := s.api.GetJSON(ctx, op, endpoint, query, bearer(accessToken), &page); err != nil {
			return nil, err
		}
		all = append(all, page.Items...)

		if page.Next == nil {
			return all, nil
		}
		offset += spotifyPageLimit
	}
}

// LikedTracks retrieves every saved track.
func (s *SpotifyService) LikedTracks(ctx context.Context, accessToken string) (*LikedTracks, error) {
	s.logger.Debug("fetching liked tracks")

	items, err := spotifyPages[SpotifySavedTrack](ctx, s, "liked tracks", "/me/tracks", accessToken)
	if err != nil {
		return nil, err
	}

	tracks := convertSavedTracks(items)
	return &LikedTracks{TrackIDs: models.IDs(tracks), Tracks: tracks}, nil
}

// Playlists retrieves every playlist and the tracks each one holds.
func (s *SpotifyService) Playlists(ctx context.Context, accessToken string) (*Playlists, error) {
	s.logger.Debug("fetching playlists")

	simple, err := spotifyPages[SpotifySimplePlaylist](ctx, s, "playlists", "/me/playlists", accessToken)
	if err != nil {
		return nil, err
	}

	result := &Playlists{Playlists: make([]models.Playlist, 0, len(simple))}
	for _, sp := range simple {
		items, err := spotifyPages[SpotifySavedTrack](ctx, s, "playlist tracks", "/playlists/"+url.PathEscape(sp.ID)+"/tracks", accessToken)
		if err != nil {
			return nil, err
		}
		tracks := convertSavedTracks(items)

		pl := models.NewPlaylist(sp.ID, models.Spotify)
		pl.Name = sp.Name
		pl.Description = sp.Description
		pl.CoverImageURL = firstImage(sp.Images)
		pl.Owner = sp.Owner.ID
		pl.TrackIDs = models.IDs(tracks)
		pl.TrackCount = len(tracks)

		result.Playlists = append(result.Playlists, pl)
		result.Tracks = append(result.Tracks, tracks...)
	}

	result.Tracks = models.DedupeByID(result.Tracks)
	return result, nil
}

// Albums retrieves every saved album. Albums without a UPC are skipped.
func (s *SpotifyService) Albums(ctx context.Context, accessToken string) (*Albums, error) {
	s.logger.Debug("fetching albums")

	saved, err := spotifyPages[SpotifySavedAlbum](ctx, s, "albums", "/me/albums", accessToken)
	if err != nil {
		return nil, err
	}

	result := &Albums{Albums: make([]models.Album, 0, len(saved))}
	for _, item := range saved {
		sa := item.Album
		if sa.ExternalIDs.UPC == "" {
			continue
		}

		tracks, err := s.albumTracks(ctx, sa, accessToken)
		if err != nil {
			return nil, err
		}

		album := models.NewAlbum(sa.ExternalIDs.UPC, sa.ID, models.Spotify)
		album.Name = sa.Name
		album.CoverImageURL = firstImage(sa.Images)
		album.Artists = artistNames(sa.Artists)
		album.TrackIDs = models.IDs(tracks)
		album.ReleasedDate = shared.ConvertDateToInt(sa.ReleaseDate)
		album.TrackCount = sa.TotalTracks

		result.Albums = append(result.Albums, album)
		result.Tracks = append(result.Tracks, tracks...)
	}

	result.Tracks = models.DedupeByID(result.Tracks)
	return result, nil
}

// albumTracks lists an album's tracks and resolves their ISRCs, which album listings omit.
func (s *SpotifyService) albumTracks(ctx context.Context, album SpotifyAlbum, accessToken string) ([]models.Track, error) {
	simple, err := spotifyPages[SpotifyTrack](ctx, s, "album tracks", "/albums/"+url.PathEscape(album.ID)+"/tracks", accessToken)
	if err != nil {
		return nil, err
	}

	ids := lo.FilterMap(simple, func(t SpotifyTrack, _ int) (string, bool) { return t.ID, t.ID != "" })
	full, err := s.SeveralTracks(ctx, ids, accessToken)
	if err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(full))
	for _, st := range full {
		if st.Album.ID == "" {
			st.Album = album
		}
		if t, ok := convertTrack(st); ok {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

// SeveralTracks retrieves full track objects for ids, 50 per request.
func (s *SpotifyService) SeveralTracks(ctx context.Context, ids []string, accessToken string) ([]SpotifyTrack, error) {
	var all []SpotifyTrack
	for _, chunk := range lo.Chunk(ids, spotifyPageLimit) {
		var response struct {
			Tracks []*SpotifyTrack `json:"tracks"`
		}
		query := url.Values{"ids": []string{strings.Join(chunk, ",")}}
		if err := s.api.GetJSON(ctx, "several tracks", "/tracks", query, bearer(accessToken), &response); err != nil {
			return nil, err
		}
		for _, t := range response.Tracks {
			if t != nil {
				all = append(all, *t)
			}
		}
	}
	return all, nil
}

// FollowedArtists retrieves every followed artist using cursor paging.
func (s *SpotifyService) FollowedArtists(ctx context.Context, accessToken string) ([]models.Artist, error) {
	s.logger.Debug("fetching followed artists")

	var artists []models.Artist
	after := ""

	for {
		query := url.Values{
			"type":  []string{"artist"},
			"limit": []string{strconv.Itoa(spotifyPageLimit)},
		}
		if after != "" {
			query.Set("after", after)
		}

		var page spotifyCursorPage
		if err := s.api.GetJSON(ctx, "followed artists", "/me/following", query, bearer(accessToken), &page); err != nil {
			return nil, err
		}

		for _, sa := range page.Artists.Items {
			artists = append(artists, convertArtist(sa))
		}

		if page.Artists.Next == nil || page.Artists.Cursors.After == "" {
			return models.DedupeByID(artists), nil
		}
		after = page.Artists.Cursors.After
	}
}

func convertSavedTracks(items []SpotifySavedTrack) []models.Track {
	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		if item.Track == nil {
			continue
		}
		if t, ok := convertTrack(*item.Track); ok {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

// convertTrack maps a Spotify track onto [models.Track]. Tracks without an ISRC are dropped.
func convertTrack(st SpotifyTrack) (models.Track, bool) {
	if st.ExternalIDs.ISRC == "" {
		return models.Track{}, false
	}

	t := models.NewTrack(st.ExternalIDs.ISRC, st.ID, models.Spotify)
	t.Name = st.Name
	t.AlbumArtURL = firstImage(st.Album.Images)
	t.Artists = artistNames(st.Artists)
	t.AlbumName = st.Album.Name
	t.DurationMs = st.DurationMS
	return t, true
}

func convertArtist(sa SpotifyArtist) models.Artist {
	a := models.NewArtist(sa.ID, models.Spotify)
	a.Name = sa.Name
	a.ThumbnailURL = firstImage(sa.Images)
	a.Genres = lo.Ternary(sa.Genres == nil, []string{}, sa.Genres)
	a.FollowerCount = sa.Followers.Total
	a.ExternalURL = sa.ExternalURLs.Spotify
	a.Popularity = sa.Popularity
	return a
}

func artistNames(artists []SpotifyArtist) []string {
	return lo.Map(artists, func(a SpotifyArtist, _ int) string { return a.Name })
}

func firstImage(images []SpotifyImage) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

// Apple Music API implementation of [Adapter]
//
// Responses are read with gjson; library resources carry deeply optional attributes.
// See https://developer.apple.com/documentation/applemusicapi
package services

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const (
	appleMusicBaseURL      = "https://api.music.apple.com/v1"
	appleMusicAuthorizeURL = "https://authorize.music.apple.com/woa"

	appleMusicPageLimit = 100
	artworkSize         = "640x640"

	// DeveloperTokenTTL is the lifetime of a signed developer token.
	DeveloperTokenTTL = 180 * 24 * time.Hour
	// UserTokenTTL is the assumed lifetime of a Music User Token, which carries no expiry of its own.
	UserTokenTTL = 180 * 24 * time.Hour

	developerTokenRenewBefore = 24 * time.Hour
)

// AppleMusicService implements [Adapter] for the Apple Music API.
//
// Requests are signed with a developer token (ES256 JWT) and scoped to a user by the
// Music User Token the client obtains through MusicKit. User tokens cannot be refreshed.
type AppleMusicService struct {
	teamID string
	keyID  string
	key    *ecdsa.PrivateKey
	api    *apiClient
	logger *log.Logger
	now    func() time.Time

	mu        sync.Mutex
	devToken  string
	devExpiry time.Time
}

// NewAppleMusicService creates a new Apple Music adapter from MusicKit signing credentials.
func NewAppleMusicService(credentials shared.AppleMusicConfig, opts ...Option) (*AppleMusicService, error) {
	if credentials.TeamID == "" || credentials.KeyID == "" {
		return nil, fmt.Errorf("%w: apple music team_id and key_id", shared.ErrMissingCredentials)
	}

	pemBytes, err := credentials.KeyPEM()
	if err != nil {
		return nil, err
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: apple music private key: %v", shared.ErrInvalidConfig, err)
	}

	o := buildOptions(opts)
	if o.baseURL == "" {
		o.baseURL = appleMusicBaseURL
	}

	return &AppleMusicService{
		teamID: credentials.TeamID,
		keyID:  credentials.KeyID,
		key:    key,
		api:    newAPIClient(models.AppleMusic, o.baseURL, o),
		logger: shared.WithLogger(o.logger, "component", "applemusic"),
		now:    time.Now,
	}, nil
}

// Platform returns [models.AppleMusic].
func (a *AppleMusicService) Platform() models.Platform {
	return models.AppleMusic
}

// DeveloperToken returns a signed developer token, reusing the cached one until a day before it expires.
func (a *AppleMusicService) DeveloperToken() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if a.devToken != "" && now.Before(a.devExpiry.Add(-developerTokenRenewBefore)) {
		return a.devToken, nil
	}

	expiry := now.Add(DeveloperTokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.RegisteredClaims{
		Issuer:    a.teamID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiry),
	})
	token.Header["kid"] = a.keyID

	signed, err := token.SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign developer token: %w", err)
	}

	a.devToken, a.devExpiry = signed, expiry
	return signed, nil
}

// AuthURL returns the MusicKit authorize URL. The developer token it carries lets the
// client complete the flow and obtain a Music User Token.
func (a *AppleMusicService) AuthURL(state string) (string, error) {
	devToken, err := a.DeveloperToken()
	if err != nil {
		return "", err
	}

	q := url.Values{"developer_token": []string{devToken}}
	if state != "" {
		q.Set("state", state)
	}
	return appleMusicAuthorizeURL + "?" + q.Encode(), nil
}

// ExchangeCode stores the Music User Token obtained client-side. The token is checked
// against the storefront endpoint before it is accepted.
func (a *AppleMusicService) ExchangeCode(ctx context.Context, uid, code string) (*models.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: music user token", shared.ErrMissingArgument)
	}

	headers, err := a.headers(code)
	if err != nil {
		return nil, err
	}
	if _, err := a.api.Get(ctx, "storefront", "/me/storefront", nil, headers); err != nil {
		return nil, fmt.Errorf("%w: apple music: %v", shared.ErrAuthExchange, err)
	}

	return &models.Token{
		UID:         uid,
		Platform:    models.AppleMusic,
		AccessToken: code,
		ExpiresAt:   a.now().Add(UserTokenTTL),
	}, nil
}

// RefreshAccessToken always reports an invalid refresh token: Music User Tokens have no refresh grant.
func (a *AppleMusicService) RefreshAccessToken(context.Context, string) (*oauth2.Token, bool, error) {
	a.logger.Info("music user token cannot be refreshed")
	return nil, false, nil
}

func (a *AppleMusicService) headers(userToken string) (http.Header, error) {
	devToken, err := a.DeveloperToken()
	if err != nil {
		return nil, err
	}
	h := bearer(devToken)
	h.Set("Music-User-Token", userToken)
	return h, nil
}

// collect reads meta.total with a one-item request, then pages through every resource at path.
func (a *AppleMusicService) collect(ctx context.Context, op, path, userToken string, fn func(gjson.Result) error) error {
	headers, err := a.headers(userToken)
	if err != nil {
		return err
	}

	first, err := a.api.Get(ctx, op, path, url.Values{"limit": []string{"1"}}, headers)
	if err != nil {
		return err
	}
	total := int(gjson.GetBytes(first.Body, "meta.total").Int())

	for offset := 0; offset < total; offset += appleMusicPageLimit {
		query := url.Values{
			"limit":  []string{strconv.Itoa(appleMusicPageLimit)},
			"offset": []string{strconv.Itoa(offset)},
		}
		resp, err := a.api.Get(ctx, op, path, query, headers)
		if err != nil {
			return err
		}

		for _, item := range gjson.GetBytes(resp.Body, "data").Array() {
			if err := fn(item); err != nil {
				return err
			}
		}
	}

	return nil
}

// includedTracks returns every track of a library playlist or album. The include response carries
// the first page of the tracks relationship; later pages are followed through its next link.
func (a *AppleMusicService) includedTracks(ctx context.Context, resource, id, userToken string) ([]models.Track, error) {
	headers, err := a.headers(userToken)
	if err != nil {
		return nil, err
	}

	op := resource + " tracks"
	query := url.Values{"include": []string{"tracks"}, "limit": []string{strconv.Itoa(appleMusicPageLimit)}}
	resp, err := a.api.Get(ctx, op, "/me/library/"+resource+"/"+url.PathEscape(id), query, headers)
	if err != nil {
		return nil, err
	}

	rel := gjson.GetBytes(resp.Body, "data.0.relationships.tracks")
	tracks := convertAppleTracks(rel.Get("data").Array())
	next := rel.Get("next").String()

	seen := map[string]bool{}
	for next != "" {
		if seen[next] {
			return nil, &PlatformError{Platform: models.AppleMusic, Kind: Invalid, Op: op, Err: fmt.Errorf("next link repeats: %s", next)}
		}
		seen[next] = true

		path, query, err := relativePage(next)
		if err != nil {
			return nil, &PlatformError{Platform: models.AppleMusic, Kind: Invalid, Op: op, Err: err}
		}
		page, err := a.api.Get(ctx, op, path, query, headers)
		if err != nil {
			return nil, err
		}

		tracks = append(tracks, convertAppleTracks(gjson.GetBytes(page.Body, "data").Array())...)
		next = gjson.GetBytes(page.Body, "next").String()
	}

	return tracks, nil
}

// relativePage splits an API next link such as "/v1/me/library/playlists/p.1/tracks?offset=100"
// into a path below the versioned base URL and its query.
func relativePage(next string) (string, url.Values, error) {
	u, err := url.Parse(next)
	if err != nil {
		return "", nil, fmt.Errorf("invalid next link %q: %w", next, err)
	}
	path := strings.TrimPrefix(u.Path, "/v1")
	if !strings.HasPrefix(path, "/") {
		return "", nil, fmt.Errorf("invalid next link %q", next)
	}
	query := u.Query()
	if query.Get("limit") == "" {
		query.Set("limit", strconv.Itoa(appleMusicPageLimit))
	}
	return path, query, nil
}

// LikedTracks retrieves every song in the user's library.
func (a *AppleMusicService) LikedTracks(ctx context.Context, userToken string) (*LikedTracks, error) {
	a.logger.Debug("fetching library songs")

	var tracks []models.Track
	err := a.collect(ctx, "library songs", "/me/library/songs", userToken, func(item gjson.Result) error {
		if t, ok := convertAppleTrack(item); ok {
			tracks = append(tracks, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &LikedTracks{TrackIDs: models.IDs(tracks), Tracks: tracks}, nil
}

// Playlists retrieves every library playlist with its tracks.
func (a *AppleMusicService) Playlists(ctx context.Context, userToken string) (*Playlists, error) {
	a.logger.Debug("fetching library playlists")

	result := &Playlists{}
	err := a.collect(ctx, "library playlists", "/me/library/playlists", userToken, func(item gjson.Result) error {
		tracks, err := a.includedTracks(ctx, "playlists", item.Get("id").String(), userToken)
		if err != nil {
			return err
		}

		attrs := item.Get("attributes")
		pl := models.NewPlaylist(item.Get("id").String(), models.AppleMusic)
		pl.Name = attrs.Get("name").String()
		pl.Description = attrs.Get("description.standard").String()
		pl.CoverImageURL = artworkURL(attrs)
		pl.Owner = attrs.Get("curatorName").String()
		pl.TrackIDs = models.IDs(tracks)
		pl.TrackCount = len(tracks)

		result.Playlists = append(result.Playlists, pl)
		result.Tracks = append(result.Tracks, tracks...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Tracks = models.DedupeByID(result.Tracks)
	return result, nil
}

// Albums retrieves every library album that has a UPC, with its tracks.
func (a *AppleMusicService) Albums(ctx context.Context, userToken string) (*Albums, error) {
	a.logger.Debug("fetching library albums")

	result := &Albums{}
	err := a.collect(ctx, "library albums", "/me/library/albums", userToken, func(item gjson.Result) error {
		attrs := item.Get("attributes")
		upc := attrs.Get("upc").String()
		if upc == "" {
			return nil
		}

		tracks, err := a.includedTracks(ctx, "albums", item.Get("id").String(), userToken)
		if err != nil {
			return err
		}

		album := models.NewAlbum(upc, item.Get("id").String(), models.AppleMusic)
		album.Name = attrs.Get("name").String()
		album.CoverImageURL = artworkURL(attrs)
		album.Artists = artistNameList(attrs.Get("artistName"))
		album.TrackIDs = models.IDs(tracks)
		album.ReleasedDate = shared.ConvertDateToInt(attrs.Get("releaseDate").String())
		album.TrackCount = len(tracks)

		result.Albums = append(result.Albums, album)
		result.Tracks = append(result.Tracks, tracks...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Tracks = models.DedupeByID(result.Tracks)
	return result, nil
}

// FollowedArtists retrieves the artists in the user's library.
func (a *AppleMusicService) FollowedArtists(ctx context.Context, userToken string) ([]models.Artist, error) {
	a.logger.Debug("fetching library artists")

	var artists []models.Artist
	err := a.collect(ctx, "library artists", "/me/library/artists", userToken, func(item gjson.Result) error {
		attrs := item.Get("attributes")
		artist := models.NewArtist(item.Get("id").String(), models.AppleMusic)
		artist.Name = attrs.Get("name").String()
		artist.ThumbnailURL = artworkURL(attrs)
		artist.Genres = []string{}
		artist.ExternalURL = attrs.Get("url").String()
		artists = append(artists, artist)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return models.DedupeByID(artists), nil
}

func convertAppleTracks(items []gjson.Result) []models.Track {
	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		if t, ok := convertAppleTrack(item); ok {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

// convertAppleTrack maps a song resource onto [models.Track]. Songs without an ISRC are dropped.
func convertAppleTrack(item gjson.Result) (models.Track, bool) {
	attrs := item.Get("attributes")
	isrc := attrs.Get("isrc").String()
	if isrc == "" {
		return models.Track{}, false
	}

	t := models.NewTrack(isrc, item.Get("id").String(), models.AppleMusic)
	t.Name = attrs.Get("name").String()
	t.AlbumArtURL = artworkURL(attrs)
	t.Artists = artistNameList(attrs.Get("artistName"))
	t.AlbumName = attrs.Get("albumName").String()
	t.DurationMs = int(attrs.Get("durationInMillis").Int())
	return t, true
}

func artworkURL(attrs gjson.Result) string {
	return strings.Replace(attrs.Get("artwork.url").String(), "{w}x{h}", artworkSize, 1)
}

// artistNameList accepts either an array of names or a single ", "-joined string.
func artistNameList(v gjson.Result) []string {
	if v.IsArray() {
		var names []string
		for _, n := range v.Array() {
			names = append(names, n.String())
		}
		return names
	}
	if v.String() == "" {
		return []string{}
	}
	return strings.Split(v.String(), ", ")
}

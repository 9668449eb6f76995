package models

import (
	"fmt"

	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/samber/lo"
)

// Content is implemented by every canonical entity stored in a content repository.
type Content interface {
	ContentID() string        // ContentID returns the content-agnostic id (ISRC, UPC, or native id + platform)
	NativeID() string         // NativeID returns the id the source platform uses
	SourcePlatform() Platform // SourcePlatform returns the platform the entity was first observed on
	Kind() ContentKind        // Kind returns the content kind
	Validate() error          // Validate checks the identity header
}

// Identity is the header shared by every content entity.
type Identity struct {
	ID               string   `json:"id"`
	PlatformNativeID string   `json:"platformNativeId"`
	Platform         Platform `json:"platform"`
}

func (i Identity) ContentID() string        { return i.ID }
func (i Identity) NativeID() string         { return i.PlatformNativeID }
func (i Identity) SourcePlatform() Platform { return i.Platform }

func (i Identity) validate(kind ContentKind) error {
	if i.ID == "" {
		return fmt.Errorf("%w: %s id is empty", shared.ErrInvalidArgument, kind)
	}
	if !i.Platform.Valid() {
		return fmt.Errorf("%w: %s %s has no platform", shared.ErrInvalidArgument, kind, i.ID)
	}
	return nil
}

// CompositeID builds the per-platform id used for playlists and artists, which have no
// cross-platform identifier. The same native id on two platforms yields two ids.
func CompositeID(nativeID string, p Platform) string {
	return nativeID + p.String()
}

// Track is keyed by ISRC and never mutated once stored.
type Track struct {
	Identity
	Name        string   `json:"name"`
	AlbumArtURL string   `json:"albumArtUrl"`
	Artists     []string `json:"artists"`
	AlbumName   string   `json:"albumName"`
	DurationMs  int      `json:"durationMs"`
}

// NewTrack creates a [Track] whose id is the ISRC.
func NewTrack(isrc, nativeID string, p Platform) Track {
	return Track{Identity: Identity{ID: isrc, PlatformNativeID: nativeID, Platform: p}}
}

func (t Track) Kind() ContentKind { return KindTrack }
func (t Track) Validate() error   { return t.validate(KindTrack) }

// Album is keyed by UPC and never mutated once stored.
type Album struct {
	Identity
	Name          string   `json:"name"`
	CoverImageURL string   `json:"coverImageUrl"`
	Artists       []string `json:"artists"`
	TrackIDs      []string `json:"trackIds"`
	ReleasedDate  int      `json:"releasedDate"` // YYYYMMDD
	TrackCount    int      `json:"trackCount"`
}

// NewAlbum creates an [Album] whose id is the UPC.
func NewAlbum(upc, nativeID string, p Platform) Album {
	return Album{Identity: Identity{ID: upc, PlatformNativeID: nativeID, Platform: p}}
}

func (a Album) Kind() ContentKind { return KindAlbum }
func (a Album) Validate() error   { return a.validate(KindAlbum) }

// Playlist is resynced wholesale on every pass for its platform.
type Playlist struct {
	Identity
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	CoverImageURL string   `json:"coverImageUrl"`
	TrackIDs      []string `json:"trackIds"`
	Owner         string   `json:"owner"`
	TrackCount    int      `json:"trackCount"`
}

// NewPlaylist creates a [Playlist] with a composite id.
func NewPlaylist(nativeID string, p Platform) Playlist {
	return Playlist{Identity: Identity{ID: CompositeID(nativeID, p), PlatformNativeID: nativeID, Platform: p}}
}

func (p Playlist) Kind() ContentKind { return KindPlaylist }
func (p Playlist) Validate() error   { return p.validate(KindPlaylist) }

// Artist is resynced wholesale; follower counts and popularity drift between passes.
type Artist struct {
	Identity
	Name          string   `json:"name"`
	ThumbnailURL  string   `json:"thumbnailUrl"`
	Genres        []string `json:"genres"`
	FollowerCount int      `json:"followerCount"`
	ExternalURL   string   `json:"externalUrl"`
	Popularity    int      `json:"popularity"`
}

// NewArtist creates an [Artist] with a composite id.
func NewArtist(nativeID string, p Platform) Artist {
	return Artist{Identity: Identity{ID: CompositeID(nativeID, p), PlatformNativeID: nativeID, Platform: p}}
}

func (a Artist) Kind() ContentKind { return KindArtist }
func (a Artist) Validate() error   { return a.validate(KindArtist) }

// IDs returns the content ids of items, preserving order.
func IDs[T Content](items []T) []string {
	return lo.Map(items, func(item T, _ int) string { return item.ContentID() })
}

// DedupeByID keeps the first occurrence of every content id.
func DedupeByID[T Content](items []T) []T {
	return lo.UniqBy(items, func(item T) string { return item.ContentID() })
}

// PlaylistDetail is a playlist with its stored tracks attached. Tracks missing from the store are omitted.
type PlaylistDetail struct {
	Playlist
	Tracks []Track `json:"tracks"`
}

// AlbumDetail is an album with its stored tracks attached. Tracks missing from the store are omitted.
type AlbumDetail struct {
	Album
	Tracks []Track `json:"tracks"`
}

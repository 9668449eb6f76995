// package models defines the domain model for the cross-platform library sync service
package models

import (
	"fmt"
	"strings"

	"github.com/jihwannnn/likebox-2024-test/internal/shared"
)

// Platform is a supported streaming platform. The set is closed: every switch over it is exhaustive.
type Platform int

const (
	Spotify Platform = iota + 1
	AppleMusic
)

// Platforms lists every supported platform in a stable order.
func Platforms() []Platform {
	return []Platform{Spotify, AppleMusic}
}

func (p Platform) String() string {
	switch p {
	case Spotify:
		return "SPOTIFY"
	case AppleMusic:
		return "APPLE_MUSIC"
	default:
		return ""
	}
}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	return p.String() != ""
}

// ParsePlatform accepts the canonical name ("SPOTIFY") case-insensitively, plus "apple-music"/"applemusic".
func ParsePlatform(s string) (Platform, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch norm {
	case "SPOTIFY":
		return Spotify, nil
	case "APPLE_MUSIC", "APPLEMUSIC":
		return AppleMusic, nil
	default:
		return 0, fmt.Errorf("%w: %q", shared.ErrUnknownPlatform, s)
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (p Platform) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", shared.ErrUnknownPlatform, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (p *Platform) UnmarshalText(text []byte) error {
	v, err := ParsePlatform(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ContentKind is one of the four synchronized content types.
type ContentKind int

const (
	KindTrack ContentKind = iota + 1
	KindPlaylist
	KindAlbum
	KindArtist
)

// ContentKinds lists every kind in sync order.
func ContentKinds() []ContentKind {
	return []ContentKind{KindTrack, KindPlaylist, KindAlbum, KindArtist}
}

func (k ContentKind) String() string {
	switch k {
	case KindTrack:
		return "TRACK"
	case KindPlaylist:
		return "PLAYLIST"
	case KindAlbum:
		return "ALBUM"
	case KindArtist:
		return "ARTIST"
	default:
		return ""
	}
}

// Collection returns the store collection holding canonical entities of this kind.
func (k ContentKind) Collection() string {
	switch k {
	case KindTrack:
		return "Tracks"
	case KindPlaylist:
		return "Playlists"
	case KindAlbum:
		return "Albums"
	case KindArtist:
		return "Artists"
	default:
		return ""
	}
}

// Immutable reports whether stored entities of this kind are insert-once.
// Tracks and albums are keyed by ISRC/UPC, which pins their content.
func (k ContentKind) Immutable() bool {
	return k == KindTrack || k == KindAlbum
}

// Valid reports whether k is one of the four kinds.
func (k ContentKind) Valid() bool {
	return k.String() != ""
}

// ParseContentKind accepts "TRACK", "track", "tracks", etc.
func ParseContentKind(s string) (ContentKind, error) {
	norm := strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "S")
	switch norm {
	case "TRACK":
		return KindTrack, nil
	case "PLAYLIST":
		return KindPlaylist, nil
	case "ALBUM":
		return KindAlbum, nil
	case "ARTIST":
		return KindArtist, nil
	default:
		return 0, fmt.Errorf("%w: %q", shared.ErrUnknownKind, s)
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (k ContentKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", shared.ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (k *ContentKind) UnmarshalText(text []byte) error {
	v, err := ParseContentKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

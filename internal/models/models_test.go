package models

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
)

func TestParsePlatform(t *testing.T) {
	tt := []struct {
		input   string
		want    Platform
		wantErr bool
	}{
		{input: "SPOTIFY", want: Spotify},
		{input: "spotify", want: Spotify},
		{input: "APPLE_MUSIC", want: AppleMusic},
		{input: "apple-music", want: AppleMusic},
		{input: "AppleMusic", want: AppleMusic},
		{input: "youtube", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParsePlatform(tc.input)
			if tc.wantErr {
				if !errors.Is(err, shared.ErrUnknownPlatform) {
					t.Errorf("expected ErrUnknownPlatform, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestParseContentKind(t *testing.T) {
	tt := []struct {
		input   string
		want    ContentKind
		wantErr bool
	}{
		{input: "TRACK", want: KindTrack},
		{input: "tracks", want: KindTrack},
		{input: "Playlist", want: KindPlaylist},
		{input: "ALBUM", want: KindAlbum},
		{input: "artists", want: KindArtist},
		{input: "podcast", wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseContentKind(tc.input)
			if tc.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected invalid argument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestContentKind(t *testing.T) {
	t.Run("Collections", func(t *testing.T) {
		want := map[ContentKind]string{
			KindTrack:    "Tracks",
			KindPlaylist: "Playlists",
			KindAlbum:    "Albums",
			KindArtist:   "Artists",
		}
		for kind, collection := range want {
			if kind.Collection() != collection {
				t.Errorf("%s: expected collection %s, got %s", kind, collection, kind.Collection())
			}
		}
	})

	t.Run("Immutable", func(t *testing.T) {
		if !KindTrack.Immutable() || !KindAlbum.Immutable() {
			t.Error("tracks and albums are insert-once")
		}
		if KindPlaylist.Immutable() || KindArtist.Immutable() {
			t.Error("playlists and artists are replaced on every sync")
		}
	})
}

func TestContentIdentity(t *testing.T) {
	t.Run("Composite ids differ per platform", func(t *testing.T) {
		a := NewPlaylist("37i9dQZF1DXcBWIGoYBM5M", Spotify)
		b := NewPlaylist("37i9dQZF1DXcBWIGoYBM5M", AppleMusic)

		if a.ID == b.ID {
			t.Errorf("expected distinct ids, both were %s", a.ID)
		}
		if a.ID != "37i9dQZF1DXcBWIGoYBM5MSPOTIFY" {
			t.Errorf("unexpected composite id %s", a.ID)
		}
	})

	t.Run("Track id is ISRC", func(t *testing.T) {
		track := NewTrack("USUM71703861", "3n3Ppam7vgaVa1iaRUc9Lp", Spotify)
		var c Content = track
		if c.ContentID() != "USUM71703861" || c.NativeID() != "3n3Ppam7vgaVa1iaRUc9Lp" {
			t.Errorf("unexpected identity %+v", track.Identity)
		}
		if c.Kind() != KindTrack {
			t.Errorf("expected TRACK, got %s", c.Kind())
		}
	})

	t.Run("Validate", func(t *testing.T) {
		if err := (Track{}).Validate(); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument for empty track, got %v", err)
		}
		if err := NewAlbum("00602537518357", "a1", 0).Validate(); err == nil {
			t.Error("expected error for album without platform")
		}
		if err := NewArtist("0OdUWJ0sBjDrqHygGUXeCF", Spotify).Validate(); err != nil {
			t.Errorf("expected valid artist, got %v", err)
		}
	})

	t.Run("DedupeByID keeps first", func(t *testing.T) {
		first := NewTrack("ISRC1", "a", Spotify)
		first.Name = "first"
		second := NewTrack("ISRC1", "b", AppleMusic)
		second.Name = "second"
		other := NewTrack("ISRC2", "c", Spotify)

		got := DedupeByID([]Track{first, second, other})
		if len(got) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(got))
		}
		if got[0].Name != "first" {
			t.Errorf("expected first occurrence to win, got %s", got[0].Name)
		}
		if ids := IDs(got); ids[0] != "ISRC1" || ids[1] != "ISRC2" {
			t.Errorf("unexpected ids %v", ids)
		}
	})
}

func TestEncoding(t *testing.T) {
	t.Run("Platform encodes as name", func(t *testing.T) {
		track := NewTrack("ISRC1", "n1", AppleMusic)
		data, err := json.Marshal(track)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if decoded["platform"] != "APPLE_MUSIC" {
			t.Errorf("expected platform APPLE_MUSIC, got %v", decoded["platform"])
		}
		if decoded["id"] != "ISRC1" {
			t.Errorf("expected flattened id, got %v", decoded["id"])
		}
	})

	t.Run("Unknown platform rejected on decode", func(t *testing.T) {
		var track Track
		err := json.Unmarshal([]byte(`{"id":"x","platform":"TIDAL"}`), &track)
		if err == nil {
			t.Error("expected decode error for unknown platform")
		}
	})
}

func TestAccount(t *testing.T) {
	t.Run("Info Connect and Disconnect", func(t *testing.T) {
		info := NewInfo("u1")
		if !info.Connect(AppleMusic) || !info.Connect(Spotify) {
			t.Fatal("expected first connects to change the list")
		}
		if info.Connect(Spotify) {
			t.Error("connecting twice should be a no-op")
		}
		if info.ConnectedPlatforms[0] != Spotify {
			t.Errorf("expected sorted platforms, got %v", info.ConnectedPlatforms)
		}
		if !info.Disconnect(Spotify) || info.Disconnect(Spotify) {
			t.Error("expected exactly one effective disconnect")
		}
		if len(info.ConnectedPlatforms) != 1 {
			t.Errorf("expected one platform left, got %v", info.ConnectedPlatforms)
		}
	})

	t.Run("Default setting", func(t *testing.T) {
		s := NewSetting("u1")
		if s.IsDarkMode || !s.NotificationEnabled || s.Language != DefaultLanguage {
			t.Errorf("unexpected defaults %+v", s)
		}
	})

	t.Run("Token Validate", func(t *testing.T) {
		if err := (Token{UID: "u1", Platform: Spotify}).Validate(); err == nil {
			t.Error("expected error for missing access token")
		}
		if err := (Token{UID: "u1", Platform: Spotify, AccessToken: "a"}).Validate(); err != nil {
			t.Errorf("expected valid token, got %v", err)
		}
	})
}

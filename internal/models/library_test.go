package models

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveRefLifecycle(t *testing.T) {
	idx := NewUserLibraryIndex("u1")

	assert.True(t, idx.AddPlatform(KindTrack, "ISRC1", Spotify))
	assert.Equal(t, []Platform{Spotify}, idx.Ref(KindTrack, "ISRC1").Owners)

	assert.True(t, idx.AddPlatform(KindTrack, "ISRC1", AppleMusic))
	assert.False(t, idx.AddPlatform(KindTrack, "ISRC1", AppleMusic), "adding an owner twice is a no-op")
	assert.Equal(t, []Platform{Spotify, AppleMusic}, idx.Ref(KindTrack, "ISRC1").Owners)

	assert.True(t, idx.RemovePlatform(KindTrack, "ISRC1", Spotify))
	assert.Equal(t, []Platform{AppleMusic}, idx.Ref(KindTrack, "ISRC1").Owners)

	assert.True(t, idx.RemovePlatform(KindTrack, "ISRC1", AppleMusic))
	assert.Nil(t, idx.Ref(KindTrack, "ISRC1"), "last owner removal deletes the ref")
	assert.Equal(t, 0, idx.Len(KindTrack))

	assert.False(t, idx.RemovePlatform(KindTrack, "ISRC1", AppleMusic), "removing from an absent ref is a no-op")
}

func TestRemoveNonOwnerKeepsRef(t *testing.T) {
	idx := NewUserLibraryIndex("u1")
	idx.AddPlatform(KindAlbum, "UPC1", AppleMusic)

	assert.False(t, idx.RemovePlatform(KindAlbum, "UPC1", Spotify))
	require.NotNil(t, idx.Ref(KindAlbum, "UPC1"))
	assert.Equal(t, []Platform{AppleMusic}, idx.Ref(KindAlbum, "UPC1").Owners)
}

func TestByPlatform(t *testing.T) {
	idx := NewUserLibraryIndex("u1")
	idx.AddPlatform(KindPlaylist, "p2SPOTIFY", Spotify)
	idx.AddPlatform(KindPlaylist, "p1SPOTIFY", Spotify)
	idx.AddPlatform(KindPlaylist, "p9APPLE_MUSIC", AppleMusic)
	idx.AddPlatform(KindTrack, "ISRC1", Spotify)
	idx.AddPlatform(KindTrack, "ISRC1", AppleMusic)
	idx.AddPlatform(KindTrack, "ISRC2", AppleMusic)

	assert.Equal(t, []string{"p1SPOTIFY", "p2SPOTIFY"}, idx.ByPlatform(KindPlaylist, Spotify))
	assert.Equal(t, []string{"p9APPLE_MUSIC"}, idx.ByPlatform(KindPlaylist, AppleMusic))
	assert.Empty(t, idx.ByPlatform(KindArtist, Spotify))
	assert.NotNil(t, idx.ByPlatform(KindArtist, Spotify), "empty result is an empty slice")

	assert.Equal(t, []string{"ISRC1", "ISRC2"}, idx.ByPlatforms(KindTrack, Spotify, AppleMusic, Spotify))
	assert.Equal(t, []string{"ISRC1"}, idx.ByPlatforms(KindTrack, Spotify))
}

func TestKindsAreIsolated(t *testing.T) {
	idx := NewUserLibraryIndex("u1")
	idx.AddPlatform(KindTrack, "X", Spotify)

	assert.Nil(t, idx.Ref(KindAlbum, "X"))
	assert.False(t, idx.AddPlatform(ContentKind(99), "X", Spotify), "unknown kinds are rejected")
	assert.False(t, idx.AddPlatform(KindTrack, "Y", Platform(99)), "unknown platforms are rejected")
}

func TestIndexEncodingIsStable(t *testing.T) {
	build := func(order []string) *UserLibraryIndex {
		idx := NewUserLibraryIndex("u1")
		for _, id := range order {
			idx.AddPlatform(KindTrack, id, AppleMusic)
			idx.AddPlatform(KindTrack, id, Spotify)
		}
		return idx
	}

	a, err := json.Marshal(build([]string{"A", "B", "C"}))
	require.NoError(t, err)
	b, err := json.Marshal(build([]string{"C", "A", "B"}))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	var decoded UserLibraryIndex
	require.NoError(t, json.Unmarshal(a, &decoded))
	assert.Equal(t, []string{"A", "B", "C"}, decoded.ByPlatform(KindTrack, Spotify))
	assert.Equal(t, []Platform{Spotify, AppleMusic}, decoded.Ref(KindTrack, "B").Owners)
}

func TestDecodedIndexWithMissingSections(t *testing.T) {
	var idx UserLibraryIndex
	require.NoError(t, json.Unmarshal([]byte(`{"uid":"u1"}`), &idx))

	assert.True(t, idx.AddPlatform(KindArtist, "a1SPOTIFY", Spotify))
	assert.Equal(t, 1, idx.Len(KindArtist))
}

package formatter

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	th "github.com/jihwannnn/likebox-2024-test/internal/testing"
)

func sampleTracks() []models.Track {
	one := models.NewTrack("USRC12345678", "sp1", models.Spotify)
	one.Name = "Song One"
	one.Artists = []string{"Artist One", "Guest"}
	one.AlbumName = "Album One"
	one.DurationMs = 185000

	two := models.NewTrack("USRC87654321", "i.2", models.AppleMusic)
	two.Name = "Song Two"
	two.Artists = []string{"Artist Two"}
	two.DurationMs = 61000

	return []models.Track{one, two}
}

func sampleSections() map[models.ContentKind]Section {
	tracks := sampleTracks()

	pl := models.NewPlaylist("p1", models.Spotify)
	pl.Name = "Road Trip"
	pl.Description = "for the drive"
	pl.Owner = "me"
	pl.TrackIDs = models.IDs(tracks)
	pl.TrackCount = 2

	album := models.NewAlbum("00602577", "a1", models.Spotify)
	album.Name = "Record"
	album.Artists = []string{"Artist One"}
	album.ReleasedDate = 20170600
	album.TrackCount = 1

	artist := models.NewArtist("ar1", models.AppleMusic)
	artist.Name = "Artist One"
	artist.Genres = []string{"k-pop", "dance"}

	return map[models.ContentKind]Section{
		models.KindTrack:    {Kind: models.KindTrack, Tracks: tracks},
		models.KindPlaylist: {Kind: models.KindPlaylist, Playlists: []models.PlaylistDetail{{Playlist: pl, Tracks: tracks}}},
		models.KindAlbum:    {Kind: models.KindAlbum, Albums: []models.AlbumDetail{{Album: album, Tracks: tracks[:1]}}},
		models.KindArtist:   {Kind: models.KindArtist, Artists: []models.Artist{artist}},
	}
}

func TestParseFormat(t *testing.T) {
	tt := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatJSON},
		{in: "JSON", want: FormatJSON},
		{in: "csv", want: FormatCSV},
		{in: "md", want: FormatMarkdown},
		{in: "markdown", want: FormatMarkdown},
		{in: "txt", wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseFormat(tc.in)
			if tc.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected invalid argument, got %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
			}
		})
	}

	if FormatMarkdown.Ext() != "md" || FormatCSV.Ext() != "csv" {
		t.Error("unexpected extensions")
	}
	if FormatCSV.ContentType() != "text/csv" {
		t.Errorf("unexpected content type %s", FormatCSV.ContentType())
	}
}

func TestExporters(t *testing.T) {
	sections := sampleSections()

	t.Run("ToCSV", func(t *testing.T) {
		tt := []struct {
			kind   models.ContentKind
			header string
			row    string
		}{
			{kind: models.KindTrack, header: "ID,Name,Artists,Album,Duration,Platform,NativeID", row: "USRC12345678,Song One,Artist One; Guest,Album One,3:05,SPOTIFY,sp1"},
			{kind: models.KindPlaylist, header: "ID,Name,Owner,TrackCount,TrackIDs,Platform,NativeID", row: "p1SPOTIFY,Road Trip,me,2,USRC12345678; USRC87654321,SPOTIFY,p1"},
			{kind: models.KindAlbum, header: "ID,Name,Artists,Released,TrackCount,Platform,NativeID", row: "00602577,Record,Artist One,2017-06,1,SPOTIFY,a1"},
			{kind: models.KindArtist, header: "ID,Name,Genres,Followers,Popularity,Platform,NativeID", row: "ar1APPLE_MUSIC,Artist One,k-pop; dance,0,0,APPLE_MUSIC,ar1"},
		}

		for _, tc := range tt {
			t.Run(tc.kind.String(), func(t *testing.T) {
				data, err := ToCSV(sections[tc.kind])
				if err != nil {
					t.Fatalf("ToCSV failed: %v", err)
				}

				lines := strings.Split(strings.TrimSpace(string(data)), "\n")
				if lines[0] != tc.header {
					t.Errorf("expected header %q, got %q", tc.header, lines[0])
				}
				if lines[1] != tc.row {
					t.Errorf("expected row %q, got %q", tc.row, lines[1])
				}
			})
		}
	})

	t.Run("ToMarkdown", func(t *testing.T) {
		data, err := ToMarkdown(sections[models.KindPlaylist])
		if err != nil {
			t.Fatalf("ToMarkdown failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{
			"# Playlists (1)",
			"## Road Trip",
			"**Description**: for the drive",
			"1. Artist One; Guest - Song One (Album One) [3:05]",
			"2. Artist Two - Song Two [1:01]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("markdown missing %q\n%s", want, output)
			}
		}

		data, err = ToMarkdown(sections[models.KindArtist])
		if err != nil {
			t.Fatalf("ToMarkdown failed: %v", err)
		}
		if !strings.Contains(string(data), "1. Artist One (k-pop; dance) [APPLE_MUSIC]") {
			t.Errorf("unexpected artist markdown:\n%s", data)
		}
	})

	t.Run("ToJSON", func(t *testing.T) {
		data, err := ToJSON(sections[models.KindAlbum])
		if err != nil {
			t.Fatalf("ToJSON failed: %v", err)
		}

		var albums []models.AlbumDetail
		if err := json.Unmarshal(data, &albums); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(albums) != 1 || albums[0].ID != "00602577" || len(albums[0].Tracks) != 1 {
			t.Errorf("unexpected albums %+v", albums)
		}
	})

	t.Run("ToJSON empty section is an array", func(t *testing.T) {
		data, err := ToJSON(Section{Kind: models.KindArtist})
		if err != nil {
			t.Fatalf("ToJSON failed: %v", err)
		}
		if strings.TrimSpace(string(data)) != "[]" {
			t.Errorf("expected [], got %s", data)
		}
	})
}

func TestRender(t *testing.T) {
	section := sampleSections()[models.KindTrack]

	t.Run("writes to the target", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Render(&buf, FormatCSV, section); err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if !strings.Contains(buf.String(), "Song Two") {
			t.Errorf("missing rendered track: %s", buf.String())
		}
	})

	t.Run("write failure", func(t *testing.T) {
		if err := Render(&th.FWriter{}, FormatMarkdown, section); err == nil {
			t.Error("expected write error")
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Render(&buf, FormatJSON, Section{}); !errors.Is(err, shared.ErrUnknownKind) {
			t.Errorf("expected ErrUnknownKind, got %v", err)
		}
	})
}

func TestHelpers(t *testing.T) {
	t.Run("FormatDuration", func(t *testing.T) {
		tt := map[int]string{0: "0:00", 59999: "0:59", 61000: "1:01", 3600000: "60:00"}
		for ms, want := range tt {
			if got := FormatDuration(ms); got != want {
				t.Errorf("FormatDuration(%d) = %s, want %s", ms, got, want)
			}
		}
	})

	t.Run("FormatReleased", func(t *testing.T) {
		tt := map[int]string{0: "", 20200000: "2020", 20200500: "2020-05", 20190302: "2019-03-02"}
		for in, want := range tt {
			if got := FormatReleased(in); got != want {
				t.Errorf("FormatReleased(%d) = %q, want %q", in, got, want)
			}
		}
	})
}

func TestWriteManifest(t *testing.T) {
	m := Manifest{
		RunID:      "run-1",
		UID:        "u1",
		Format:     FormatCSV,
		ExportedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Entries: []ManifestEntry{
			{Kind: models.KindTrack, Location: "u1/run-1/tracks.csv", Items: 2},
			{Kind: models.KindAlbum, Error: "boom"},
		},
	}

	t.Run("Valid", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteManifest(&buf, m); err != nil {
			t.Fatalf("WriteManifest failed: %v", err)
		}
		output := buf.String()
		for _, want := range []string{`"runId": "run-1"`, `"kind": "TRACK"`, `"error": "boom"`, `"format": "csv"`} {
			if !strings.Contains(output, want) {
				t.Errorf("manifest missing %s\n%s", want, output)
			}
		}
	})

	t.Run("LimitedWriter", func(t *testing.T) {
		var buf bytes.Buffer
		lw := th.NewLimitedWriter(0, 0, &buf)
		if err := WriteManifest(&lw, m); err == nil {
			t.Error("expected write error")
		}
	})
}

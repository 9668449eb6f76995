// package formatter renders library content as JSON, CSV or Markdown for export
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts json, csv, markdown and md. An empty string selects JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
	}
}

// Ext returns the file extension for f without the dot.
func (f Format) Ext() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatMarkdown:
		return "text/markdown"
	default:
		return "application/json"
	}
}

// Section is one content kind of a user's library. Only the slice matching Kind is rendered.
type Section struct {
	Kind      models.ContentKind
	Tracks    []models.Track
	Playlists []models.PlaylistDetail
	Albums    []models.AlbumDetail
	Artists   []models.Artist
}

// Len returns the number of items in the section's kind.
func (s Section) Len() int {
	switch s.Kind {
	case models.KindTrack:
		return len(s.Tracks)
	case models.KindPlaylist:
		return len(s.Playlists)
	case models.KindAlbum:
		return len(s.Albums)
	case models.KindArtist:
		return len(s.Artists)
	default:
		return 0
	}
}

func (s Section) items() any {
	switch s.Kind {
	case models.KindTrack:
		return orEmpty(s.Tracks)
	case models.KindPlaylist:
		return orEmpty(s.Playlists)
	case models.KindAlbum:
		return orEmpty(s.Albums)
	default:
		return orEmpty(s.Artists)
	}
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// Render writes s to w in format f.
func Render(w io.Writer, f Format, s Section) error {
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: %v", shared.ErrUnknownKind, s.Kind)
	}

	var data []byte
	var err error
	switch f {
	case FormatCSV:
		data, err = ToCSV(s)
	case FormatMarkdown:
		data, err = ToMarkdown(s)
	default:
		data, err = ToJSON(s)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s export: %w", f, err)
	}
	return nil
}

// ToJSON encodes the section's items as an indented JSON array.
func ToJSON(s Section) ([]byte, error) {
	data, err := json.MarshalIndent(s.items(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", s.Kind, err)
	}
	return append(data, '\n'), nil
}

// ToCSV encodes the section with one row per item. List-valued columns are joined with "; ".
func ToCSV(s Section) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	var rows [][]string
	switch s.Kind {
	case models.KindTrack:
		rows = append(rows, []string{"ID", "Name", "Artists", "Album", "Duration", "Platform", "NativeID"})
		for _, t := range s.Tracks {
			rows = append(rows, []string{t.ID, t.Name, join(t.Artists), t.AlbumName, FormatDuration(t.DurationMs), t.Platform.String(), t.PlatformNativeID})
		}
	case models.KindPlaylist:
		rows = append(rows, []string{"ID", "Name", "Owner", "TrackCount", "TrackIDs", "Platform", "NativeID"})
		for _, p := range s.Playlists {
			rows = append(rows, []string{p.ID, p.Name, p.Owner, strconv.Itoa(p.TrackCount), join(p.TrackIDs), p.Platform.String(), p.PlatformNativeID})
		}
	case models.KindAlbum:
		rows = append(rows, []string{"ID", "Name", "Artists", "Released", "TrackCount", "Platform", "NativeID"})
		for _, a := range s.Albums {
			rows = append(rows, []string{a.ID, a.Name, join(a.Artists), FormatReleased(a.ReleasedDate), strconv.Itoa(a.TrackCount), a.Platform.String(), a.PlatformNativeID})
		}
	case models.KindArtist:
		rows = append(rows, []string{"ID", "Name", "Genres", "Followers", "Popularity", "Platform", "NativeID"})
		for _, a := range s.Artists {
			rows = append(rows, []string{a.ID, a.Name, join(a.Genres), strconv.Itoa(a.FollowerCount), strconv.Itoa(a.Popularity), a.Platform.String(), a.PlatformNativeID})
		}
	}

	if err := writer.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ToMarkdown renders the section as a heading followed by a numbered list.
// Playlists and albums get a sub-heading each with their tracks listed below.
func ToMarkdown(s Section) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s (%d)\n\n", Title(s.Kind), s.Len())

	switch s.Kind {
	case models.KindTrack:
		writeTrackList(&buf, s.Tracks)
	case models.KindPlaylist:
		for _, p := range s.Playlists {
			fmt.Fprintf(&buf, "## %s\n\n", p.Name)
			if p.CoverImageURL != "" {
				fmt.Fprintf(&buf, "![Cover](%s)\n\n", p.CoverImageURL)
			}
			if p.Description != "" {
				fmt.Fprintf(&buf, "**Description**: %s\n\n", p.Description)
			}
			fmt.Fprintf(&buf, "**Owner**: %s | **Platform**: %s | **Tracks**: %d\n\n", p.Owner, p.Platform, p.TrackCount)
			writeTrackList(&buf, p.Tracks)
		}
	case models.KindAlbum:
		for _, a := range s.Albums {
			fmt.Fprintf(&buf, "## %s - %s\n\n", join(a.Artists), a.Name)
			if a.CoverImageURL != "" {
				fmt.Fprintf(&buf, "![Cover](%s)\n\n", a.CoverImageURL)
			}
			fmt.Fprintf(&buf, "**Released**: %s | **UPC**: %s | **Tracks**: %d\n\n", FormatReleased(a.ReleasedDate), a.ID, a.TrackCount)
			writeTrackList(&buf, a.Tracks)
		}
	case models.KindArtist:
		for i, a := range s.Artists {
			genres := ""
			if len(a.Genres) > 0 {
				genres = fmt.Sprintf(" (%s)", join(a.Genres))
			}
			fmt.Fprintf(&buf, "%d. %s%s [%s]\n", i+1, a.Name, genres, a.Platform)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

func writeTrackList(buf *bytes.Buffer, tracks []models.Track) {
	for i, t := range tracks {
		album := ""
		if t.AlbumName != "" {
			album = fmt.Sprintf(" (%s)", t.AlbumName)
		}
		fmt.Fprintf(buf, "%d. %s - %s%s [%s]\n", i+1, join(t.Artists), t.Name, album, FormatDuration(t.DurationMs))
	}
	buf.WriteString("\n")
}

// Title returns the section heading for kind.
func Title(kind models.ContentKind) string {
	switch kind {
	case models.KindTrack:
		return "Liked Tracks"
	case models.KindPlaylist:
		return "Playlists"
	case models.KindAlbum:
		return "Saved Albums"
	case models.KindArtist:
		return "Followed Artists"
	default:
		return "Unknown"
	}
}

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// FormatReleased renders a YYYYMMDD integer as YYYY-MM-DD, trimming unknown month and day.
func FormatReleased(date int) string {
	if date <= 0 {
		return ""
	}
	y, m, d := date/10000, date/100%100, date%100
	switch {
	case m == 0:
		return fmt.Sprintf("%04d", y)
	case d == 0:
		return fmt.Sprintf("%04d-%02d", y, m)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
	}
}

func join(items []string) string {
	return strings.Join(items, "; ")
}

// ManifestEntry describes one written export object.
type ManifestEntry struct {
	Kind     models.ContentKind `json:"kind"`
	Location string             `json:"location"`
	Items    int                `json:"items"`
	Error    string             `json:"error,omitempty"`
}

// Manifest summarizes one export run.
type Manifest struct {
	RunID      string          `json:"runId"`
	UID        string          `json:"uid"`
	Format     Format          `json:"format"`
	ExportedAt time.Time       `json:"exportedAt"`
	Entries    []ManifestEntry `json:"entries"`
}

// WriteManifest writes m to w as indented JSON.
func WriteManifest(w io.Writer, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/repositories"
	"github.com/jihwannnn/likebox-2024-test/internal/services"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/jihwannnn/likebox-2024-test/internal/store"
	"golang.org/x/oauth2"
)

// NewStore returns a document store over a migrated in-memory sqlite database with the given batch size.
func NewStore(t *testing.T, batchSize int) *store.Store {
	t.Helper()

	db, err := shared.NewDatabase(shared.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return store.New(db, batchSize, nil)
}

// NewRepositories wires every repository to a fresh [NewStore] using the default config.
func NewRepositories(t *testing.T) *repositories.Repositories {
	t.Helper()
	return repositories.New(NewStore(t, shared.MaxBatchSize), shared.DefaultConfig(), nil)
}

// MockAdapter is a programmable test double for [services.Adapter].
//
// Results are returned as configured; the Err fields fail the matching operation.
// Every call is counted by operation name and access token.
type MockAdapter struct {
	PlatformID models.Platform

	Liked     services.LikedTracks
	Playlist  services.Playlists
	Album     services.Albums
	Artists   []models.Artist
	FetchErr  error
	Exchanged *models.Token
	ExchErr   error

	// RefreshFunc handles RefreshAccessToken. A nil RefreshFunc reports an invalid refresh token.
	RefreshFunc func(refreshToken string) (*oauth2.Token, bool, error)

	mu     sync.Mutex
	calls  map[string]int
	tokens []string
}

// NewMockAdapter creates an empty MockAdapter for p.
func NewMockAdapter(p models.Platform) *MockAdapter {
	return &MockAdapter{PlatformID: p, calls: map[string]int{}}
}

func (m *MockAdapter) record(op, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[op]++
	if token != "" {
		m.tokens = append(m.tokens, token)
	}
}

// Calls returns how many times op was invoked.
func (m *MockAdapter) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// AccessTokens returns every access token the fetch operations received, in call order.
func (m *MockAdapter) AccessTokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tokens...)
}

// SetTracks replaces the liked tracks result.
func (m *MockAdapter) SetTracks(tracks ...models.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Liked = services.LikedTracks{TrackIDs: models.IDs(tracks), Tracks: tracks}
}

func (m *MockAdapter) Platform() models.Platform { return m.PlatformID }

func (m *MockAdapter) AuthURL(state string) (string, error) {
	m.record("AuthURL", "")
	return "https://auth.example.com/" + m.PlatformID.String() + "?state=" + state, nil
}

func (m *MockAdapter) ExchangeCode(ctx context.Context, uid, code string) (*models.Token, error) {
	m.record("ExchangeCode", "")
	if m.ExchErr != nil {
		return nil, m.ExchErr
	}
	if m.Exchanged != nil {
		tok := *m.Exchanged
		tok.UID = uid
		return &tok, nil
	}
	return &models.Token{UID: uid, Platform: m.PlatformID, AccessToken: "access-" + code, RefreshToken: "refresh-" + code}, nil
}

func (m *MockAdapter) RefreshAccessToken(ctx context.Context, refreshToken string) (*oauth2.Token, bool, error) {
	m.record("RefreshAccessToken", "")
	if m.RefreshFunc == nil {
		return nil, false, nil
	}
	return m.RefreshFunc(refreshToken)
}

func (m *MockAdapter) LikedTracks(ctx context.Context, accessToken string) (*services.LikedTracks, error) {
	m.record("LikedTracks", accessToken)
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	res := m.Liked
	return &res, nil
}

func (m *MockAdapter) Playlists(ctx context.Context, accessToken string) (*services.Playlists, error) {
	m.record("Playlists", accessToken)
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	res := m.Playlist
	return &res, nil
}

func (m *MockAdapter) Albums(ctx context.Context, accessToken string) (*services.Albums, error) {
	m.record("Albums", accessToken)
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	res := m.Album
	return &res, nil
}

func (m *MockAdapter) FollowedArtists(ctx context.Context, accessToken string) ([]models.Artist, error) {
	m.record("FollowedArtists", accessToken)
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	return append([]models.Artist(nil), m.Artists...), nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// AssertFileExists fails t when path does not exist.
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

// MustReadFile returns the contents of path or stops the test.
func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

package repositories

import (
	"github.com/charmbracelet/log"
	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/jihwannnn/likebox-2024-test/internal/store"
)

// Collection names for per-user documents.
const (
	CollectionUserContentData = "UserContentData"
	CollectionTokens          = "Tokens"
	CollectionUserTokens      = "User_tokens"
	CollectionInfo            = "Info"
	CollectionSettings        = "Settings"
)

// Repositories bundles every repository over one store.
type Repositories struct {
	Tracks    *ContentRepository[models.Track]
	Albums    *ContentRepository[models.Album]
	Playlists *ContentRepository[models.Playlist]
	Artists   *ContentRepository[models.Artist]
	Index     *LibraryIndexRepository
	Tokens    *TokenRepository
	Info      *DocumentRepository[models.Info]
	Settings  *DocumentRepository[models.Setting]
}

// New wires every repository to s.
func New(s *store.Store, config *shared.Config, logger *log.Logger) *Repositories {
	return &Repositories{
		Tracks:    NewContentRepository[models.Track](s, config.Cache),
		Albums:    NewContentRepository[models.Album](s, config.Cache),
		Playlists: NewContentRepository[models.Playlist](s, config.Cache),
		Artists:   NewContentRepository[models.Artist](s, config.Cache),
		Index:     NewLibraryIndexRepository(s, config.Sync.IndexRetryMaxElapsed.Duration, logger),
		Tokens:    NewTokenRepository(s),
		Info:      NewDocumentRepository[models.Info](s, CollectionInfo),
		Settings:  NewDocumentRepository[models.Setting](s, CollectionSettings),
	}
}

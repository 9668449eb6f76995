package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/jihwannnn/likebox-2024-test/internal/metrics"
	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/jihwannnn/likebox-2024-test/internal/store"
)

// IndexMutation edits an index in place and reports whether anything changed.
// It may run more than once when a concurrent writer wins the version race, so it
// must derive its edits from the index it is given.
type IndexMutation func(idx *models.UserLibraryIndex) (changed bool, err error)

// LibraryIndexRepository stores one [models.UserLibraryIndex] document per user.
type LibraryIndexRepository struct {
	store           *store.Store
	retryMaxElapsed time.Duration
	logger          *log.Logger
}

// NewLibraryIndexRepository creates a LibraryIndexRepository. retryMaxElapsed bounds the time
// spent retrying lost version races in [LibraryIndexRepository.Update].
func NewLibraryIndexRepository(s *store.Store, retryMaxElapsed time.Duration, logger *log.Logger) *LibraryIndexRepository {
	if retryMaxElapsed <= 0 {
		retryMaxElapsed = 10 * time.Second
	}
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &LibraryIndexRepository{
		store:           s,
		retryMaxElapsed: retryMaxElapsed,
		logger:          shared.WithLogger(logger, "component", "index"),
	}
}

func indexPath(uid string) string {
	return store.Path(CollectionUserContentData, uid)
}

// Get loads the index for uid with its document version.
// A user without an index yields [shared.ErrIndexNotFound].
func (r *LibraryIndexRepository) Get(ctx context.Context, uid string) (*models.UserLibraryIndex, int64, error) {
	doc, err := r.store.Get(ctx, indexPath(uid))
	if errors.Is(err, shared.ErrNotFound) {
		return nil, 0, fmt.Errorf("%w: %s", shared.ErrIndexNotFound, uid)
	}
	if err != nil {
		return nil, 0, err
	}

	idx, err := store.Decode[models.UserLibraryIndex](doc)
	if err != nil {
		return nil, 0, err
	}
	if idx.UID == "" {
		idx.UID = uid
	}
	return &idx, doc.Version, nil
}

// Create writes an empty index for uid unless one already exists.
func (r *LibraryIndexRepository) Create(ctx context.Context, uid string) (bool, error) {
	return r.store.Create(ctx, indexPath(uid), models.NewUserLibraryIndex(uid))
}

// Update applies fn to the current index and writes it back with a version check.
// Lost races are retried with exponential backoff. Errors from fn and a missing index are not retried.
func (r *LibraryIndexRepository) Update(ctx context.Context, uid string, fn IndexMutation) (*models.UserLibraryIndex, error) {
	var result *models.UserLibraryIndex

	operation := func() error {
		idx, version, err := r.Get(ctx, uid)
		if err != nil {
			return backoff.Permanent(err)
		}

		changed, err := fn(idx)
		if err != nil {
			return backoff.Permanent(err)
		}
		result = idx
		if !changed {
			return nil
		}

		err = r.store.CompareAndSet(ctx, indexPath(uid), idx, version)
		if errors.Is(err, shared.ErrConflict) {
			metrics.IndexConflictsTotal.Inc()
			r.logger.Warn("index version conflict, retrying", "uid", uid, "version", version)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = r.retryMaxElapsed

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return result, nil
}

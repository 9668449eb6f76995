package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/jihwannnn/likebox-2024-test/internal/store"
	"github.com/karlseguin/ccache/v3"
	"github.com/samber/lo"
)

// ContentRepository persists one kind of global content entity.
//
// Tracks and albums are immutable once stored, so their reads go through an LRU cache.
// Playlists and artists are replaced on every sync and always read from the store.
type ContentRepository[T models.Content] struct {
	store *store.Store
	kind  models.ContentKind
	cache *ccache.Cache[T]
	ttl   time.Duration
}

// NewContentRepository creates a repository for the content kind of T.
func NewContentRepository[T models.Content](s *store.Store, config shared.CacheConfig) *ContentRepository[T] {
	var zero T
	r := &ContentRepository[T]{store: s, kind: zero.Kind(), ttl: config.TTL.Duration}

	if r.kind.Immutable() && config.MaxSize > 0 && r.ttl > 0 {
		r.cache = ccache.New(
			ccache.Configure[T]().
				MaxSize(config.MaxSize).
				GetsPerPromote(3).
				ItemsToPrune(uint32(max(config.MaxSize/100, 1))),
		)
	}

	return r
}

// Kind returns the content kind stored by this repository.
func (r *ContentRepository[T]) Kind() models.ContentKind {
	return r.kind
}

func (r *ContentRepository[T]) path(id string) string {
	return store.Path(r.kind.Collection(), id)
}

// Upsert writes items with the semantics of their kind: insert-if-absent for
// immutable kinds and full replace otherwise.
func (r *ContentRepository[T]) Upsert(ctx context.Context, items []T) error {
	if r.kind.Immutable() {
		return r.UpsertIfAbsent(ctx, items)
	}
	return r.UpsertReplace(ctx, items)
}

// UpsertIfAbsent stores each item whose id is not already present. Existing documents are left untouched.
// Concurrent calls with overlapping ids are safe: the first write wins and later ones are no-ops.
func (r *ContentRepository[T]) UpsertIfAbsent(ctx context.Context, items []T) error {
	return r.write(ctx, items, store.CreateOp)
}

// UpsertReplace overwrites each item by id.
func (r *ContentRepository[T]) UpsertReplace(ctx context.Context, items []T) error {
	if err := r.write(ctx, items, store.SetOp); err != nil {
		return err
	}
	if r.cache != nil {
		for _, item := range items {
			r.cache.Delete(item.ContentID())
		}
	}
	return nil
}

func (r *ContentRepository[T]) write(ctx context.Context, items []T, op func(string, any) store.Op) error {
	items = models.DedupeByID(items)
	ops := make([]store.Op, 0, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		ops = append(ops, op(r.path(item.ContentID()), item))
	}

	if err := r.store.Batch(ctx, ops); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", r.kind.Collection(), err)
	}
	return nil
}

// GetByID returns the entity with id or [shared.ErrNotFound].
func (r *ContentRepository[T]) GetByID(ctx context.Context, id string) (T, error) {
	if r.cache == nil {
		return r.load(ctx, id)
	}

	item, err := r.cache.Fetch(id, r.ttl, func() (T, error) {
		return r.load(ctx, id)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return item.Value(), nil
}

func (r *ContentRepository[T]) load(ctx context.Context, id string) (T, error) {
	doc, err := r.store.Get(ctx, r.path(id))
	if err != nil {
		var zero T
		if errors.Is(err, shared.ErrNotFound) {
			return zero, fmt.Errorf("%w: %s %s", shared.ErrNotFound, r.kind, id)
		}
		return zero, err
	}
	return store.Decode[T](doc)
}

// GetByIDs returns the entities that exist among ids, in the order of ids.
// Missing ids are omitted, so the result may be shorter than the input.
func (r *ContentRepository[T]) GetByIDs(ctx context.Context, ids []string) ([]T, error) {
	ids = lo.Uniq(ids)
	found := make(map[string]T, len(ids))
	missing := make([]string, 0, len(ids))

	for _, id := range ids {
		if r.cache != nil {
			if item := r.cache.Get(id); item != nil && !item.Expired() {
				found[id] = item.Value()
				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		paths := lo.Map(missing, func(id string, _ int) string { return r.path(id) })
		docs, err := r.store.GetMany(ctx, paths)
		if err != nil {
			return nil, err
		}
		for _, id := range missing {
			doc, ok := docs[r.path(id)]
			if !ok {
				continue
			}
			v, err := store.Decode[T](doc)
			if err != nil {
				return nil, err
			}
			found[id] = v
			if r.cache != nil {
				r.cache.Set(id, v, r.ttl)
			}
		}
	}

	result := make([]T, 0, len(found))
	for _, id := range ids {
		if v, ok := found[id]; ok {
			result = append(result, v)
		}
	}
	return result, nil
}

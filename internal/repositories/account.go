package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/jihwannnn/likebox-2024-test/internal/store"
)

// DocumentRepository stores a single document per user under one collection.
// It backs account info and settings.
type DocumentRepository[T any] struct {
	store      *store.Store
	collection string
}

// NewDocumentRepository creates a DocumentRepository over collection.
func NewDocumentRepository[T any](s *store.Store, collection string) *DocumentRepository[T] {
	return &DocumentRepository[T]{store: s, collection: collection}
}

func (r *DocumentRepository[T]) path(uid string) string {
	return store.Path(r.collection, uid)
}

// Get returns the document for uid or [shared.ErrNotFound].
func (r *DocumentRepository[T]) Get(ctx context.Context, uid string) (*T, error) {
	doc, err := r.store.Get(ctx, r.path(uid))
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s %s", shared.ErrNotFound, r.collection, uid)
	}
	if err != nil {
		return nil, err
	}

	v, err := store.Decode[T](doc)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create writes v for uid unless a document already exists.
func (r *DocumentRepository[T]) Create(ctx context.Context, uid string, v T) (bool, error) {
	return r.store.Create(ctx, r.path(uid), v)
}

// Save replaces the document for uid.
func (r *DocumentRepository[T]) Save(ctx context.Context, uid string, v T) error {
	return r.store.Set(ctx, r.path(uid), v)
}

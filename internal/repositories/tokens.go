package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/jihwannnn/likebox-2024-test/internal/store"
	"github.com/samber/lo"
)

// TokenRepository stores per-user, per-platform OAuth tokens.
type TokenRepository struct {
	store *store.Store
}

// NewTokenRepository creates a TokenRepository.
func NewTokenRepository(s *store.Store) *TokenRepository {
	return &TokenRepository{store: s}
}

func tokensParent(uid string) string {
	return store.Path(CollectionTokens, uid, CollectionUserTokens)
}

func tokenPath(uid string, p models.Platform) string {
	return store.Path(tokensParent(uid), p.String())
}

// Get returns the token for (uid, p) or [shared.ErrTokenNotFound].
func (r *TokenRepository) Get(ctx context.Context, uid string, p models.Platform) (*models.Token, error) {
	doc, err := r.store.Get(ctx, tokenPath(uid, p))
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s %s", shared.ErrTokenNotFound, uid, p)
	}
	if err != nil {
		return nil, err
	}

	token, err := store.Decode[models.Token](doc)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// List returns every token stored for uid.
func (r *TokenRepository) List(ctx context.Context, uid string) ([]models.Token, error) {
	docs, err := r.store.List(ctx, tokensParent(uid))
	if err != nil {
		return nil, err
	}

	tokens := make([]models.Token, 0, len(docs))
	for i := range docs {
		token, err := store.Decode[models.Token](&docs[i])
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// Save overwrites the token for (token.UID, token.Platform).
func (r *TokenRepository) Save(ctx context.Context, token models.Token) error {
	if err := token.Validate(); err != nil {
		return err
	}
	return r.store.Set(ctx, tokenPath(token.UID, token.Platform), token)
}

// Delete removes the token for (uid, p). Removing an absent token is not an error.
func (r *TokenRepository) Delete(ctx context.Context, uid string, p models.Platform) error {
	return r.store.Delete(ctx, tokenPath(uid, p))
}

// DeleteAll removes every token for uid in one batch and returns the platforms that were unlinked.
func (r *TokenRepository) DeleteAll(ctx context.Context, uid string) ([]models.Platform, error) {
	tokens, err := r.List(ctx, uid)
	if err != nil {
		return nil, err
	}

	ops := lo.Map(tokens, func(t models.Token, _ int) store.Op {
		return store.DeleteOp(tokenPath(uid, t.Platform))
	})
	if err := r.store.Batch(ctx, ops); err != nil {
		return nil, fmt.Errorf("failed to delete tokens for %s: %w", uid, err)
	}

	return lo.Map(tokens, func(t models.Token, _ int) models.Platform { return t.Platform }), nil
}

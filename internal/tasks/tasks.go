package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jihwannnn/likebox-2024-test/internal/metrics"
	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/repositories"
	"github.com/jihwannnn/likebox-2024-test/internal/services"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Result reports the ownership changes one reconcile made to the library index.
type Result struct {
	UID      string             `json:"uid"`
	Platform models.Platform    `json:"platform"`
	Kind     models.ContentKind `json:"kind"`
	Added    int                `json:"added"`
	Removed  int                `json:"removed"`
	Fetched  int                `json:"fetched"`
}

// TokenSource hands out access tokens that are valid for immediate use.
type TokenSource interface {
	EnsureFresh(ctx context.Context, uid string, p models.Platform) (*models.Token, bool, error)
}

// AdapterResolver returns the adapter for a platform.
type AdapterResolver interface {
	For(p models.Platform) (services.Adapter, error)
}

// Reconciler brings a user's library index in line with what a platform currently reports.
type Reconciler struct {
	repos    *repositories.Repositories
	tokens   TokenSource
	adapters AdapterResolver
	logger   *log.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(repos *repositories.Repositories, tokens TokenSource, adapters AdapterResolver, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &Reconciler{
		repos:    repos,
		tokens:   tokens,
		adapters: adapters,
		logger:   shared.WithLogger(logger, "component", "reconciler"),
	}
}

// Reconcile fetches the complete library of kind from p and applies it to uid's index as a full
// replace: ids p no longer reports lose p as an owner, and every reported id gains it.
//
// Fetched content is stored before the index is written. Tracks and albums are only inserted when
// absent; playlists and artists are overwritten. The index must already exist.
//
// When the stored refresh token is rejected the error wraps [shared.ErrReauthRequired] and nothing
// has been written.
func (r *Reconciler) Reconcile(ctx context.Context, uid string, p models.Platform, kind models.ContentKind, progress chan<- ProgressUpdate) (*Result, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid", shared.ErrMissingArgument)
	}
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnknownPlatform, p)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnknownKind, kind)
	}

	start := time.Now()
	logger := r.logger.With("uid", uid, "platform", p, "kind", kind)
	logger.Info("reconcile started")

	res, err := r.reconcile(ctx, uid, p, kind, progress)

	metrics.ReconcileDuration.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, shared.ErrReauthRequired) {
			outcome = metrics.OutcomeReauth
			logger.Info("reconcile needs re-authentication")
		} else {
			logger.Error("reconcile failed", "err", err)
		}
		metrics.ReconcileTotal.WithLabelValues(p.String(), kind.String(), outcome).Inc()
		return nil, err
	}

	metrics.ReconcileTotal.WithLabelValues(p.String(), kind.String(), metrics.OutcomeOK).Inc()
	metrics.ReconcileChangesTotal.WithLabelValues(kind.String(), "added").Add(float64(res.Added))
	metrics.ReconcileChangesTotal.WithLabelValues(kind.String(), "removed").Add(float64(res.Removed))
	logger.Info("reconcile finished", "added", res.Added, "removed", res.Removed, "fetched", res.Fetched, "elapsed", time.Since(start).Round(time.Millisecond))

	sendProgress(progress, reconciledUpdate(res))
	return res, nil
}

func (r *Reconciler) reconcile(ctx context.Context, uid string, p models.Platform, kind models.ContentKind, progress chan<- ProgressUpdate) (*Result, error) {
	sendProgress(progress, loadIndexUpdate(kind, uid))
	if _, _, err := r.repos.Index.Get(ctx, uid); err != nil {
		return nil, err
	}

	adapter, err := r.adapters.For(p)
	if err != nil {
		return nil, err
	}

	sendProgress(progress, refreshTokenUpdate(kind, p))
	token, _, err := r.tokens.EnsureFresh(ctx, uid, p)
	if err != nil {
		return nil, err
	}

	sendProgress(progress, fetchLibraryUpdate(kind, p))
	snap, err := services.Fetch(ctx, adapter, kind, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s from %s: %w", kind, p, err)
	}
	current := lo.Uniq(lo.Compact(snap.IDs))

	sendProgress(progress, storeContentUpdate(kind, len(current)))
	if err := r.store(ctx, snap); err != nil {
		return nil, err
	}

	sendProgress(progress, writeIndexUpdate(kind))
	res := &Result{UID: uid, Platform: p, Kind: kind, Fetched: len(current)}

	_, err = r.repos.Index.Update(ctx, uid, func(idx *models.UserLibraryIndex) (bool, error) {
		// Recomputed on every attempt; a retry sees the index a concurrent writer left behind.
		removed, added := lo.Difference(idx.ByPlatform(kind, p), current)
		for _, id := range removed {
			idx.RemovePlatform(kind, id, p)
		}
		for _, id := range added {
			idx.AddPlatform(kind, id, p)
		}
		res.Added, res.Removed = len(added), len(removed)
		return len(added)+len(removed) > 0, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update library index: %w", err)
	}

	return res, nil
}

// store writes every fetched entity. Tracks are written for all kinds since playlists and albums carry them.
func (r *Reconciler) store(ctx context.Context, snap *services.Snapshot) error {
	if err := r.repos.Tracks.Upsert(ctx, snap.Tracks); err != nil {
		return fmt.Errorf("failed to store tracks: %w", err)
	}
	if err := r.repos.Playlists.Upsert(ctx, snap.Playlists); err != nil {
		return fmt.Errorf("failed to store playlists: %w", err)
	}
	if err := r.repos.Albums.Upsert(ctx, snap.Albums); err != nil {
		return fmt.Errorf("failed to store albums: %w", err)
	}
	if err := r.repos.Artists.Upsert(ctx, snap.Artists); err != nil {
		return fmt.Errorf("failed to store artists: %w", err)
	}
	return nil
}

// ReconcileAll reconciles every content kind of p concurrently. The first failure cancels the
// remaining kinds and is returned; results of kinds that finished are still returned.
func (r *Reconciler) ReconcileAll(ctx context.Context, uid string, p models.Platform, progress chan<- ProgressUpdate) ([]Result, error) {
	kinds := models.ContentKinds()
	results := make([]*Result, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(kinds))
	for i, kind := range kinds {
		g.Go(func() error {
			res, err := r.Reconcile(gctx, uid, p, kind, progress)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	err := g.Wait()

	done := make([]Result, 0, len(kinds))
	for _, res := range results {
		if res != nil {
			done = append(done, *res)
		}
	}
	return done, err
}

package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jihwannnn/likebox-2024-test/internal/metrics"
	"github.com/jihwannnn/likebox-2024-test/internal/models"
	"github.com/jihwannnn/likebox-2024-test/internal/repositories"
	"github.com/jihwannnn/likebox-2024-test/internal/services"
	"github.com/jihwannnn/likebox-2024-test/internal/shared"
	"golang.org/x/sync/singleflight"
)

// ExpirySkew is subtracted from a token's expiry so requests never start with a token about to lapse.
const ExpirySkew = time.Minute

// refreshTimeout bounds a shared refresh, which runs detached from any single caller.
const refreshTimeout = 30 * time.Second

// Manager stores, refreshes and removes platform tokens.
type Manager struct {
	tokens   *repositories.TokenRepository
	info     *repositories.DocumentRepository[models.Info]
	registry *services.Registry
	logger   *log.Logger
	now      func() time.Time
	group    singleflight.Group
}

// NewManager creates a Manager over the token and account info repositories.
func NewManager(repos *repositories.Repositories, registry *services.Registry, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &Manager{
		tokens:   repos.Tokens,
		info:     repos.Info,
		registry: registry,
		logger:   shared.WithLogger(logger, "component", "tokens"),
		now:      time.Now,
	}
}

// Get returns the stored token or [shared.ErrTokenNotFound].
func (m *Manager) Get(ctx context.Context, uid string, p models.Platform) (*models.Token, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid", shared.ErrMissingArgument)
	}
	return m.tokens.Get(ctx, uid, p)
}

// Save replaces the stored token for (token.UID, token.Platform).
func (m *Manager) Save(ctx context.Context, token models.Token) error {
	return m.tokens.Save(ctx, token)
}

// Delete removes one token. Removing an absent token succeeds.
func (m *Manager) Delete(ctx context.Context, uid string, p models.Platform) error {
	return m.tokens.Delete(ctx, uid, p)
}

// DeleteAll removes every token for uid in one atomic batch.
func (m *Manager) DeleteAll(ctx context.Context, uid string) ([]models.Platform, error) {
	return m.tokens.DeleteAll(ctx, uid)
}

// AuthURL returns the URL the user visits to grant access on p.
func (m *Manager) AuthURL(p models.Platform, state string) (string, error) {
	adapter, err := m.registry.For(p)
	if err != nil {
		return "", err
	}
	return adapter.AuthURL(state)
}

// Link exchanges code for a token, stores it and records p as connected on the account.
func (m *Manager) Link(ctx context.Context, uid string, p models.Platform, code string) (*models.Token, error) {
	if uid == "" || code == "" {
		return nil, fmt.Errorf("%w: uid and code", shared.ErrMissingArgument)
	}

	adapter, err := m.registry.For(p)
	if err != nil {
		return nil, err
	}

	token, err := adapter.ExchangeCode(ctx, uid, code)
	if err != nil {
		return nil, err
	}
	token.UID, token.Platform = uid, p

	if err := m.tokens.Save(ctx, *token); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}
	if err := m.updateInfo(ctx, uid, func(info *models.Info) bool { return info.Connect(p) }); err != nil {
		return nil, err
	}

	m.logger.Info("platform linked", "uid", uid, "platform", p)
	return token, nil
}

// Unlink deletes the token for p and removes p from the connected platforms.
func (m *Manager) Unlink(ctx context.Context, uid string, p models.Platform) error {
	if uid == "" {
		return fmt.Errorf("%w: uid", shared.ErrMissingArgument)
	}
	if !p.Valid() {
		return fmt.Errorf("%w: %v", shared.ErrUnknownPlatform, p)
	}

	if err := m.tokens.Delete(ctx, uid, p); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if err := m.updateInfo(ctx, uid, func(info *models.Info) bool { return info.Disconnect(p) }); err != nil {
		return err
	}

	m.logger.Info("platform unlinked", "uid", uid, "platform", p)
	return nil
}

// UnlinkAll deletes every token for uid and clears the connected platforms.
func (m *Manager) UnlinkAll(ctx context.Context, uid string) ([]models.Platform, error) {
	if uid == "" {
		return nil, fmt.Errorf("%w: uid", shared.ErrMissingArgument)
	}

	removed, err := m.tokens.DeleteAll(ctx, uid)
	if err != nil {
		return nil, err
	}
	err = m.updateInfo(ctx, uid, func(info *models.Info) bool {
		changed := false
		for _, p := range removed {
			changed = info.Disconnect(p) || changed
		}
		return changed
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("all platforms unlinked", "uid", uid, "count", len(removed))
	return removed, nil
}

// updateInfo applies fn to the account info, creating it when absent. Nothing is written when fn reports no change.
func (m *Manager) updateInfo(ctx context.Context, uid string, fn func(*models.Info) bool) error {
	info, err := m.info.Get(ctx, uid)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		fresh := models.NewInfo(uid)
		info = &fresh
	case err != nil:
		return fmt.Errorf("failed to load account info: %w", err)
	}

	if !fn(info) {
		return nil
	}
	if err := m.info.Save(ctx, uid, *info); err != nil {
		return fmt.Errorf("failed to save account info: %w", err)
	}
	return nil
}

// EnsureFresh returns a usable access token for (uid, p), refreshing it through the platform when
// it has expired. refreshed reports whether a refresh happened. A refresh token the platform
// rejects yields [shared.ErrReauthRequired] and leaves the stored token untouched.
func (m *Manager) EnsureFresh(ctx context.Context, uid string, p models.Platform) (token *models.Token, refreshed bool, err error) {
	token, err = m.Get(ctx, uid, p)
	if err != nil {
		return nil, false, err
	}
	if !IsExpired(*token, m.now()) {
		return token, false, nil
	}

	type outcome struct {
		token     *models.Token
		refreshed bool
	}

	ch := m.group.DoChan(uid+"/"+p.String(), func() (any, error) {
		// Every waiter shares this call; the caller that started it may go away first.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		// A concurrent caller may have refreshed while this one waited.
		current, err := m.tokens.Get(rctx, uid, p)
		if err != nil {
			return nil, err
		}
		if !IsExpired(*current, m.now()) {
			return outcome{token: current}, nil
		}

		next, err := m.refresh(rctx, *current)
		if err != nil {
			return nil, err
		}
		return outcome{token: next, refreshed: true}, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		out := res.Val.(outcome)
		return out.token, out.refreshed, nil
	}
}

// AccessToken returns only the access token string of [Manager.EnsureFresh].
func (m *Manager) AccessToken(ctx context.Context, uid string, p models.Platform) (string, error) {
	token, _, err := m.EnsureFresh(ctx, uid, p)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

func (m *Manager) refresh(ctx context.Context, current models.Token) (*models.Token, error) {
	adapter, err := m.registry.For(current.Platform)
	if err != nil {
		return nil, err
	}

	logger := m.logger.With("uid", current.UID, "platform", current.Platform)
	if current.RefreshToken == "" {
		logger.Info("no refresh token stored")
		metrics.TokenRefreshTotal.WithLabelValues(current.Platform.String(), metrics.OutcomeReauth).Inc()
		return nil, fmt.Errorf("%w: %s has no refresh token", shared.ErrReauthRequired, current.Platform)
	}

	fresh, ok, err := adapter.RefreshAccessToken(ctx, current.RefreshToken)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues(current.Platform.String(), metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("failed to refresh %s token: %w", current.Platform, err)
	}
	if !ok || fresh == nil {
		logger.Info("refresh token rejected, re-authentication required")
		metrics.TokenRefreshTotal.WithLabelValues(current.Platform.String(), metrics.OutcomeReauth).Inc()
		return nil, fmt.Errorf("%w: %s", shared.ErrReauthRequired, current.Platform)
	}

	next := current
	next.AccessToken = fresh.AccessToken
	next.ExpiresAt = fresh.Expiry
	if fresh.RefreshToken != "" {
		next.RefreshToken = fresh.RefreshToken
	}

	if err := m.tokens.Save(ctx, next); err != nil {
		metrics.TokenRefreshTotal.WithLabelValues(current.Platform.String(), metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("failed to save refreshed token: %w", err)
	}

	metrics.TokenRefreshTotal.WithLabelValues(current.Platform.String(), metrics.OutcomeOK).Inc()
	logger.Info("access token refreshed")
	return &next, nil
}

// IsExpired reports whether token must be refreshed before use at now.
//
// A stored ExpiresAt wins. Otherwise the access token is decoded, without verification, for an
// exp claim. A token that does not decode or carries no exp counts as expired.
func IsExpired(token models.Token, now time.Time) bool {
	if !token.ExpiresAt.IsZero() {
		return !now.Before(token.ExpiresAt.Add(-ExpirySkew))
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token.AccessToken, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return !now.Before(exp.Add(-ExpirySkew))
}

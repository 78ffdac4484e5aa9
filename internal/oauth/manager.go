// Package oauth manages stored provider credentials: it loads them, keeps
// access tokens fresh, and hands out per-call accounts instead of a shared
// client.
package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/daysync/daysync/internal"
)

// refreshMargin is how far ahead of expiry the manager refreshes. oauth2's
// own margin is shorter and the provider occasionally rejects tokens right
// at the edge.
const refreshMargin = 2 * time.Minute

// TokenStore persists one credential record per user.
type TokenStore interface {
	Credential(ctx context.Context, userID string) (*internal.Credential, error)
	SaveCredential(ctx context.Context, userID string, cred *internal.Credential) error
}

// Refresher exchanges a refresh token for a fresh credential.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*internal.Credential, error)
}

type Manager struct {
	store    TokenStore
	provider Refresher
	logger   *slog.Logger

	now func() time.Time
}

func NewManager(store TokenStore, provider Refresher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// Account returns a ready-to-use account for the user, refreshing the
// stored credential when it is expired or about to expire. A failed refresh
// is logged and the stale credential is returned anyway: the downstream
// provider call will surface its own invalid-grant signal, which callers
// treat as "reconnect required".
func (m *Manager) Account(ctx context.Context, userID string) (*internal.Account, error) {
	cred, err := m.store.Credential(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("oauth: loading credential: %w", err)
	}
	if cred == nil {
		return nil, internal.ErrNotConnected
	}

	if cred.Expired(m.now(), refreshMargin) && cred.RefreshToken != "" {
		fresh, err := m.provider.RefreshToken(ctx, cred.RefreshToken)
		if err != nil {
			m.logger.Warn("token refresh failed, continuing with stored token",
				"user_id", userID, "err", err)
		} else {
			cred.AccessToken = fresh.AccessToken
			cred.Expiry = fresh.Expiry
			// The provider may rotate the refresh token; never replace a
			// present one with an absent one.
			if fresh.RefreshToken != "" {
				cred.RefreshToken = fresh.RefreshToken
			}
			if fresh.Scope != "" {
				cred.Scope = fresh.Scope
			}
			if err := m.store.SaveCredential(ctx, userID, cred); err != nil {
				return nil, fmt.Errorf("oauth: saving refreshed credential: %w", err)
			}
			m.logger.Debug("token refreshed", "user_id", userID, "expiry", cred.Expiry)
		}
	}

	return &internal.Account{UserID: userID, Credential: *cred}, nil
}

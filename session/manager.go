package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/storage"
)

// Config controls refresh-slot lifetime and the reuse policy.
type Config struct {
	RefreshTTL time.Duration
	// ReuseDetection revokes every slot of a user when a refresh token that was
	// already rotated away is presented again.
	ReuseDetection bool
	Now            func() time.Time
}

// Manager owns refresh-token slots and mints the access tokens paired with them.
type Manager struct {
	store  storage.Store
	access *jwt.Manager
	config Config
}

// NewManager validates cfg against the access-token lifetime and returns a Manager.
func NewManager(store storage.Store, access *jwt.Manager, cfg Config) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session: store is required")
	}
	if access == nil {
		return nil, errors.New("session: access token manager is required")
	}
	if cfg.RefreshTTL <= access.TTL() {
		return nil, errors.New("session: refresh TTL must exceed access TTL")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{store: store, access: access, config: cfg}, nil
}

// CreateSession opens a new slot for userID.
func (m *Manager) CreateSession(ctx context.Context, userID string) (*Session, error) {
	raw, err := internal.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	now := m.config.Now()
	rec := &storage.RefreshToken{
		ID:        internal.NewID(),
		UserID:    userID,
		TokenHash: internal.HashToken(raw),
		ExpiresAt: now.Add(m.config.RefreshTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.RefreshTokens().Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return m.issue(rec, raw)
}

// FindByHash digests raw and returns the unrevoked slot carrying it. Expiry
// is not checked here.
func (m *Manager) FindByHash(ctx context.Context, raw string) (*storage.RefreshToken, error) {
	if raw == "" {
		return nil, ErrNotFound
	}
	rec, err := m.store.RefreshTokens().FindActiveByHash(ctx, internal.HashToken(raw))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	return rec, nil
}

// Rotate replaces the secret of an already looked-up slot in place. The
// previous raw token stops working as soon as this returns.
func (m *Manager) Rotate(ctx context.Context, rec *storage.RefreshToken) (*Session, error) {
	now := m.config.Now()
	if rec.RevokedAt != nil {
		return nil, ErrRevoked
	}
	if !now.Before(rec.ExpiresAt) {
		return nil, ErrExpired
	}

	raw, err := internal.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	newHash := internal.HashToken(raw)
	expiresAt := now.Add(m.config.RefreshTTL)

	err = m.store.RefreshTokens().Rotate(ctx, rec.ID, rec.TokenHash, newHash, expiresAt, now)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	rotated := *rec
	rotated.PreviousTokenHash = rec.TokenHash
	rotated.TokenHash = newHash
	rotated.ExpiresAt = expiresAt
	rotated.UpdatedAt = now
	return m.issue(&rotated, raw)
}

// Refresh looks up raw, rejects missing or expired slots, and rotates.
func (m *Manager) Refresh(ctx context.Context, raw string) (*Session, error) {
	rec, err := m.FindByHash(ctx, raw)
	if errors.Is(err, ErrNotFound) && m.config.ReuseDetection {
		return nil, m.detectReuse(ctx, raw)
	}
	if err != nil {
		return nil, err
	}
	return m.Rotate(ctx, rec)
}

// Revoke stamps revoked_at on slot id. Revoking an already revoked slot is a
// no-op; an unknown id yields ErrNotFound.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	err := m.store.RefreshTokens().Revoke(ctx, id, m.config.Now())
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	if _, err := m.store.RefreshTokens().FindByID(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load refresh token: %w", err)
	}
	return nil
}

// Logout revokes the slot that currently carries raw. An unknown or already
// revoked token yields ErrNotFound.
func (m *Manager) Logout(ctx context.Context, raw string) error {
	rec, err := m.FindByHash(ctx, raw)
	if err != nil {
		return err
	}
	return m.Revoke(ctx, rec.ID)
}

// RevokeAll revokes every live slot of userID and reports how many it touched.
func (m *Manager) RevokeAll(ctx context.Context, userID string) (int64, error) {
	n, err := m.store.RefreshTokens().RevokeAllForUser(ctx, userID, m.config.Now())
	if err != nil {
		return 0, fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return n, nil
}

// ValidateAccess verifies an access token and returns its claims.
func (m *Manager) ValidateAccess(token string) (*jwt.AccessClaims, error) {
	return m.access.ParseAccess(token)
}

func (m *Manager) detectReuse(ctx context.Context, raw string) error {
	if raw == "" {
		return ErrNotFound
	}
	rec, err := m.store.RefreshTokens().FindByPreviousHash(ctx, internal.HashToken(raw))
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load rotated refresh token: %w", err)
	}
	if _, err := m.RevokeAll(ctx, rec.UserID); err != nil {
		return err
	}
	return ErrReuseDetected
}

func (m *Manager) issue(rec *storage.RefreshToken, raw string) (*Session, error) {
	access, accessExp, err := m.access.CreateAccess(rec.UserID, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return &Session{
		ID:               rec.ID,
		UserID:           rec.UserID,
		AccessToken:      access,
		RefreshToken:     raw,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}

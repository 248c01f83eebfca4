package verification

import (
	"context"
	"crypto/hmac"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/storage"
)

const minSecretBytes = 32

// Config controls token signing and the two independent expiry windows.
type Config struct {
	Secret []byte
	// TokenTTL bounds the persisted row (expires_at).
	TokenTTL time.Duration
	// FreshnessWindow bounds the timestamp embedded in the token itself.
	FreshnessWindow time.Duration
	Now             func() time.Time
}

// Engine issues and confirms email-ownership tokens of the form
//
//	vr_<32 alphanumerics>_<unix seconds>_<hex HMAC-SHA256>
type Engine struct {
	store  storage.Store
	config Config
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(store storage.Store, cfg Config) (*Engine, error) {
	if store == nil {
		return nil, errors.New("verification: store is required")
	}
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("verification: secret must be at least %d bytes", minSecretBytes)
	}
	if cfg.TokenTTL <= 0 || cfg.FreshnessWindow <= 0 {
		return nil, errors.New("verification: token TTL and freshness window must be > 0")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{store: store, config: cfg}, nil
}

// Issue mints a token for userID and persists it.
func (e *Engine) Issue(ctx context.Context, userID string) (*storage.EmailVerificationToken, error) {
	random, err := internal.RandomAlphanumeric(randomLength)
	if err != nil {
		return nil, fmt.Errorf("generate verification token: %w", err)
	}

	now := e.config.Now()
	ts := now.Unix()
	row := &storage.EmailVerificationToken{
		ID:        internal.NewID(),
		UserID:    userID,
		Token:     formatToken(random, ts, sign(e.config.Secret, userID, ts)),
		ExpiresAt: now.Add(e.config.TokenTTL),
		CreatedAt: now,
	}
	if err := e.store.EmailVerifications().Create(ctx, row); err != nil {
		return nil, fmt.Errorf("store verification token: %w", err)
	}
	return row, nil
}

// Validate checks shape, signature and embedded freshness, and then requires
// an unused stored row for the same user whose own expiry has not passed.
func (e *Engine) Validate(ctx context.Context, userID, token string) (*storage.EmailVerificationToken, error) {
	return e.validate(ctx, e.store, userID, token)
}

// Confirm validates the token and marks it used. A second confirmation of the
// same token fails with ErrInvalidToken.
func (e *Engine) Confirm(ctx context.Context, userID, token string) error {
	return e.store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		if _, err := e.validate(ctx, tx, userID, token); err != nil {
			return err
		}
		err := tx.EmailVerifications().MarkUsed(ctx, userID, token, e.config.Now())
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidToken
		}
		if err != nil {
			return fmt.Errorf("consume verification token: %w", err)
		}
		return nil
	})
}

func (e *Engine) validate(ctx context.Context, store storage.Store, userID, token string) (*storage.EmailVerificationToken, error) {
	parsed, err := parseToken(token)
	if err != nil {
		return nil, err
	}

	expected := sign(e.config.Secret, userID, parsed.timestamp)
	if !hmac.Equal(expected, parsed.digest) {
		return nil, ErrInvalidToken
	}

	now := e.config.Now()
	if now.Sub(time.Unix(parsed.timestamp, 0)) > e.config.FreshnessWindow {
		return nil, ErrExpiredToken
	}

	row, err := store.EmailVerifications().FindUnused(ctx, userID, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load verification token: %w", err)
	}
	if !now.Before(row.ExpiresAt) {
		return nil, ErrExpiredToken
	}
	return row, nil
}

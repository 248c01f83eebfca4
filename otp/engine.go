package otp

import (
	"context"
	"crypto/subtle"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/storage"
	potp "github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Config controls code derivation and lifetime.
type Config struct {
	// CodeTTL is how long an issued code stays redeemable, independent of the
	// TOTP step it was derived from.
	CodeTTL time.Duration
	Digits  int
	Period  uint
	Now     func() time.Time
}

// DefaultConfig returns six-digit, 30-second-step codes valid for five minutes.
func DefaultConfig() Config {
	return Config{
		CodeTTL: 5 * time.Minute,
		Digits:  6,
		Period:  30,
		Now:     time.Now,
	}
}

// Engine issues TOTP-seeded one-time codes and persists each as a single-use row.
type Engine struct {
	store  storage.Store
	config Config
}

// NewEngine validates cfg and returns an Engine.
func NewEngine(store storage.Store, cfg Config) (*Engine, error) {
	if store == nil {
		return nil, errors.New("otp: store is required")
	}
	if cfg.CodeTTL <= 0 {
		return nil, errors.New("otp: code TTL must be > 0")
	}
	if cfg.Digits < 6 || cfg.Digits > 8 {
		return nil, errors.New("otp: digits must be between 6 and 8")
	}
	if cfg.Period == 0 {
		return nil, errors.New("otp: period must be > 0")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{store: store, config: cfg}, nil
}

// GenerateSecret returns a fresh 256-bit seed, base64url encoded.
func (e *Engine) GenerateSecret() (string, error) {
	secret, err := internal.NewOTPSecret()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return secret, nil
}

// Derive evaluates RFC 6238 (HMAC-SHA1) at the given instant. The bytes of
// secret are used as the HMAC key.
func Derive(secret string, at time.Time, digits int, period uint) (string, error) {
	key := base32.StdEncoding.EncodeToString([]byte(secret))
	code, err := totp.GenerateCodeCustom(key, at, totp.ValidateOpts{
		Period:    period,
		Digits:    potp.Digits(digits),
		Algorithm: potp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return code, nil
}

// Issue derives a code from secret at the current instant and stores it with
// its own expiry. The stored value is what the user receives; it is never
// recomputed from the time step.
func (e *Engine) Issue(ctx context.Context, userID, secret string) (*storage.OTPCode, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: empty secret", ErrGeneration)
	}

	now := e.config.Now()
	code, err := Derive(secret, now, e.config.Digits, e.config.Period)
	if err != nil {
		return nil, err
	}

	row := &storage.OTPCode{
		UserID:    userID,
		Code:      code,
		ExpiresAt: now.Add(e.config.CodeTTL),
		CreatedAt: now,
	}
	if err := e.store.OTPCodes().Create(ctx, row); err != nil {
		return nil, fmt.Errorf("store otp code: %w", err)
	}
	return row, nil
}

// Validate consumes one active code equal to submitted. Every active row is
// compared in constant time; the first match that can still be marked used
// wins. No active rows yields ErrNotFound, no match yields ErrInvalidCode.
func (e *Engine) Validate(ctx context.Context, userID, submitted string) error {
	submitted = strings.TrimSpace(submitted)

	return e.store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		now := e.config.Now()
		active, err := tx.OTPCodes().ListActive(ctx, userID, now)
		if err != nil {
			return fmt.Errorf("list otp codes: %w", err)
		}
		if len(active) == 0 {
			return ErrNotFound
		}

		matches := make([]int64, 0, 1)
		for _, row := range active {
			if subtle.ConstantTimeCompare([]byte(row.Code), []byte(submitted)) == 1 {
				matches = append(matches, row.ID)
			}
		}

		for _, id := range matches {
			err := tx.OTPCodes().MarkUsed(ctx, id, now)
			if err == nil {
				return nil
			}
			if !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("consume otp code: %w", err)
			}
		}
		return ErrInvalidCode
	})
}

package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup or a compare-and-set update matches no row.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("storage: conflict")
)

// User is the identity row. Email is unique and stored normalized.
type User struct {
	ID              string
	Email           string
	OTPSecret       string
	IsEmailVerified bool
	Is2FAEnabled    bool
	LastLoginAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Credential holds the password hash for exactly one user.
type Credential struct {
	ID           string
	UserID       string
	PasswordHash string
	Algorithm    string
	UpdatedAt    time.Time
}

// RefreshToken is one session slot. Rotation rewrites TokenHash and ExpiresAt
// in place; PreviousTokenHash keeps the digest the last rotation replaced.
type RefreshToken struct {
	ID                string
	UserID            string
	TokenHash         string
	PreviousTokenHash string
	ExpiresAt         time.Time
	RevokedAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OTPCode is a delivered one-time code. Several may be active per user.
type OTPCode struct {
	ID        int64
	UserID    string
	Code      string
	ExpiresAt time.Time
	IsUsed    bool
	UsedAt    *time.Time
	CreatedAt time.Time
}

// EmailVerificationToken is a persisted email-ownership token.
type EmailVerificationToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// UserRepository persists users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdateEmail(ctx context.Context, id, email string, at time.Time) error
	SetEmailVerified(ctx context.Context, id string, verified bool, at time.Time) error
	SetLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// CredentialRepository persists password credentials.
type CredentialRepository interface {
	Create(ctx context.Context, c *Credential) error
	FindByUserID(ctx context.Context, userID string) (*Credential, error)
	// Replace overwrites hash and algorithm for the user's credential.
	Replace(ctx context.Context, userID, hash, algorithm string, at time.Time) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// RefreshTokenRepository persists session slots.
type RefreshTokenRepository interface {
	Create(ctx context.Context, t *RefreshToken) error
	FindByID(ctx context.Context, id string) (*RefreshToken, error)
	// FindActiveByHash ignores revoked slots. Expiry is left to the caller.
	FindActiveByHash(ctx context.Context, hash string) (*RefreshToken, error)
	FindByPreviousHash(ctx context.Context, hash string) (*RefreshToken, error)
	// Rotate swaps oldHash for newHash on an unrevoked slot, or returns ErrNotFound.
	Rotate(ctx context.Context, id, oldHash, newHash string, expiresAt, at time.Time) error
	// Revoke stamps revoked_at on an unrevoked slot, or returns ErrNotFound.
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

// OTPCodeRepository persists one-time codes.
type OTPCodeRepository interface {
	Create(ctx context.Context, c *OTPCode) error
	// ListActive returns unused, unexpired codes, newest first.
	ListActive(ctx context.Context, userID string, now time.Time) ([]OTPCode, error)
	// MarkUsed consumes an unused code, or returns ErrNotFound.
	MarkUsed(ctx context.Context, id int64, at time.Time) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// EmailVerificationRepository persists email-ownership tokens.
type EmailVerificationRepository interface {
	Create(ctx context.Context, t *EmailVerificationToken) error
	// FindUnused looks up an unused row by exact (user, token) match.
	FindUnused(ctx context.Context, userID, token string) (*EmailVerificationToken, error)
	// MarkUsed consumes an unused row, or returns ErrNotFound.
	MarkUsed(ctx context.Context, userID, token string, at time.Time) error
	// InvalidateForUser consumes every unused row of userID and returns how
	// many were consumed.
	InvalidateForUser(ctx context.Context, userID string, at time.Time) (int64, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

// Store groups the repositories. Inside WithTx every repository handed to fn
// is bound to one transaction, committed when fn returns nil and rolled back
// otherwise.
type Store interface {
	Users() UserRepository
	Credentials() CredentialRepository
	RefreshTokens() RefreshTokenRepository
	OTPCodes() OTPCodeRepository
	EmailVerifications() EmailVerificationRepository
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

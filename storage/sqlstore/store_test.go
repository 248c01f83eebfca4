package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DialectSQLite, filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s storage.Store, id, email string) *storage.User {
	t.Helper()
	u := &storage.User{
		ID:           id,
		Email:        email,
		OTPSecret:    "secret-" + id,
		Is2FAEnabled: true,
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func TestUsers_CreateFindAndConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "u1", "a@example.com")

	got, err := s.Users().FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.False(t, got.IsEmailVerified)
	assert.True(t, got.Is2FAEnabled)
	assert.Nil(t, got.LastLoginAt)
	assert.True(t, got.CreatedAt.Equal(t0))

	err = s.Users().Create(ctx, &storage.User{ID: "u2", Email: "a@example.com", OTPSecret: "x", CreatedAt: t0, UpdatedAt: t0})
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = s.Users().FindByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUsers_Updates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "a@example.com")

	require.NoError(t, s.Users().SetEmailVerified(ctx, "u1", true, t0.Add(time.Minute)))
	require.NoError(t, s.Users().SetLastLogin(ctx, "u1", t0.Add(2*time.Minute)))

	got, err := s.Users().FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.IsEmailVerified)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, got.LastLoginAt.Equal(t0.Add(2*time.Minute)))

	require.NoError(t, s.Users().UpdateEmail(ctx, "u1", "b@example.com", t0.Add(3*time.Minute)))
	got, err = s.Users().FindByEmail(ctx, "b@example.com")
	require.NoError(t, err)
	assert.False(t, got.IsEmailVerified, "changing email resets verification")

	assert.ErrorIs(t, s.Users().SetLastLogin(ctx, "missing", t0), storage.ErrNotFound)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		seedUser(t, tx, "u1", "a@example.com")
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Users().FindByID(ctx, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWithTx_CommitAndNested(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		seedUser(t, tx, "u1", "a@example.com")
		return tx.WithTx(ctx, func(ctx context.Context, inner storage.Store) error {
			return inner.Credentials().Create(ctx, &storage.Credential{
				ID: "c1", UserID: "u1", PasswordHash: "h", Algorithm: "bcrypt", UpdatedAt: t0,
			})
		})
	})
	require.NoError(t, err)

	cred, err := s.Credentials().FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "bcrypt", cred.Algorithm)
}

func TestCredentials_ReplaceAndUniquePerUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "a@example.com")

	require.NoError(t, s.Credentials().Create(ctx, &storage.Credential{ID: "c1", UserID: "u1", PasswordHash: "h1", Algorithm: "bcrypt", UpdatedAt: t0}))
	err := s.Credentials().Create(ctx, &storage.Credential{ID: "c2", UserID: "u1", PasswordHash: "h2", Algorithm: "bcrypt", UpdatedAt: t0})
	assert.ErrorIs(t, err, storage.ErrConflict)

	require.NoError(t, s.Credentials().Replace(ctx, "u1", "h3", "argon2id", t0.Add(time.Hour)))
	cred, err := s.Credentials().FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "h3", cred.PasswordHash)
	assert.Equal(t, "argon2id", cred.Algorithm)
}

func TestRefreshTokens_RotateRevoke(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "a@example.com")
	repo := s.RefreshTokens()

	require.NoError(t, repo.Create(ctx, &storage.RefreshToken{
		ID: "r1", UserID: "u1", TokenHash: "h1", ExpiresAt: t0.Add(time.Hour), CreatedAt: t0, UpdatedAt: t0,
	}))

	got, err := repo.FindActiveByHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
	assert.Empty(t, got.PreviousTokenHash)

	require.NoError(t, repo.Rotate(ctx, "r1", "h1", "h2", t0.Add(2*time.Hour), t0.Add(time.Minute)))
	assert.ErrorIs(t, repo.Rotate(ctx, "r1", "h1", "h3", t0.Add(2*time.Hour), t0), storage.ErrNotFound, "stale hash must lose the race")

	_, err = repo.FindActiveByHash(ctx, "h1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	rotated, err := repo.FindActiveByHash(ctx, "h2")
	require.NoError(t, err)
	assert.Equal(t, "r1", rotated.ID)
	assert.True(t, rotated.ExpiresAt.Equal(t0.Add(2*time.Hour)))

	prev, err := repo.FindByPreviousHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "r1", prev.ID)

	require.NoError(t, repo.Revoke(ctx, "r1", t0.Add(3*time.Minute)))
	assert.ErrorIs(t, repo.Revoke(ctx, "r1", t0.Add(4*time.Minute)), storage.ErrNotFound)

	_, err = repo.FindActiveByHash(ctx, "h2")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	byID, err := repo.FindByID(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, byID.RevokedAt)
	assert.True(t, byID.RevokedAt.Equal(t0.Add(3*time.Minute)))
}

func TestRefreshTokens_RevokeAllForUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "a@example.com")
	repo := s.RefreshTokens()

	for _, id := range []string{"r1", "r2", "r3"} {
		require.NoError(t, repo.Create(ctx, &storage.RefreshToken{
			ID: id, UserID: "u1", TokenHash: "h-" + id, ExpiresAt: t0.Add(time.Hour), CreatedAt: t0, UpdatedAt: t0,
		}))
	}
	require.NoError(t, repo.Revoke(ctx, "r1", t0))

	n, err := repo.RevokeAllForUser(ctx, "u1", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestOTPCodes_ListActiveAndConsume(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "a@example.com")
	repo := s.OTPCodes()

	fresh := &storage.OTPCode{UserID: "u1", Code: "111111", ExpiresAt: t0.Add(5 * time.Minute), CreatedAt: t0}
	expired := &storage.OTPCode{UserID: "u1", Code: "222222", ExpiresAt: t0.Add(-time.Minute), CreatedAt: t0.Add(-6 * time.Minute)}
	newer := &storage.OTPCode{UserID: "u1", Code: "333333", ExpiresAt: t0.Add(6 * time.Minute), CreatedAt: t0.Add(time.Minute)}
	for _, c := range []*storage.OTPCode{fresh, expired, newer} {
		require.NoError(t, repo.Create(ctx, c))
		assert.NotZero(t, c.ID)
	}

	active, err := repo.ListActive(ctx, "u1", t0)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "333333", active[0].Code, "newest first")
	assert.Equal(t, "111111", active[1].Code)

	require.NoError(t, repo.MarkUsed(ctx, fresh.ID, t0))
	assert.ErrorIs(t, repo.MarkUsed(ctx, fresh.ID, t0), storage.ErrNotFound)

	active, err = repo.ListActive(ctx, "u1", t0)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, newer.ID, active[0].ID)
}

func TestEmailVerifications_ConsumeOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "a@example.com")
	repo := s.EmailVerifications()

	require.NoError(t, repo.Create(ctx, &storage.EmailVerificationToken{
		ID: "v1", UserID: "u1", Token: "tok-1", ExpiresAt: t0.Add(24 * time.Hour), CreatedAt: t0,
	}))
	require.NoError(t, repo.Create(ctx, &storage.EmailVerificationToken{
		ID: "v2", UserID: "u1", Token: "tok-2", ExpiresAt: t0.Add(24 * time.Hour), CreatedAt: t0,
	}))

	got, err := repo.FindUnused(ctx, "u1", "tok-2")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.ID)

	_, err = repo.FindUnused(ctx, "u2", "tok-2")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, repo.MarkUsed(ctx, "u1", "tok-2", t0))
	assert.ErrorIs(t, repo.MarkUsed(ctx, "u1", "tok-2", t0), storage.ErrNotFound)

	_, err = repo.FindUnused(ctx, "u1", "tok-2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repo.FindUnused(ctx, "u1", "tok-1")
	assert.NoError(t, err, "other rows stay valid")
}

func TestEmailVerifications_InvalidateForUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "a@example.com")
	seedUser(t, s, "u2", "b@example.com")
	repo := s.EmailVerifications()

	for _, v := range []struct{ id, user, token string }{
		{"v1", "u1", "tok-1"}, {"v2", "u1", "tok-2"}, {"v3", "u2", "tok-3"},
	} {
		require.NoError(t, repo.Create(ctx, &storage.EmailVerificationToken{
			ID: v.id, UserID: v.user, Token: v.token, ExpiresAt: t0.Add(24 * time.Hour), CreatedAt: t0,
		}))
	}
	require.NoError(t, repo.MarkUsed(ctx, "u1", "tok-1", t0))

	n, err := repo.InvalidateForUser(ctx, "u1", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "already used rows are not counted")

	_, err = repo.FindUnused(ctx, "u1", "tok-2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repo.FindUnused(ctx, "u2", "tok-3")
	assert.NoError(t, err, "other users keep their tokens")
}

func TestUsers_DeleteCascadesDependents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "u1", "a@example.com")

	require.NoError(t, s.RefreshTokens().Create(ctx, &storage.RefreshToken{
		ID: "r1", UserID: "u1", TokenHash: "h1", ExpiresAt: t0.Add(time.Hour), CreatedAt: t0, UpdatedAt: t0,
	}))

	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		if err := tx.RefreshTokens().DeleteByUserID(ctx, "u1"); err != nil {
			return err
		}
		return tx.Users().Delete(ctx, "u1")
	}))

	_, err := s.RefreshTokens().FindByID(ctx, "r1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.Users().Delete(ctx, "u1"), storage.ErrNotFound)
}

package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/MrEthical07/authcore/storage"
)

type refreshTokenRepo struct {
	db DBTX
}

const refreshTokenColumns = `id, user_id, token_hash, previous_token_hash, expires_at, revoked_at, created_at, updated_at`

func (r *refreshTokenRepo) Create(ctx context.Context, t *storage.RefreshToken) error {
	const q = `
		INSERT INTO auth_refresh_tokens (` + refreshTokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, q,
		t.ID, t.UserID, t.TokenHash, nullString(t.PreviousTokenHash),
		toMillis(t.ExpiresAt), toNullMillis(t.RevokedAt), toMillis(t.CreatedAt), toMillis(t.UpdatedAt),
	)
	if err != nil {
		return wrapWrite("insert refresh token", err)
	}
	return nil
}

func (r *refreshTokenRepo) FindByID(ctx context.Context, id string) (*storage.RefreshToken, error) {
	const q = `SELECT ` + refreshTokenColumns + ` FROM auth_refresh_tokens WHERE id = $1`
	return r.scanOne(ctx, "select refresh token by id", q, id)
}

func (r *refreshTokenRepo) FindActiveByHash(ctx context.Context, hash string) (*storage.RefreshToken, error) {
	const q = `SELECT ` + refreshTokenColumns + ` FROM auth_refresh_tokens WHERE token_hash = $1 AND revoked_at IS NULL`
	return r.scanOne(ctx, "select refresh token by hash", q, hash)
}

func (r *refreshTokenRepo) FindByPreviousHash(ctx context.Context, hash string) (*storage.RefreshToken, error) {
	const q = `SELECT ` + refreshTokenColumns + ` FROM auth_refresh_tokens WHERE previous_token_hash = $1`
	return r.scanOne(ctx, "select refresh token by previous hash", q, hash)
}

func (r *refreshTokenRepo) Rotate(ctx context.Context, id, oldHash, newHash string, expiresAt, at time.Time) error {
	const q = `
		UPDATE auth_refresh_tokens
		SET token_hash = $3, previous_token_hash = $2, expires_at = $4, updated_at = $5
		WHERE id = $1 AND token_hash = $2 AND revoked_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, q, id, oldHash, newHash, toMillis(expiresAt), toMillis(at))
	return expectOne("rotate refresh token", res, err)
}

func (r *refreshTokenRepo) Revoke(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE auth_refresh_tokens SET revoked_at = $2, updated_at = $2 WHERE id = $1 AND revoked_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, id, toMillis(at))
	return expectOne("revoke refresh token", res, err)
}

func (r *refreshTokenRepo) RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	const q = `UPDATE auth_refresh_tokens SET revoked_at = $2, updated_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, userID, toMillis(at))
	if err != nil {
		return 0, wrapWrite("revoke user refresh tokens", err)
	}
	return res.RowsAffected()
}

func (r *refreshTokenRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM auth_refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return wrapWrite("delete refresh tokens", err)
	}
	return nil
}

func (r *refreshTokenRepo) scanOne(ctx context.Context, op, q string, arg any) (*storage.RefreshToken, error) {
	var (
		t                               storage.RefreshToken
		previous                        sql.NullString
		revokedAt                       sql.NullInt64
		expiresAt, createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, q, arg).Scan(
		&t.ID, &t.UserID, &t.TokenHash, &previous, &expiresAt, &revokedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, wrapRead(op, err)
	}
	t.PreviousTokenHash = previous.String
	t.ExpiresAt = fromMillis(expiresAt)
	t.RevokedAt = fromNullMillis(revokedAt)
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

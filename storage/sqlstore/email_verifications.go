package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/MrEthical07/authcore/storage"
)

type emailVerificationRepo struct {
	db DBTX
}

func (r *emailVerificationRepo) Create(ctx context.Context, t *storage.EmailVerificationToken) error {
	const q = `
		INSERT INTO email_verification_tokens (id, user_id, token, expires_at, used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, q,
		t.ID, t.UserID, t.Token, toMillis(t.ExpiresAt), toNullMillis(t.UsedAt), toMillis(t.CreatedAt),
	)
	if err != nil {
		return wrapWrite("insert email verification token", err)
	}
	return nil
}

func (r *emailVerificationRepo) FindUnused(ctx context.Context, userID, token string) (*storage.EmailVerificationToken, error) {
	const q = `
		SELECT id, user_id, token, expires_at, used_at, created_at
		FROM email_verification_tokens
		WHERE user_id = $1 AND token = $2 AND used_at IS NULL
	`
	var (
		t                    storage.EmailVerificationToken
		usedAt               sql.NullInt64
		expiresAt, createdAt int64
	)
	err := r.db.QueryRowContext(ctx, q, userID, token).Scan(&t.ID, &t.UserID, &t.Token, &expiresAt, &usedAt, &createdAt)
	if err != nil {
		return nil, wrapRead("select email verification token", err)
	}
	t.ExpiresAt = fromMillis(expiresAt)
	t.UsedAt = fromNullMillis(usedAt)
	t.CreatedAt = fromMillis(createdAt)
	return &t, nil
}

func (r *emailVerificationRepo) MarkUsed(ctx context.Context, userID, token string, at time.Time) error {
	const q = `
		UPDATE email_verification_tokens
		SET used_at = $3
		WHERE user_id = $1 AND token = $2 AND used_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, q, userID, token, toMillis(at))
	return expectOne("mark email verification token used", res, err)
}

func (r *emailVerificationRepo) InvalidateForUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	const q = `
		UPDATE email_verification_tokens
		SET used_at = $2
		WHERE user_id = $1 AND used_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, q, userID, toMillis(at))
	if err != nil {
		return 0, wrapWrite("invalidate email verification tokens", err)
	}
	return res.RowsAffected()
}

func (r *emailVerificationRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM email_verification_tokens WHERE user_id = $1`, userID); err != nil {
		return wrapWrite("delete email verification tokens", err)
	}
	return nil
}

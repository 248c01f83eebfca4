package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/MrEthical07/authcore/storage"
)

type otpCodeRepo struct {
	db DBTX
}

func (r *otpCodeRepo) Create(ctx context.Context, c *storage.OTPCode) error {
	const q = `
		INSERT INTO otp_codes (user_id, code, expires_at, is_used, used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, q,
		c.UserID, c.Code, toMillis(c.ExpiresAt), c.IsUsed, toNullMillis(c.UsedAt), toMillis(c.CreatedAt),
	).Scan(&c.ID)
	if err != nil {
		return wrapWrite("insert otp code", err)
	}
	return nil
}

func (r *otpCodeRepo) ListActive(ctx context.Context, userID string, now time.Time) ([]storage.OTPCode, error) {
	const q = `
		SELECT id, user_id, code, expires_at, is_used, used_at, created_at
		FROM otp_codes
		WHERE user_id = $1 AND is_used = $2 AND expires_at > $3
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, q, userID, false, toMillis(now))
	if err != nil {
		return nil, wrapRead("select active otp codes", err)
	}
	defer rows.Close()

	var out []storage.OTPCode
	for rows.Next() {
		var (
			c                    storage.OTPCode
			usedAt               sql.NullInt64
			expiresAt, createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Code, &expiresAt, &c.IsUsed, &usedAt, &createdAt); err != nil {
			return nil, wrapRead("scan otp code", err)
		}
		c.ExpiresAt = fromMillis(expiresAt)
		c.UsedAt = fromNullMillis(usedAt)
		c.CreatedAt = fromMillis(createdAt)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapRead("iterate otp codes", err)
	}
	return out, nil
}

func (r *otpCodeRepo) MarkUsed(ctx context.Context, id int64, at time.Time) error {
	const q = `UPDATE otp_codes SET is_used = $2, used_at = $3 WHERE id = $1 AND is_used = $4`
	res, err := r.db.ExecContext(ctx, q, id, true, toMillis(at), false)
	return expectOne("mark otp code used", res, err)
}

func (r *otpCodeRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE user_id = $1`, userID); err != nil {
		return wrapWrite("delete otp codes", err)
	}
	return nil
}

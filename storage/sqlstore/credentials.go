package sqlstore

import (
	"context"
	"time"

	"github.com/MrEthical07/authcore/storage"
)

type credentialRepo struct {
	db DBTX
}

func (r *credentialRepo) Create(ctx context.Context, c *storage.Credential) error {
	const q = `
		INSERT INTO credentials (id, user_id, password_hash, algorithm, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, q, c.ID, c.UserID, c.PasswordHash, c.Algorithm, toMillis(c.UpdatedAt)); err != nil {
		return wrapWrite("insert credential", err)
	}
	return nil
}

func (r *credentialRepo) FindByUserID(ctx context.Context, userID string) (*storage.Credential, error) {
	const q = `SELECT id, user_id, password_hash, algorithm, updated_at FROM credentials WHERE user_id = $1`

	var (
		c         storage.Credential
		updatedAt int64
	)
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&c.ID, &c.UserID, &c.PasswordHash, &c.Algorithm, &updatedAt); err != nil {
		return nil, wrapRead("select credential", err)
	}
	c.UpdatedAt = fromMillis(updatedAt)
	return &c, nil
}

func (r *credentialRepo) Replace(ctx context.Context, userID, hash, algorithm string, at time.Time) error {
	const q = `UPDATE credentials SET password_hash = $2, algorithm = $3, updated_at = $4 WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, q, userID, hash, algorithm, toMillis(at))
	return expectOne("replace credential", res, err)
}

func (r *credentialRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = $1`, userID); err != nil {
		return wrapWrite("delete credential", err)
	}
	return nil
}

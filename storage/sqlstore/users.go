package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/MrEthical07/authcore/storage"
)

type userRepo struct {
	db DBTX
}

const userColumns = `id, email, otp_secret, is_email_verified, is_2fa_enabled, last_login_at, created_at, updated_at`

func (r *userRepo) Create(ctx context.Context, u *storage.User) error {
	const q = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, q,
		u.ID, u.Email, u.OTPSecret, u.IsEmailVerified, u.Is2FAEnabled,
		toNullMillis(u.LastLoginAt), toMillis(u.CreatedAt), toMillis(u.UpdatedAt),
	)
	if err != nil {
		return wrapWrite("insert user", err)
	}
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*storage.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(ctx, "select user by id", q, id)
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*storage.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanOne(ctx, "select user by email", q, email)
}

func (r *userRepo) UpdateEmail(ctx context.Context, id, email string, at time.Time) error {
	const q = `UPDATE users SET email = $2, is_email_verified = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, email, false, toMillis(at))
	return expectOne("update user email", res, err)
}

func (r *userRepo) SetEmailVerified(ctx context.Context, id string, verified bool, at time.Time) error {
	const q = `UPDATE users SET is_email_verified = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, verified, toMillis(at))
	return expectOne("update user email verified", res, err)
}

func (r *userRepo) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE users SET last_login_at = $2, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, toMillis(at))
	return expectOne("update user last login", res, err)
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return expectOne("delete user", res, err)
}

func (r *userRepo) scanOne(ctx context.Context, op, q string, arg any) (*storage.User, error) {
	var (
		u                    storage.User
		lastLogin            sql.NullInt64
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.Email, &u.OTPSecret, &u.IsEmailVerified, &u.Is2FAEnabled,
		&lastLogin, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, wrapRead(op, err)
	}
	u.LastLoginAt = fromNullMillis(lastLogin)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return &u, nil
}

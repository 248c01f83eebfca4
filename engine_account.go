package authcore

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/storage"
	"go.uber.org/zap"
)

// IsEmailAvailable reports whether no user owns email.
func (e *Engine) IsEmailAvailable(ctx context.Context, email string) (bool, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return false, err
	}
	_, err = e.store.Users().FindByEmail(ctx, email)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, storage.ErrNotFound):
		return true, nil
	default:
		return false, e.internal("lookup user", err)
	}
}

// GetUser returns the public profile of userID.
func (e *Engine) GetUser(ctx context.Context, userID string) (*UserProfile, error) {
	user, err := e.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toProfile(user), nil
}

// ChangePassword verifies oldPassword, replaces the credential and revokes
// every session of the user in one transaction.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if err := e.checkPassword(newPassword); err != nil {
		return err
	}
	if _, err := e.findUser(ctx, userID); err != nil {
		return err
	}

	cred, err := e.store.Credentials().FindByUserID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return e.internal("lookup credential", err, zap.String("user_id", userID))
	}
	ok, err := e.passwords.Verify(oldPassword, cred.PasswordHash, cred.Algorithm)
	if err != nil {
		return e.internal("verify password", err, zap.String("user_id", userID))
	}
	if !ok {
		e.metrics.Inc(MetricPasswordChangeInvalidOld)
		e.emit(ctx, audit.EventPasswordChanged, userID, "", ErrInvalidCredentials)
		return ErrInvalidCredentials
	}

	hash, algorithm, err := e.hashPassword(newPassword)
	if err != nil {
		return err
	}

	now := e.now()
	var revoked int64
	err = e.store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		if err := tx.Credentials().Replace(ctx, userID, hash, algorithm, now); err != nil {
			return err
		}
		n, err := tx.RefreshTokens().RevokeAllForUser(ctx, userID, now)
		revoked = n
		return err
	})
	if err != nil {
		return e.internal("change password", err, zap.String("user_id", userID))
	}
	e.metrics.Inc(MetricPasswordChangeSuccess)
	e.emit(ctx, audit.EventPasswordChanged, userID, "", nil, "sessions_revoked", strconv.FormatInt(revoked, 10))
	return nil
}

// UpdateEmail moves userID to newEmail, marks it unverified and queues a
// confirmation for the new address. Setting the current address is a no-op.
func (e *Engine) UpdateEmail(ctx context.Context, userID, newEmail string) (*UserProfile, error) {
	email, err := normalizeEmail(newEmail)
	if err != nil {
		return nil, err
	}
	user, err := e.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Email == email {
		return toProfile(user), nil
	}

	now := e.now()
	err = e.store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		if err := tx.Users().UpdateEmail(ctx, userID, email, now); err != nil {
			return err
		}
		// Tokens mailed to the previous address must not verify the new one.
		_, err := tx.EmailVerifications().InvalidateForUser(ctx, userID, now)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrConflict):
		return nil, ErrEmailTaken
	case errors.Is(err, storage.ErrNotFound):
		return nil, ErrUserNotFound
	default:
		return nil, e.internal("update email", err, zap.String("user_id", userID))
	}
	e.metrics.Inc(MetricEmailChanged)
	e.emit(ctx, audit.EventEmailChanged, userID, email, nil, "previous_email", user.Email)

	user.Email = email
	user.IsEmailVerified = false
	user.UpdatedAt = now
	if err := e.queueConfirmation(ctx, user); err != nil {
		e.log.Warn("confirmation mail not sent after email change", zap.String("user_id", userID), zap.Error(err))
	}
	return toProfile(user), nil
}

// DeleteUser removes the user and every row that references it.
func (e *Engine) DeleteUser(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidInput
	}
	err := e.store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		if err := tx.RefreshTokens().DeleteByUserID(ctx, userID); err != nil {
			return err
		}
		if err := tx.OTPCodes().DeleteByUserID(ctx, userID); err != nil {
			return err
		}
		if err := tx.EmailVerifications().DeleteByUserID(ctx, userID); err != nil {
			return err
		}
		if err := tx.Credentials().DeleteByUserID(ctx, userID); err != nil {
			return err
		}
		return tx.Users().Delete(ctx, userID)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return e.internal("delete user", err, zap.String("user_id", userID))
	}
	e.metrics.Inc(MetricAccountDeleted)
	e.emit(ctx, audit.EventAccountDeleted, userID, "", nil)
	return nil
}

func (e *Engine) findUser(ctx context.Context, userID string) (*storage.User, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	user, err := e.store.Users().FindByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, e.internal("lookup user", err, zap.String("user_id", userID))
	}
	return user, nil
}

package authcore

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/internal"
	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/storage"
	"go.uber.org/zap"
)

// Register creates an unverified user and its credential in one transaction,
// then queues a confirmation mail. A mail failure does not undo the account;
// it is reported through RegisterResult.ConfirmationQueued.
func (e *Engine) Register(ctx context.Context, email, pw string) (*RegisterResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := e.checkPassword(pw); err != nil {
		return nil, err
	}

	if _, err := e.store.Users().FindByEmail(ctx, email); err == nil {
		e.metrics.Inc(MetricRegisterDuplicate)
		e.emit(ctx, audit.EventRegister, "", email, ErrEmailTaken)
		return nil, ErrEmailTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, e.internal("lookup user", err)
	}

	hash, algorithm, err := e.hashPassword(pw)
	if err != nil {
		return nil, err
	}
	secret, err := e.otp.GenerateSecret()
	if err != nil {
		return nil, e.internal("generate otp secret", err)
	}

	now := e.now()
	user := &storage.User{
		ID:           internal.NewID(),
		Email:        email,
		OTPSecret:    secret,
		Is2FAEnabled: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = e.store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.Credentials().Create(ctx, &storage.Credential{
			ID:           internal.NewID(),
			UserID:       user.ID,
			PasswordHash: hash,
			Algorithm:    algorithm,
			UpdatedAt:    now,
		})
	})
	if errors.Is(err, storage.ErrConflict) {
		e.metrics.Inc(MetricRegisterDuplicate)
		e.emit(ctx, audit.EventRegister, "", email, ErrEmailTaken)
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, e.internal("create user", err)
	}
	e.metrics.Inc(MetricRegisterSuccess)
	e.emit(ctx, audit.EventRegister, user.ID, user.Email, nil)

	res := &RegisterResult{UserID: user.ID, Email: user.Email}
	if err := e.queueConfirmation(ctx, user); err != nil {
		e.log.Warn("confirmation mail not sent after register", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		res.ConfirmationQueued = true
	}
	return res, nil
}

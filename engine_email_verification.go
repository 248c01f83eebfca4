package authcore

import (
	"context"
	"errors"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/mail"
	"github.com/MrEthical07/authcore/storage"
	"github.com/MrEthical07/authcore/verification"
	"go.uber.org/zap"
)

// SendConfirmationEmail issues a fresh ownership token for userID and queues
// the confirmation mail. Earlier tokens stay valid until they expire or the
// address changes.
func (e *Engine) SendConfirmationEmail(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrInvalidInput
	}
	user, err := e.store.Users().FindByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return e.internal("lookup user", err)
	}
	if user.IsEmailVerified {
		return ErrEmailAlreadyVerified
	}
	if err := e.limited("verification send", e.limiter.AllowVerificationSend(ctx, user.ID)); err != nil {
		return err
	}
	return e.queueConfirmation(ctx, user)
}

// ConfirmEmail consumes token for userID. The verified flag is then set by a
// background task; a caller may briefly read the old value.
func (e *Engine) ConfirmEmail(ctx context.Context, userID, token string) error {
	if userID == "" || token == "" {
		return ErrInvalidInput
	}

	err := e.verifier.Confirm(ctx, userID, token)
	switch {
	case err == nil:
	case errors.Is(err, verification.ErrMalformedToken), errors.Is(err, verification.ErrInvalidToken):
		e.metrics.Inc(MetricEmailVerificationFailure)
		e.emit(ctx, audit.EventEmailVerified, userID, "", ErrInvalidToken)
		return ErrInvalidToken
	case errors.Is(err, verification.ErrExpiredToken):
		e.metrics.Inc(MetricEmailVerificationFailure)
		e.emit(ctx, audit.EventEmailVerified, userID, "", ErrExpiredToken)
		return ErrExpiredToken
	default:
		return e.internal("confirm email token", err, zap.String("user_id", userID))
	}
	e.metrics.Inc(MetricEmailVerificationSuccess)
	e.emit(ctx, audit.EventEmailVerified, userID, "", nil)

	at := e.now()
	e.background(ctx, "mark_email_verified", func(ctx context.Context) error {
		return e.store.Users().SetEmailVerified(ctx, userID, true, at)
	})
	return nil
}

func (e *Engine) queueConfirmation(ctx context.Context, user *storage.User) error {
	row, err := e.verifier.Issue(ctx, user.ID)
	if err != nil {
		return e.internal("issue verification token", err, zap.String("user_id", user.ID))
	}
	e.metrics.Inc(MetricEmailVerificationRequest)

	link := mail.ConfirmationLink(
		e.config.EmailVerification.BaseURL,
		e.config.EmailVerification.ConfirmPath,
		user.ID,
		row.Token,
	)
	return e.enqueueMail(ctx, mail.NewConfirmEmail(e.config.Mail.From, user.Email, link))
}

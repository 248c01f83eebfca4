package authcore

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/mail"
	"github.com/MrEthical07/authcore/otp"
	"github.com/MrEthical07/authcore/storage"
	"go.uber.org/zap"
)

// Login checks the password and, when the policy allows, issues and mails a
// one-time code. It never returns a session.
func (e *Engine) Login(ctx context.Context, email, pw string) (*LoginResult, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if pw == "" {
		return nil, ErrInvalidCredentials
	}
	if err := e.limited("login", e.limiter.CheckLogin(ctx, email)); err != nil {
		e.metrics.Inc(MetricLoginFailure)
		e.emit(ctx, audit.EventLogin, "", email, err)
		return nil, err
	}

	user, err := e.store.Users().FindByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, e.loginFailed(ctx, "", email, ErrUserNotFound)
	}
	if err != nil {
		return nil, e.internal("lookup user", err)
	}

	cred, err := e.store.Credentials().FindByUserID(ctx, user.ID)
	if errors.Is(err, storage.ErrNotFound) {
		e.log.Warn("user has no credential", zap.String("user_id", user.ID))
		return nil, e.loginFailed(ctx, user.ID, email, ErrInvalidCredentials)
	}
	if err != nil {
		return nil, e.internal("lookup credential", err, zap.String("user_id", user.ID))
	}

	ok, err := e.passwords.Verify(pw, cred.PasswordHash, cred.Algorithm)
	if err != nil {
		return nil, e.internal("verify password", err, zap.String("user_id", user.ID))
	}
	if !ok {
		return nil, e.loginFailed(ctx, user.ID, email, ErrInvalidCredentials)
	}
	if err := e.limiter.ResetLogin(ctx, email); err != nil {
		e.log.Warn("reset login limiter failed", zap.Error(err))
	}
	if e.passwords.NeedsRehash(cred.PasswordHash, cred.Algorithm) {
		e.scheduleRehash(ctx, user.ID, pw)
	}

	if e.config.EmailVerification.RequireForLogin && !user.IsEmailVerified {
		e.metrics.Inc(MetricLoginUnverified)
		e.emit(ctx, audit.EventLogin, user.ID, email, ErrEmailNotVerified)
		return nil, ErrEmailNotVerified
	}

	code, err := e.otp.Issue(ctx, user.ID, user.OTPSecret)
	if err != nil {
		return nil, e.internal("issue otp", err, zap.String("user_id", user.ID))
	}
	e.metrics.Inc(MetricOTPIssued)

	if err := e.enqueueMail(ctx, mail.NewOTPCode(e.config.Mail.From, user.Email, code.Code, e.config.OTP.CodeTTL)); err != nil {
		return nil, err
	}
	e.metrics.Inc(MetricLoginSuccess)
	e.emit(ctx, audit.EventLogin, user.ID, email, nil)

	return &LoginResult{UserID: user.ID, OTPExpiresAt: code.ExpiresAt}, nil
}

// ValidateOTP consumes a matching active code and opens a session.
func (e *Engine) ValidateOTP(ctx context.Context, userID, code string) (*Session, error) {
	code = strings.TrimSpace(code)
	if userID == "" || code == "" {
		return nil, ErrInvalidInput
	}
	if err := e.limited("otp", e.limiter.CheckOTP(ctx, userID)); err != nil {
		e.metrics.Inc(MetricOTPFailure)
		e.emit(ctx, audit.EventOTPValidate, userID, "", err)
		return nil, err
	}

	err := e.otp.Validate(ctx, userID, code)
	switch {
	case err == nil:
	case errors.Is(err, otp.ErrNotFound):
		return nil, e.otpFailed(ctx, userID, ErrOTPNotFound)
	case errors.Is(err, otp.ErrInvalidCode):
		return nil, e.otpFailed(ctx, userID, ErrInvalidOTP)
	default:
		return nil, e.internal("validate otp", err, zap.String("user_id", userID))
	}
	e.metrics.Inc(MetricOTPSuccess)
	if err := e.limiter.ResetOTP(ctx, userID); err != nil {
		e.log.Warn("reset otp limiter failed", zap.Error(err))
	}

	s, err := e.sessions.CreateSession(ctx, userID)
	if err != nil {
		return nil, e.internal("create session", err, zap.String("user_id", userID))
	}
	e.metrics.Inc(MetricSessionCreated)
	e.emit(ctx, audit.EventOTPValidate, userID, "", nil)

	at := e.now()
	e.background(ctx, "update_last_login", func(ctx context.Context) error {
		return e.store.Users().SetLastLogin(ctx, userID, at)
	})

	return toSession(s), nil
}

// loginFailed counts a failed attempt against email and returns cause.
func (e *Engine) loginFailed(ctx context.Context, userID, email string, cause error) error {
	e.metrics.Inc(MetricLoginFailure)
	e.emit(ctx, audit.EventLogin, userID, email, cause)
	if err := e.limiter.IncrementLogin(ctx, email); err != nil && !isRateLimited(err) {
		e.log.Warn("record login failure failed", zap.Error(err))
	}
	return cause
}

func (e *Engine) otpFailed(ctx context.Context, userID string, cause error) error {
	e.metrics.Inc(MetricOTPFailure)
	e.emit(ctx, audit.EventOTPValidate, userID, "", cause)
	if err := e.limiter.IncrementOTP(ctx, userID); err != nil && !isRateLimited(err) {
		e.log.Warn("record otp failure failed", zap.Error(err))
	}
	return cause
}

// scheduleRehash rewrites a credential hashed with an outdated algorithm or
// cost. The hash is computed inside the task so Login does not pay for it.
func (e *Engine) scheduleRehash(ctx context.Context, userID, pw string) {
	e.background(ctx, "rehash_password", func(ctx context.Context) error {
		hash, algorithm, err := e.passwords.Hash(pw)
		if err != nil {
			return err
		}
		return e.store.Credentials().Replace(ctx, userID, hash, algorithm, e.now())
	})
}

func isRateLimited(err error) bool {
	return errors.Is(err, rate.ErrRateLimited)
}

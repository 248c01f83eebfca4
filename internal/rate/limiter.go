package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter budgets. A zero Max disables that limit.
type Config struct {
	MaxLoginAttempts       int
	LoginWindow            time.Duration
	MaxOTPAttempts         int
	OTPWindow              time.Duration
	MaxVerificationSends   int
	VerificationSendWindow time.Duration
}

// Limiter enforces fixed-window budgets on failed logins, failed OTP
// submissions and confirmation-mail sends using Redis counters. A nil
// *Limiter allows everything.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin fails with ErrRateLimited once email has used up its failed-login budget.
func (l *Limiter) CheckLogin(ctx context.Context, email string) error {
	if l == nil || l.config.MaxLoginAttempts <= 0 {
		return nil
	}
	return l.checkCounter(ctx, loginKey(email), l.config.MaxLoginAttempts)
}

// IncrementLogin records a failed login for email.
func (l *Limiter) IncrementLogin(ctx context.Context, email string) error {
	if l == nil || l.config.MaxLoginAttempts <= 0 {
		return nil
	}
	return l.increment(ctx, loginKey(email), l.config.MaxLoginAttempts, l.config.LoginWindow)
}

// ResetLogin clears the failed-login counter after a successful password check.
func (l *Limiter) ResetLogin(ctx context.Context, email string) error {
	if l == nil {
		return nil
	}
	return l.reset(ctx, loginKey(email))
}

// CheckOTP fails with ErrRateLimited once userID has used up its failed-code budget.
func (l *Limiter) CheckOTP(ctx context.Context, userID string) error {
	if l == nil || l.config.MaxOTPAttempts <= 0 {
		return nil
	}
	return l.checkCounter(ctx, otpKey(userID), l.config.MaxOTPAttempts)
}

// IncrementOTP records a failed code submission for userID.
func (l *Limiter) IncrementOTP(ctx context.Context, userID string) error {
	if l == nil || l.config.MaxOTPAttempts <= 0 {
		return nil
	}
	return l.increment(ctx, otpKey(userID), l.config.MaxOTPAttempts, l.config.OTPWindow)
}

// ResetOTP clears the failed-code counter after a successful validation.
func (l *Limiter) ResetOTP(ctx context.Context, userID string) error {
	if l == nil {
		return nil
	}
	return l.reset(ctx, otpKey(userID))
}

// AllowVerificationSend counts one confirmation-mail send for userID and
// fails with ErrRateLimited when the window budget is exceeded.
func (l *Limiter) AllowVerificationSend(ctx context.Context, userID string) error {
	if l == nil || l.config.MaxVerificationSends <= 0 {
		return nil
	}
	return l.increment(ctx, verificationSendKey(userID), l.config.MaxVerificationSends, l.config.VerificationSendWindow)
}

// Attempts returns the failed-login counter for email. Missing keys read as zero.
func (l *Limiter) Attempts(ctx context.Context, email string) (int, error) {
	if l == nil {
		return 0, nil
	}
	count, err := l.redis.Get(ctx, loginKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) increment(ctx context.Context, key string, maxAttempts int, window time.Duration) error {
	count, err := l.incrementWithTTL(ctx, key, window)
	if err != nil {
		return err
	}
	if count > int64(maxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func loginKey(email string) string {
	return "al:" + email
}

func otpKey(userID string) string {
	return "ao:" + userID
}

func verificationSendKey(userID string) string {
	return "av:" + userID
}

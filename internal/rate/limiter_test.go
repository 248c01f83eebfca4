package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, cfg), mr
}

func TestLoginBudget(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxLoginAttempts: 3, LoginWindow: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "a@example.com"); err != nil {
			t.Fatalf("attempt %d: unexpected %v", i, err)
		}
		if err := l.IncrementLogin(ctx, "a@example.com"); err != nil {
			t.Fatalf("increment %d: unexpected %v", i, err)
		}
	}
	if err := l.CheckLogin(ctx, "a@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.CheckLogin(ctx, "b@example.com"); err != nil {
		t.Fatalf("other email must be unaffected, got %v", err)
	}

	if n, _ := l.Attempts(ctx, "a@example.com"); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
	if ttl := mr.TTL("al:a@example.com"); ttl != time.Minute {
		t.Fatalf("expected window TTL of 1m, got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.CheckLogin(ctx, "a@example.com"); err != nil {
		t.Fatalf("window should have expired, got %v", err)
	}
}

func TestResetLogin(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxLoginAttempts: 1, LoginWindow: time.Minute})
	ctx := context.Background()

	_ = l.IncrementLogin(ctx, "a@example.com")
	if err := l.CheckLogin(ctx, "a@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.ResetLogin(ctx, "a@example.com"); err != nil {
		t.Fatalf("ResetLogin: %v", err)
	}
	if err := l.CheckLogin(ctx, "a@example.com"); err != nil {
		t.Fatalf("expected reset counter, got %v", err)
	}
}

func TestOTPBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxOTPAttempts: 2, OTPWindow: time.Minute})
	ctx := context.Background()

	_ = l.IncrementOTP(ctx, "u1")
	if err := l.CheckOTP(ctx, "u1"); err != nil {
		t.Fatalf("unexpected %v", err)
	}
	_ = l.IncrementOTP(ctx, "u1")
	if err := l.CheckOTP(ctx, "u1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.ResetOTP(ctx, "u1"); err != nil {
		t.Fatalf("ResetOTP: %v", err)
	}
	if err := l.CheckOTP(ctx, "u1"); err != nil {
		t.Fatalf("expected reset counter, got %v", err)
	}
}

func TestVerificationSendBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxVerificationSends: 2, VerificationSendWindow: time.Hour})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.AllowVerificationSend(ctx, "u1"); err != nil {
			t.Fatalf("send %d: unexpected %v", i, err)
		}
	}
	if err := l.AllowVerificationSend(ctx, "u1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestRedisFailureIsReported(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxLoginAttempts: 3, LoginWindow: time.Minute})
	mr.Close()

	if err := l.CheckLogin(context.Background(), "a@example.com"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

func TestNilAndDisabledLimiterAllow(t *testing.T) {
	ctx := context.Background()

	var l *Limiter
	if err := l.CheckLogin(ctx, "a"); err != nil {
		t.Fatalf("nil limiter: %v", err)
	}
	if err := l.AllowVerificationSend(ctx, "u"); err != nil {
		t.Fatalf("nil limiter: %v", err)
	}

	disabled, _ := newTestLimiter(t, Config{})
	for i := 0; i < 10; i++ {
		if err := disabled.IncrementOTP(ctx, "u1"); err != nil {
			t.Fatalf("disabled limiter: %v", err)
		}
	}
	if err := disabled.CheckOTP(ctx, "u1"); err != nil {
		t.Fatalf("disabled limiter: %v", err)
	}
}

package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/storage/sqlstore/sqlstoretest"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestEngine(t *testing.T) (*Engine, *fakeClock, string) {
	t.Helper()
	store := sqlstoretest.Open(t)
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	cfg := DefaultConfig()
	cfg.Now = clock.Now
	e, err := NewEngine(store, cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	secret, err := e.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	sqlstoretest.SeedUser(t, store, "u1", "a@example.com", secret)
	return e, clock, secret
}

func TestDeriveRFC6238SHA1Vectors(t *testing.T) {
	secret := "12345678901234567890"
	cases := []struct {
		ts   int64
		code string
	}{
		{59, "94287082"},
		{1111111109, "07081804"},
		{1111111111, "14050471"},
		{1234567890, "89005924"},
		{2000000000, "69279037"},
		{20000000000, "65353130"},
	}
	for _, tc := range cases {
		got, err := Derive(secret, time.Unix(tc.ts, 0), 8, 30)
		if err != nil {
			t.Fatalf("Derive(t=%d): %v", tc.ts, err)
		}
		if got != tc.code {
			t.Fatalf("t=%d: expected %s, got %s", tc.ts, tc.code, got)
		}
	}

	six, err := Derive(secret, time.Unix(59, 0), 6, 30)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if six != "287082" {
		t.Fatalf("expected six-digit truncation 287082, got %s", six)
	}
}

func TestIssueThenValidateIsSingleUse(t *testing.T) {
	e, _, secret := newTestEngine(t)
	ctx := context.Background()

	row, err := e.Issue(ctx, "u1", secret)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(row.Code) != 6 {
		t.Fatalf("expected 6 digit code, got %q", row.Code)
	}

	if err := e.Validate(ctx, "u1", row.Code); err != nil {
		t.Fatalf("first Validate: %v", err)
	}

	err = e.Validate(ctx, "u1", row.Code)
	if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected second Validate to fail, got %v", err)
	}
}

func TestValidateWrongCode(t *testing.T) {
	e, _, secret := newTestEngine(t)
	ctx := context.Background()

	row, err := e.Issue(ctx, "u1", secret)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	wrong := "000000"
	if row.Code == wrong {
		wrong = "111111"
	}
	if err := e.Validate(ctx, "u1", wrong); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}

	if err := e.Validate(ctx, "u1", row.Code); err != nil {
		t.Fatalf("a failed attempt must not consume the code: %v", err)
	}
}

func TestValidateNoActiveCode(t *testing.T) {
	e, _, _ := newTestEngine(t)

	if err := e.Validate(context.Background(), "u1", "123456"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoredCodeOutlivesTOTPStep(t *testing.T) {
	e, clock, secret := newTestEngine(t)
	ctx := context.Background()

	row, err := e.Issue(ctx, "u1", secret)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Several 30 s steps later the live TOTP value has moved on, but the
	// stored snapshot is still redeemable until its own expiry.
	clock.now = clock.now.Add(4 * time.Minute)
	if err := e.Validate(ctx, "u1", row.Code); err != nil {
		t.Fatalf("expected snapshot code to validate within CodeTTL: %v", err)
	}
}

func TestValidateAfterExpiry(t *testing.T) {
	e, clock, secret := newTestEngine(t)
	ctx := context.Background()

	row, err := e.Issue(ctx, "u1", secret)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock.now = clock.now.Add(5*time.Minute + time.Second)
	if err := e.Validate(ctx, "u1", row.Code); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestMultipleActiveCodesCoexist(t *testing.T) {
	e, clock, secret := newTestEngine(t)
	ctx := context.Background()

	first, err := e.Issue(ctx, "u1", secret)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	clock.now = clock.now.Add(time.Minute)
	second, err := e.Issue(ctx, "u1", secret)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := e.Validate(ctx, "u1", first.Code); err != nil {
		t.Fatalf("older code should still be valid: %v", err)
	}
	if err := e.Validate(ctx, "u1", second.Code); err != nil {
		t.Fatalf("newer code should still be valid: %v", err)
	}
}

func TestValidateIsScopedToUser(t *testing.T) {
	e, _, secret := newTestEngine(t)
	ctx := context.Background()
	sqlstoretest.SeedUser(t, e.store, "u2", "b@example.com", secret)

	row, err := e.Issue(ctx, "u1", secret)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := e.Validate(ctx, "u2", row.Code); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected other user's code to be rejected, got %v", err)
	}
}

func TestNewEngineValidation(t *testing.T) {
	store := sqlstoretest.Open(t)
	cfg := DefaultConfig()
	cfg.Digits = 4
	if _, err := NewEngine(store, cfg); err == nil {
		t.Fatal("expected 4 digits to be rejected")
	}
	cfg = DefaultConfig()
	cfg.CodeTTL = 0
	if _, err := NewEngine(store, cfg); err == nil {
		t.Fatal("expected zero TTL to be rejected")
	}
}

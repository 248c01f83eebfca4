package verification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/storage/sqlstore/sqlstoretest"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestEngine(t *testing.T, ttl, window time.Duration) (*Engine, *fakeClock) {
	t.Helper()
	store := sqlstoretest.Open(t)
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	e, err := NewEngine(store, Config{
		Secret:          testSecret,
		TokenTTL:        ttl,
		FreshnessWindow: window,
		Now:             clock.Now,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	sqlstoretest.SeedUser(t, store, "user-a", "a@example.com", "s")
	sqlstoretest.SeedUser(t, store, "user-b", "b@example.com", "s")
	return e, clock
}

func TestNewEngineRejectsShortSecret(t *testing.T) {
	_, err := NewEngine(sqlstoretest.Open(t), Config{
		Secret:          []byte("short"),
		TokenTTL:        time.Hour,
		FreshnessWindow: time.Hour,
	})
	if err == nil {
		t.Fatal("expected short secret to be rejected")
	}
}

func TestIssueProducesSignedToken(t *testing.T) {
	e, clock := newTestEngine(t, 24*time.Hour, 24*time.Hour)

	row, err := e.Issue(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(row.Token, "_")
	if len(parts) != 4 || parts[0] != "vr" || len(parts[1]) != 32 {
		t.Fatalf("unexpected token shape %q", row.Token)
	}
	if !row.ExpiresAt.Equal(clock.now.Add(24 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", row.ExpiresAt)
	}

	if _, err := e.Validate(context.Background(), "user-a", row.Token); err != nil {
		t.Fatalf("Validate fresh token: %v", err)
	}
}

func TestConfirmIsSingleUse(t *testing.T) {
	e, _ := newTestEngine(t, 24*time.Hour, 24*time.Hour)
	ctx := context.Background()

	row, err := e.Issue(ctx, "user-a")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := e.Confirm(ctx, "user-a", row.Token); err != nil {
		t.Fatalf("first Confirm: %v", err)
	}
	if err := e.Confirm(ctx, "user-a", row.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken on reuse, got %v", err)
	}
}

func TestTokenIsBoundToUser(t *testing.T) {
	e, _ := newTestEngine(t, 24*time.Hour, 24*time.Hour)
	ctx := context.Background()

	row, err := e.Issue(ctx, "user-a")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := e.Confirm(ctx, "user-b", row.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for other user, got %v", err)
	}
	if err := e.Confirm(ctx, "user-a", row.Token); err != nil {
		t.Fatalf("owner Confirm after foreign attempt: %v", err)
	}
}

func TestFreshnessWindowExpiresToken(t *testing.T) {
	e, clock := newTestEngine(t, 48*time.Hour, time.Hour)
	ctx := context.Background()

	row, err := e.Issue(ctx, "user-a")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	clock.now = clock.now.Add(time.Hour + time.Second)

	if _, err := e.Validate(ctx, "user-a", row.Token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestStoredExpiryExpiresToken(t *testing.T) {
	e, clock := newTestEngine(t, time.Hour, 48*time.Hour)
	ctx := context.Background()

	row, err := e.Issue(ctx, "user-a")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	clock.now = clock.now.Add(time.Hour)

	if err := e.Confirm(ctx, "user-a", row.Token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestMalformedTokens(t *testing.T) {
	e, _ := newTestEngine(t, time.Hour, time.Hour)
	ctx := context.Background()

	cases := []string{
		"",
		"garbage",
		"xx_" + strings.Repeat("a", 32) + "_1_" + strings.Repeat("0", 64),
		"vr_short_1_" + strings.Repeat("0", 64),
		"vr_" + strings.Repeat("a", 32) + "_notanumber_" + strings.Repeat("0", 64),
		"vr_" + strings.Repeat("a", 32) + "_1_zz",
		"vr_" + strings.Repeat("a", 32) + "_1_" + strings.Repeat("0", 64) + "_extra",
	}
	for _, tok := range cases {
		if _, err := e.Validate(ctx, "user-a", tok); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("token %q: expected ErrMalformedToken, got %v", tok, err)
		}
	}
}

func TestTamperedSignatureIsInvalid(t *testing.T) {
	e, _ := newTestEngine(t, time.Hour, time.Hour)
	ctx := context.Background()

	row, err := e.Issue(ctx, "user-a")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(row.Token, "_")
	last := parts[3]
	flipped := "0"
	if last[0] == '0' {
		flipped = "1"
	}
	parts[3] = flipped + last[1:]

	if _, err := e.Validate(ctx, "user-a", strings.Join(parts, "_")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSignedButUnknownTokenIsInvalid(t *testing.T) {
	e, clock := newTestEngine(t, time.Hour, time.Hour)

	ts := clock.now.Unix()
	tok := formatToken(strings.Repeat("Z", 32), ts, sign(testSecret, "user-a", ts))
	if _, err := e.Validate(context.Background(), "user-a", tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/storage/sqlstore"
	"github.com/MrEthical07/authcore/storage/sqlstore/sqlstoretest"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T, reuse bool) (*Manager, *sqlstore.Store, *fakeClock) {
	t.Helper()
	store := sqlstoretest.Open(t)
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	access, err := jwt.NewManager(jwt.Config{
		AccessTTL: 15 * time.Minute,
		Secret:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:    "authcore-test",
		Now:       clock.Now,
	})
	if err != nil {
		t.Fatalf("jwt.NewManager: %v", err)
	}

	m, err := NewManager(store, access, Config{
		RefreshTTL:     24 * time.Hour,
		ReuseDetection: reuse,
		Now:            clock.Now,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	sqlstoretest.SeedUser(t, store, "u1", "a@example.com", "s")
	return m, store, clock
}

func TestNewManagerRejectsRefreshShorterThanAccess(t *testing.T) {
	access, err := jwt.NewManager(jwt.Config{
		AccessTTL: time.Hour,
		Secret:    []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("jwt.NewManager: %v", err)
	}
	if _, err := NewManager(sqlstoretest.Open(t), access, Config{RefreshTTL: time.Hour}); err == nil {
		t.Fatal("expected refresh TTL == access TTL to be rejected")
	}
}

func TestCreateSessionIssuesPair(t *testing.T) {
	m, store, clock := newTestManager(t, false)
	ctx := context.Background()

	s, err := m.CreateSession(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if len(s.RefreshToken) < 43 {
		t.Fatalf("refresh token too short: %d chars", len(s.RefreshToken))
	}
	if !s.RefreshExpiresAt.Equal(clock.now.Add(24 * time.Hour)) {
		t.Fatalf("unexpected refresh expiry %v", s.RefreshExpiresAt)
	}

	claims, err := m.ValidateAccess(s.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if claims.Subject != "u1" || claims.SID != s.ID {
		t.Fatalf("unexpected claims %+v", claims)
	}

	rec, err := store.RefreshTokens().FindByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if rec.TokenHash == s.RefreshToken {
		t.Fatal("raw refresh token must not be stored")
	}
}

func TestRotateInvalidatesPreviousToken(t *testing.T) {
	m, _, _ := newTestManager(t, false)
	ctx := context.Background()

	first, err := m.CreateSession(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	rec, err := m.FindByHash(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("FindByHash(R1): %v", err)
	}

	second, err := m.Rotate(ctx, rec)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("rotation must produce a new refresh token")
	}
	if second.ID != first.ID {
		t.Fatal("rotation must keep the slot identity")
	}

	if _, err := m.FindByHash(ctx, first.RefreshToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for R1, got %v", err)
	}
	if _, err := m.FindByHash(ctx, second.RefreshToken); err != nil {
		t.Fatalf("FindByHash(R2): %v", err)
	}
}

func TestRotateStaleRecordLosesRace(t *testing.T) {
	m, _, _ := newTestManager(t, false)
	ctx := context.Background()

	s, err := m.CreateSession(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	rec, err := m.FindByHash(ctx, s.RefreshToken)
	if err != nil {
		t.Fatalf("FindByHash: %v", err)
	}

	if _, err := m.Rotate(ctx, rec); err != nil {
		t.Fatalf("first Rotate: %v", err)
	}
	if _, err := m.Rotate(ctx, rec); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for stale record, got %v", err)
	}
}

func TestRefreshRejectsExpiredSlot(t *testing.T) {
	m, _, clock := newTestManager(t, false)
	ctx := context.Background()

	s, err := m.CreateSession(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	clock.now = clock.now.Add(24 * time.Hour)

	if _, err := m.Refresh(ctx, s.RefreshToken); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestRevokeThenLookupFails(t *testing.T) {
	m, _, _ := newTestManager(t, false)
	ctx := context.Background()

	s, err := m.CreateSession(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := m.Revoke(ctx, s.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := m.Revoke(ctx, s.ID); err != nil {
		t.Fatalf("second Revoke must be a no-op, got %v", err)
	}
	if _, err := m.FindByHash(ctx, s.RefreshToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after revoke, got %v", err)
	}
	if err := m.Revoke(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestRotateRevokedRecord(t *testing.T) {
	m, _, _ := newTestManager(t, false)
	ctx := context.Background()

	s, err := m.CreateSession(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	rec, err := m.FindByHash(ctx, s.RefreshToken)
	if err != nil {
		t.Fatalf("FindByHash: %v", err)
	}
	if err := m.Revoke(ctx, s.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if _, err := m.Rotate(ctx, rec); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound when rotating a revoked slot, got %v", err)
	}
	revokedAt := time.Now()
	rec.RevokedAt = &revokedAt
	if _, err := m.Rotate(ctx, rec); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked, got %v", err)
	}
}

func TestLogoutUnknownTokenFails(t *testing.T) {
	m, _, _ := newTestManager(t, false)
	ctx := context.Background()

	if err := m.Logout(ctx, "not-a-token"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	s, err := m.CreateSession(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := m.Logout(ctx, s.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := m.Logout(ctx, s.RefreshToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second logout, got %v", err)
	}
	if _, err := m.Refresh(ctx, s.RefreshToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound refreshing after logout, got %v", err)
	}
}

func TestStaleTokenWithoutReuseDetection(t *testing.T) {
	m, _, _ := newTestManager(t, false)
	ctx := context.Background()

	first, err := m.CreateSession(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	second, err := m.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if _, err := m.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := m.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("current token must keep working: %v", err)
	}
}

func TestReuseDetectionRevokesAllSlots(t *testing.T) {
	m, _, _ := newTestManager(t, true)
	ctx := context.Background()

	a, err := m.CreateSession(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateSession(a): %v", err)
	}
	b, err := m.CreateSession(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateSession(b): %v", err)
	}

	rotated, err := m.Refresh(ctx, a.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if _, err := m.Refresh(ctx, a.RefreshToken); !errors.Is(err, ErrReuseDetected) {
		t.Fatalf("expected ErrReuseDetected, got %v", err)
	}
	if _, err := m.FindByHash(ctx, rotated.RefreshToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rotated slot must be revoked, got %v", err)
	}
	if _, err := m.FindByHash(ctx, b.RefreshToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("sibling slot must be revoked, got %v", err)
	}
	if _, err := m.Refresh(ctx, "never-issued"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown token, got %v", err)
	}
}

func TestRevokeAllCountsLiveSlots(t *testing.T) {
	m, _, _ := newTestManager(t, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := m.CreateSession(ctx, "u1"); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
	}
	n, err := m.RevokeAll(ctx, "u1")
	if err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 revoked slots, got %d", n)
	}
	n, err = m.RevokeAll(ctx, "u1")
	if err != nil {
		t.Fatalf("second RevokeAll: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 on second RevokeAll, got %d", n)
	}
}

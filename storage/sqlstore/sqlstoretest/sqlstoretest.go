// Package sqlstoretest opens throwaway SQLite-backed stores for tests.
package sqlstoretest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/storage"
	"github.com/MrEthical07/authcore/storage/sqlstore"
)

// Open returns a migrated store in a per-test temp directory, closed on cleanup.
func Open(t testing.TB) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.Open(context.Background(), sqlstore.DialectSQLite, filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// SeedUser inserts a minimal user row so dependent rows satisfy foreign keys.
func SeedUser(t testing.TB, s storage.Store, id, email, otpSecret string) *storage.User {
	t.Helper()
	now := time.Now().UTC()
	u := &storage.User{
		ID:           id,
		Email:        email,
		OTPSecret:    otpSecret,
		Is2FAEnabled: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

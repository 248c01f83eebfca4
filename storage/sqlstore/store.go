package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"

	"github.com/MrEthical07/authcore/storage"
	"github.com/MrEthical07/authcore/storage/sqlstore/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL engine behind a Store.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Store implements storage.Store over database/sql. A Store returned by
// WithTx is bound to that transaction.
type Store struct {
	db      *sql.DB
	conn    DBTX
	dialect Dialect
}

var _ storage.Store = (*Store)(nil)

// New wraps an already-open database. It does not run migrations.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, conn: db, dialect: dialect}
}

// Open connects to the given dialect, verifies connectivity and applies the
// embedded migrations.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}

	var (
		driver string
		source = dsn
	)
	switch dialect {
	case DialectPostgres:
		driver = "pgx"
	case DialectSQLite:
		driver = "sqlite"
		if !strings.Contains(dsn, "?") {
			source = dsn + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		}
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// SQLite allows a single writer; serialising connections avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}

	s := New(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies every pending embedded migration for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	var gooseDialect goose.Dialect
	switch s.dialect {
	case DialectPostgres:
		gooseDialect = goose.DialectPostgres
	case DialectSQLite:
		gooseDialect = goose.DialectSQLite3
	default:
		return fmt.Errorf("unsupported dialect %q", s.dialect)
	}

	fsys, err := fs.Sub(migrations.FS, string(s.dialect))
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	provider, err := goose.NewProvider(gooseDialect, s.db, fsys)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Users() storage.UserRepository { return &userRepo{db: s.conn} }

func (s *Store) Credentials() storage.CredentialRepository { return &credentialRepo{db: s.conn} }

func (s *Store) RefreshTokens() storage.RefreshTokenRepository {
	return &refreshTokenRepo{db: s.conn}
}

func (s *Store) OTPCodes() storage.OTPCodeRepository { return &otpCodeRepo{db: s.conn} }

func (s *Store) EmailVerifications() storage.EmailVerificationRepository {
	return &emailVerificationRepo{db: s.conn}
}

// WithTx runs fn with a Store bound to a new transaction. Calls nested inside
// an existing transaction join it.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	if _, inTx := s.conn.(*sql.Tx); inTx {
		return fn(ctx, s)
	}
	return withTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		return fn(ctx, &Store{db: s.db, conn: tx, dialect: s.dialect})
	})
}

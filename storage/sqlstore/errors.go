package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/authcore/storage"
	"github.com/jackc/pgx/v5/pgconn"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}

	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// wrapWrite maps constraint violations to storage.ErrConflict.
func wrapWrite(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// wrapRead maps sql.ErrNoRows to storage.ErrNotFound.
func wrapRead(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// expectOne turns a zero-row compare-and-set update into storage.ErrNotFound.
func expectOne(op string, res sql.Result, err error) error {
	if err != nil {
		return wrapWrite(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

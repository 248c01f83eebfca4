// Package storage defines the persisted entities and the repository contracts
// the authentication engines are written against.
//
// Implementations live in sub-packages; sqlstore provides PostgreSQL and
// SQLite backends over database/sql.
package storage

// Package sqlstore implements storage.Store over database/sql.
//
// PostgreSQL is reached through the pgx stdlib driver and SQLite through the
// pure-Go modernc driver. Both dialects share the same queries ($N
// placeholders, millisecond integer timestamps) and carry their own goose
// migrations, applied by [Open].
//
// Consume-once writes (OTP codes, verification tokens, refresh rotation and
// revocation) are compare-and-set updates; a write that matches no row
// returns storage.ErrNotFound so concurrent consumers cannot both succeed.
package sqlstore

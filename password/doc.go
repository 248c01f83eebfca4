// Package password hashes and verifies user passwords.
//
// New credentials are hashed with bcrypt by default; argon2id is available as
// an alternative primary or as a legacy algorithm still accepted for
// verification. Each stored credential carries the algorithm tag that
// produced it, and [Manager] dispatches verification on that tag.
//
// # What this package must NOT do
//
//   - Store or retrieve credentials. Callers supply plaintext and receive hashes.
//   - Import any other authcore package.
//   - Log plaintext passwords or hash material.
package password

// Package internal contains helpers that are private to authcore: secure random
// generation, token digests and row identifiers.
//
// # Sub-packages
//
//   - audit: bounded audit-event dispatcher and sinks
//   - config: .env and environment parsing for cmd entry points
//   - logging: zap logger construction
//   - rate: Redis-backed fixed-window attempt limiters
//   - security: read-only security posture report
//   - tasks: bounded best-effort background task runner
//
// # What this package must NOT do
//
//   - Export types that appear in the public authcore API.
//   - Be imported by any package outside the authcore module.
package internal

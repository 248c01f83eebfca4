// Package jwt issues and verifies the short-lived, stateless access tokens
// handed out with every session. Tokens are HS256-signed, carry the user id as
// subject, and are validated against an injectable clock.
package jwt

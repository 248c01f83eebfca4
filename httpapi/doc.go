// Package httpapi exposes an authcore Engine over JSON/HTTP.
//
// [NewRouter] returns a chi router. Public routes live under /auth; routes
// under /users/me require a bearer access token. The refresh token is
// returned both in the body and as an http-only cookie, and /auth/refresh
// and /auth/logout accept either.
package httpapi

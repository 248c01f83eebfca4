// Package middleware adapts access-token validation to net/http.
//
// [RequireAccess] reads the Authorization header, delegates the check to an
// [AccessValidator] such as *authcore.Engine, and exposes the subject through
// [UserIDFromContext]. It never parses tokens itself.
package middleware

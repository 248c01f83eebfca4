package middleware

import (
	"context"
	"net/http"
	"strings"
)

// AccessValidator checks a bearer access token and returns its subject.
// *authcore.Engine implements it.
type AccessValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (string, error)
}

type userIDContextKey struct{}

// UserIDFromContext returns the subject stored by RequireAccess.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDContextKey{}).(string)
	return id, ok && id != ""
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// RequireAccess rejects requests without a valid bearer access token and
// stores the token subject in the request context.
func RequireAccess(v AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				unauthorized(w)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			userID, err := v.ValidateAccessToken(r.Context(), token)
			if err != nil {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="authcore"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubValidator map[string]string

func (s stubValidator) ValidateAccessToken(_ context.Context, token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid")
}

func TestRequireAccess(t *testing.T) {
	v := stubValidator{"good": "user-1"}
	var seen string
	h := RequireAccess(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusNoContent},
		{"lowercase scheme", "bearer good", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusNoContent && seen != "user-1" {
				t.Fatalf("user id = %q, want user-1", seen)
			}
			if tc.want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Fatalf("expected WWW-Authenticate header")
			}
		})
	}
}

func TestRequireAccessNilValidator(t *testing.T) {
	h := RequireAccess(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUserIDFromContextEmpty(t *testing.T) {
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("expected no user id")
	}
	if id, ok := UserIDFromContext(WithUserID(context.Background(), "u")); !ok || id != "u" {
		t.Fatalf("got %q, %v", id, ok)
	}
}

package session

import "time"

// Session is the token pair handed to a client after login or refresh.
// RefreshToken is the only copy of the raw refresh secret; storage keeps its digest.
type Session struct {
	ID               string
	UserID           string
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

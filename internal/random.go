package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	refreshTokenSize = 64
	otpSecretSize    = 32
	alphanumeric     = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// NewID returns a random UUIDv4 string used as a row identity.
func NewID() string {
	return uuid.NewString()
}

// NewRefreshToken returns 512 random bits as unpadded base64url text.
func NewRefreshToken() (string, error) {
	return randomURLSafe(refreshTokenSize)
}

// HashToken digests an opaque token for storage. The raw value is never persisted.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewOTPSecret returns a 256-bit per-user OTP seed as unpadded base64url text.
func NewOTPSecret() (string, error) {
	return randomURLSafe(otpSecretSize)
}

// RandomAlphanumeric returns n characters drawn uniformly from [A-Za-z0-9].
func RandomAlphanumeric(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("invalid random length")
	}

	var b strings.Builder
	b.Grow(n)

	max := big.NewInt(int64(len(alphanumeric)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphanumeric[idx.Int64()])
	}
	return b.String(), nil
}

func randomURLSafe(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

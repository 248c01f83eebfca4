package verification

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"
)

const (
	tokenPrefix    = "vr"
	tokenSeparator = "_"
	randomLength   = 32
)

type parsedToken struct {
	random    string
	timestamp int64
	digest    []byte
}

// sign computes HMAC-SHA256(secret, userID || big-endian int64 timestamp).
func sign(secret []byte, userID string, timestamp int64) []byte {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(timestamp))

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(userID))
	mac.Write(ts[:])
	return mac.Sum(nil)
}

func formatToken(random string, timestamp int64, digest []byte) string {
	return strings.Join([]string{
		tokenPrefix,
		random,
		strconv.FormatInt(timestamp, 10),
		hex.EncodeToString(digest),
	}, tokenSeparator)
}

func parseToken(token string) (*parsedToken, error) {
	parts := strings.Split(token, tokenSeparator)
	if len(parts) != 4 || parts[0] != tokenPrefix {
		return nil, ErrMalformedToken
	}
	if len(parts[1]) != randomLength {
		return nil, ErrMalformedToken
	}

	ts, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, ErrMalformedToken
	}

	digest, err := hex.DecodeString(parts[3])
	if err != nil || len(digest) != sha256.Size {
		return nil, ErrMalformedToken
	}

	return &parsedToken{random: parts[1], timestamp: ts, digest: digest}, nil
}

package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretBytes = 32

var (
	// ErrInvalidToken reports a token that failed signature, claim or shape checks.
	ErrInvalidToken = errors.New("invalid access token")
	// ErrExpiredToken reports a correctly signed token past its expiry.
	ErrExpiredToken = errors.New("access token expired")
)

// Config configures HS256 access-token issuance.
//
// Secret signs new tokens. VerifySecrets optionally lists additional secrets,
// keyed by kid, still accepted during a secret rotation; when it is set every
// token must carry a kid header and KeyID names the current signing key.
type Config struct {
	AccessTTL     time.Duration
	Secret        []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
	VerifySecrets map[string][]byte
	Now           func() time.Time
}

// Manager issues and verifies stateless access tokens.
type Manager struct {
	config Config
}

// AccessClaims are the claims carried by an access token. Subject is the user id.
type AccessClaims struct {
	SID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("access TTL must be > 0")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("leeway must be between 0 and 2m")
	}
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", minSecretBytes)
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	for kid, key := range cfg.VerifySecrets {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify secret map contains empty kid")
		}
		if len(key) < minSecretBytes {
			return nil, fmt.Errorf("verify secret for kid %q is shorter than %d bytes", kid, minSecretBytes)
		}
	}
	if len(cfg.VerifySecrets) > 0 {
		if cfg.KeyID == "" {
			return nil, errors.New("KeyID is required when VerifySecrets is set")
		}
		if _, ok := cfg.VerifySecrets[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifySecrets")
		}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Manager{config: cfg}, nil
}

// TTL returns the configured access-token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.config.AccessTTL
}

// CreateAccess signs a token for userID. sid is the refresh slot the token was
// minted from and may be empty. It returns the token and its expiry.
func (m *Manager) CreateAccess(userID, sid string) (string, time.Time, error) {
	now := m.config.Now()
	exp := now.Add(m.config.AccessTTL)

	claims := AccessClaims{
		SID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}

	signed, err := token.SignedString(m.config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	// NumericDate truncates to seconds; report what the token actually carries.
	return signed, claims.ExpiresAt.Time, nil
}

// ParseAccess verifies signature and registered claims and returns the claims.
// Expired tokens yield ErrExpiredToken; every other failure yields ErrInvalidToken.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.config.Now),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, &AccessClaims{}, m.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if len(m.config.VerifySecrets) == 0 {
		return m.config.Secret, nil
	}

	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("missing kid")
	}
	key, ok := m.config.VerifySecrets[kid]
	if !ok {
		return nil, errors.New("unknown kid")
	}
	return key, nil
}

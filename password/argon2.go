package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// AlgorithmArgon2id is the credential algorithm tag written for argon2id hashes.
const AlgorithmArgon2id = "argon2id"

const (
	minMemoryKB    uint32 = 8 * 1024
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	argon2IDPrefix        = "$" + AlgorithmArgon2id + "$"
)

// Argon2Config holds argon2id cost parameters.
type Argon2Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Config returns the parameters used when argon2id is selected
// without explicit tuning.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes passwords with argon2id and encodes results in PHC form:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
type Argon2 struct {
	config Argon2Config
}

type argon2Params struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// NewArgon2 validates cfg and returns an argon2id hasher.
func NewArgon2(cfg Argon2Config) (*Argon2, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, errors.New("argon2 memory must be >= 8192 KB")
	case cfg.Time < 1:
		return nil, errors.New("argon2 time must be >= 1")
	case cfg.Parallelism < 1:
		return nil, errors.New("argon2 parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, errors.New("argon2 salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return nil, errors.New("argon2 key length must be >= 16")
	}
	return &Argon2{config: cfg}, nil
}

func (a *Argon2) Algorithm() string { return AlgorithmArgon2id }

func (a *Argon2) Hash(password string) (string, error) {
	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}

	key := argon2.IDKey([]byte(password), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2IDPrefix,
		argon2.Version,
		a.config.Memory, a.config.Time, a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (a *Argon2) Verify(password, hash string) (bool, error) {
	p, err := decodeArgon2(hash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(computed, p.key) == 1, nil
}

// NeedsUpgrade reports whether hash was produced with weaker parameters than
// the hasher's current configuration.
func (a *Argon2) NeedsUpgrade(hash string) (bool, error) {
	p, err := decodeArgon2(hash)
	if err != nil {
		return false, err
	}
	return p.memory < a.config.Memory ||
		p.time < a.config.Time ||
		p.parallelism < a.config.Parallelism ||
		uint32(len(p.key)) != a.config.KeyLength, nil
}

func decodeArgon2(hash string) (*argon2Params, error) {
	if !strings.HasPrefix(hash, argon2IDPrefix) {
		return nil, fmt.Errorf("%w: not an argon2id hash", ErrMalformedHash)
	}

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		return nil, fmt.Errorf("%w: unexpected segment count", ErrMalformedHash)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported argon2 version", ErrMalformedHash)
	}

	var p argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.parallelism); err != nil {
		return nil, fmt.Errorf("%w: invalid parameters", ErrMalformedHash)
	}
	if p.memory < minMemoryKB || p.time < 1 || p.parallelism < 1 {
		return nil, fmt.Errorf("%w: parameters below minimum", ErrMalformedHash)
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(p.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: invalid salt", ErrMalformedHash)
	}
	if p.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(p.key) == 0 {
		return nil, fmt.Errorf("%w: invalid key", ErrMalformedHash)
	}

	return &p, nil
}

package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// AlgorithmBcrypt is the credential algorithm tag written for bcrypt hashes.
const AlgorithmBcrypt = "bcrypt"

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 12

// Bcrypt hashes passwords with golang.org/x/crypto/bcrypt at a fixed cost.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a bcrypt hasher. Cost must lie in bcrypt's supported range.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Bcrypt{cost: cost}, nil
}

func (b *Bcrypt) Algorithm() string { return AlgorithmBcrypt }

func (b *Bcrypt) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. A mismatch is (false, nil);
// only an unparsable hash returns an error.
func (b *Bcrypt) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
}

func (b *Bcrypt) NeedsUpgrade(hash string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
	return cost < b.cost, nil
}

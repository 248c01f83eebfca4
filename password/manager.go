package password

import "fmt"

// Hasher is one password hashing algorithm, identified by the tag stored next
// to each credential.
type Hasher interface {
	Algorithm() string
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
	NeedsUpgrade(hash string) (bool, error)
}

// Manager hashes new passwords with its primary algorithm and verifies stored
// credentials with whichever registered algorithm produced them.
//
// Manager performs no I/O and is safe for concurrent use.
type Manager struct {
	primary   Hasher
	hashers   map[string]Hasher
	minLength int
}

// NewManager registers primary plus any legacy hashers still accepted for
// verification. minLength is enforced on Hash only.
func NewManager(minLength int, primary Hasher, legacy ...Hasher) (*Manager, error) {
	if primary == nil {
		return nil, fmt.Errorf("primary hasher is required")
	}

	m := &Manager{
		primary:   primary,
		hashers:   make(map[string]Hasher, 1+len(legacy)),
		minLength: minLength,
	}
	for _, h := range append([]Hasher{primary}, legacy...) {
		if h == nil {
			continue
		}
		if _, dup := m.hashers[h.Algorithm()]; dup {
			return nil, fmt.Errorf("duplicate hasher for algorithm %q", h.Algorithm())
		}
		m.hashers[h.Algorithm()] = h
	}

	return m, nil
}

// Algorithm returns the tag written for newly hashed passwords.
func (m *Manager) Algorithm() string {
	return m.primary.Algorithm()
}

// Hash returns the encoded hash and the algorithm tag to persist with it.
func (m *Manager) Hash(password string) (hash string, algorithm string, err error) {
	if len(password) < m.minLength {
		return "", "", ErrPasswordTooShort
	}

	hash, err = m.primary.Hash(password)
	if err != nil {
		return "", "", err
	}
	return hash, m.primary.Algorithm(), nil
}

// Verify checks password against a stored hash. Mismatch is (false, nil).
// Constant-time behaviour is provided by the underlying primitive.
func (m *Manager) Verify(password, hash, algorithm string) (bool, error) {
	h, ok := m.hashers[algorithm]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	return h.Verify(password, hash)
}

// NeedsRehash reports whether a verified credential should be re-hashed with
// the primary algorithm on the next password write.
func (m *Manager) NeedsRehash(hash, algorithm string) bool {
	if algorithm != m.primary.Algorithm() {
		return true
	}
	upgrade, err := m.primary.NeedsUpgrade(hash)
	return err != nil || upgrade
}

package security

import (
	"golang.org/x/crypto/bcrypt"
)

// dummyPassword is hashed once per Hasher so that a lookup miss can still pay for one bcrypt comparison.
const dummyPassword = "mentorhub-unknown-user"

// Hasher hashes and verifies passwords using bcrypt. Plaintext passwords are never logged or stored.
type Hasher struct {
	Cost  int
	dummy []byte
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to bcrypt's supported range.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	cost = max(bcrypt.MinCost, min(cost, bcrypt.MaxCost))
	h := &Hasher{Cost: cost}
	h.dummy, _ = bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	return h
}

// Hash produces a bcrypt hash of password suitable for storage.
func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare returns nil when password matches hash.
func (h *Hasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// CompareMissing burns one bcrypt comparison against a fixed hash and always returns
// bcrypt.ErrMismatchedHashAndPassword. Call it when the user does not exist.
func (h *Hasher) CompareMissing(password string) error {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
	return bcrypt.ErrMismatchedHashAndPassword
}

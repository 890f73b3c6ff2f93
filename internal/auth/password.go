// Package auth issues credentials and drives the session lifecycle.
package auth

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 10

// Hasher hashes secrets into stored verifiers and checks candidates
// against them.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, verifier string) bool
}

// BcryptHasher implements Hasher with bcrypt. Every Hash call draws a fresh
// salt, so hashing the same secret twice yields different verifiers.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher using cost, or DefaultBcryptCost when
// cost is outside bcrypt's accepted range.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return BcryptHasher{Cost: cost}
}

// Hash returns the bcrypt hash of secret.
func (h BcryptHasher) Hash(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify safely compares a bcrypt verifier and a candidate secret.
func (h BcryptHasher) Verify(secret, verifier string) bool {
	if verifier == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(verifier), []byte(secret)) == nil
}

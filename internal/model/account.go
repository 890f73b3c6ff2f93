package model

import (
	"strings"
	"time"
)

// Account represents a row in the `accounts` table. The json tags are
// omitted on purpose: handlers build their own response shapes so the
// password hash and refresh token can never be serialized by accident.
//
// Fields:
//
//	ID            – primary key identifier.
//	Username      – unique, stored lowercase.
//	Email         – unique, stored lowercase.
//	FullName      – display name.
//	PasswordHash  – bcrypt verifier; the plaintext is never stored.
//	AvatarURL     – public URL of the avatar asset (required at registration).
//	CoverImageURL – public URL of the cover asset, empty when unset.
//	RefreshToken  – the single valid refresh token, nil after logout.
type Account struct {
	ID            uint64
	Username      string
	Email         string
	FullName      string
	PasswordHash  string
	AvatarURL     string
	CoverImageURL string
	RefreshToken  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	pendingPassword *string
}

// PasswordHasher turns a plaintext secret into a stored verifier.
type PasswordHasher interface {
	Hash(secret string) (string, error)
}

// SetPassword stages a new plaintext password. It is hashed by BeforeSave.
func (a *Account) SetPassword(plain string) {
	a.pendingPassword = &plain
}

// PasswordChanged reports whether a plaintext password is staged.
func (a *Account) PasswordChanged() bool {
	return a.pendingPassword != nil
}

// BeforeSave runs ahead of every write of the account. It only re-hashes
// when SetPassword was called since the last save, so an already hashed
// value is never hashed twice on unrelated updates.
func (a *Account) BeforeSave(h PasswordHasher) error {
	a.Username = NormalizeIdentity(a.Username)
	a.Email = NormalizeIdentity(a.Email)
	a.FullName = strings.TrimSpace(a.FullName)
	if a.pendingPassword == nil {
		return nil
	}
	hash, err := h.Hash(*a.pendingPassword)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	a.pendingPassword = nil
	return nil
}

// Sanitized returns a copy without the password hash, the refresh token and
// any staged password. It is what gets attached to request contexts and
// returned to clients.
func (a Account) Sanitized() Account {
	a.PasswordHash = ""
	a.RefreshToken = nil
	a.pendingPassword = nil
	return a
}

// NormalizeIdentity lowercases and trims a username or email so uniqueness
// comparisons are case-insensitive.
func NormalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

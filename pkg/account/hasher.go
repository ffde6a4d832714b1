package account

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength       = 16
	refreshKeyLength = 32
	resetTokenLength = 32 // 64 hex characters on the wire
	hashIterations   = 10000
	hashKeyLength    = 32
)

// PasswordHasher defines the interface for salted password hashing
// implementations. The salt is stored alongside the hash, not embedded in it.
type PasswordHasher interface {
	// Hash hashes a password with the given hex-encoded salt
	Hash(password, salt string) (string, error)

	// Verify checks if the provided password and salt produce the stored hash
	Verify(password, salt, hashedPassword string) (bool, error)
}

// Pbkdf2Hasher implements PasswordHasher using PBKDF2-SHA256
type Pbkdf2Hasher struct {
	Iterations int
}

// NewPbkdf2Hasher creates a hasher with the default iteration count
func NewPbkdf2Hasher() *Pbkdf2Hasher {
	return &Pbkdf2Hasher{Iterations: hashIterations}
}

// Hash derives a hex-encoded PBKDF2 key from the password and salt
func (h *Pbkdf2Hasher) Hash(password, salt string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	saltBytes, err := hex.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("invalid salt encoding: %w", err)
	}

	key := pbkdf2.Key([]byte(password), saltBytes, h.iterations(), hashKeyLength, sha256.New)
	return hex.EncodeToString(key), nil
}

// Verify recomputes the hash for the supplied password and compares it to the
// stored hash in constant time
func (h *Pbkdf2Hasher) Verify(password, salt, hashedPassword string) (bool, error) {
	if password == "" || hashedPassword == "" {
		return false, errors.New("password and hashed password cannot be empty")
	}

	computed, err := h.Hash(password, salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hashedPassword)) == 1, nil
}

func (h *Pbkdf2Hasher) iterations() int {
	if h.Iterations > 0 {
		return h.Iterations
	}
	return hashIterations
}

// GenerateSalt returns a new hex-encoded random salt
func GenerateSalt() (string, error) {
	return randomHex(saltLength)
}

// GenerateRefreshKey returns a new hex-encoded refresh-signing key
func GenerateRefreshKey() (string, error) {
	return randomHex(refreshKeyLength)
}

// GenerateResetToken returns a new 64-character hex reset token
func GenerateResetToken() (string, error) {
	return randomHex(resetTokenLength)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

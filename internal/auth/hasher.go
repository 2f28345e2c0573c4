// Package auth provides credential hashing and session token primitives for
// the ledger service.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLen           = 16
	defaultIterations = 210_000
	keyLen            = 32
)

// PasswordHasher defines the salted hashing contract the banking core consumes.
// Salt is generated and stored separately from the hash, so schemes that embed
// their own salt (bcrypt) do not fit here.
type PasswordHasher interface {
	GenerateSalt() ([]byte, error)
	Hash(password string, salt []byte) string
	Verify(password, storedHash string, storedSalt []byte) bool
}

// PBKDF2Hasher hashes passwords with PBKDF2-SHA256 and encodes the derived
// key as base64.
type PBKDF2Hasher struct {
	Iterations int
}

func NewPBKDF2Hasher() PBKDF2Hasher {
	return PBKDF2Hasher{Iterations: defaultIterations}
}

func (h PBKDF2Hasher) iterations() int {
	if h.Iterations <= 0 {
		return defaultIterations
	}
	return h.Iterations
}

// GenerateSalt returns a fresh 16-byte random salt.
func (h PBKDF2Hasher) GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

func (h PBKDF2Hasher) Hash(password string, salt []byte) string {
	key := pbkdf2.Key([]byte(password), salt, h.iterations(), keyLen, sha256.New)
	return base64.StdEncoding.EncodeToString(key)
}

func (h PBKDF2Hasher) Verify(password, storedHash string, storedSalt []byte) bool {
	computed := h.Hash(password, storedSalt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

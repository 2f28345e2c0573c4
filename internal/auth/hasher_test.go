package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSalt(t *testing.T) {
	h := NewPBKDF2Hasher()
	s1, err := h.GenerateSalt()
	require.NoError(t, err)
	s2, err := h.GenerateSalt()
	require.NoError(t, err)

	assert.Len(t, s1, saltLen)
	assert.NotEqual(t, s1, s2)
}

func TestHashAndVerify(t *testing.T) {
	h := PBKDF2Hasher{Iterations: 64}
	salt, err := h.GenerateSalt()
	require.NoError(t, err)

	hash := h.Hash("secret1", salt)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "secret1", hash)

	assert.True(t, h.Verify("secret1", hash, salt))
	assert.False(t, h.Verify("secret2", hash, salt))

	otherSalt, err := h.GenerateSalt()
	require.NoError(t, err)
	assert.False(t, h.Verify("secret1", hash, otherSalt))
}

func TestHashDeterministicPerSalt(t *testing.T) {
	h := PBKDF2Hasher{Iterations: 64}
	salt := []byte("0123456789abcdef")
	assert.Equal(t, h.Hash("secret1", salt), h.Hash("secret1", salt))
}

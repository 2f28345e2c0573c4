package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	issuer, err := NewTokenIssuer("ledger-test", time.Hour)
	require.NoError(t, err)

	tok, err := issuer.Issue("jti-1", "u-1", "alice", true)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "jti-1", claims.ID)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.Admin)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer, err := NewTokenIssuer("ledger-test", time.Hour)
	require.NoError(t, err)

	_, err = issuer.Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	a, err := NewTokenIssuer("ledger-test", time.Hour)
	require.NoError(t, err)
	b, err := NewTokenIssuer("ledger-test", time.Hour)
	require.NoError(t, err)

	tok, err := a.Issue("jti-1", "u-1", "alice", false)
	require.NoError(t, err)

	_, err = b.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer, err := NewTokenIssuer("ledger-test", time.Nanosecond)
	require.NoError(t, err)

	tok, err := issuer.Issue("jti-1", "u-1", "alice", false)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = issuer.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

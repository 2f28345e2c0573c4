package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a bearer token fails verification.
var ErrInvalidToken = errors.New("invalid or expired token")

// SessionClaims are the claims carried by a login token.
type SessionClaims struct {
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies RS256 session tokens with an in-memory key
// generated at startup. Restarting the process invalidates outstanding tokens,
// which matches the single-process session model.
type TokenIssuer struct {
	key    *rsa.PrivateKey
	kid    string
	issuer string
	ttl    time.Duration
}

func NewTokenIssuer(issuer string, ttl time.Duration) (*TokenIssuer, error) {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	// kid derived from the public key so it is stable for the process lifetime
	pubBytes, err := x509.MarshalPKIXPublicKey(&k.PublicKey)
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(pubBytes)
	kid := base64.RawURLEncoding.EncodeToString(h[:8])
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenIssuer{key: k, kid: kid, issuer: issuer, ttl: ttl}, nil
}

// Issue signs a session token for the given identity. The jti claim carries
// tokenID so individual sessions can be revoked on logout.
func (i *TokenIssuer) Issue(tokenID, userID, username string, admin bool) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Username: username,
		Admin:    admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Issuer:    i.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = i.kid
	return tok.SignedString(i.key)
}

// Verify parses and validates a session token, returning its claims.
func (i *TokenIssuer) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return &i.key.PublicKey, nil
	}, jwt.WithIssuer(i.issuer))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentUMA Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultTokenTTL is the default validity window of issued tokens.
// Expiry is enforced at verification time; a signed token does not stay
// valid forever.
const DefaultTokenTTL = 24 * time.Hour

// MinTokenSecretLen is the minimum accepted signing key length. HS256 with
// a short key is trivially brute-forceable.
const MinTokenSecretLen = 32

// Claims carries the token's identity assertions: the subject is the
// username, AccountID the numeric account ID.
type Claims struct {
	jwt.RegisteredClaims
	AccountID int64 `json:"account_id"`
}

// TokenIdentity is the verified identity extracted from a token.
type TokenIdentity struct {
	AccountID int64
	Username  string
}

// TokenIssuer mints and verifies signed bearer tokens. The signing key is
// process-wide configuration, loaded once at startup and never rotated
// mid-process.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer. The secret must be at least
// MinTokenSecretLen bytes; a non-positive ttl falls back to
// DefaultTokenTTL.
func NewTokenIssuer(secret []byte, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) < MinTokenSecretLen {
		return nil, oops.Code("AUTH_WEAK_SECRET").
			With("min_bytes", MinTokenSecretLen).
			Errorf("token signing secret must be at least %d bytes", MinTokenSecretLen)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: secret, ttl: ttl}, nil
}

// Issue mints a signed token for the authenticated identity. The token
// carries subject (username), account ID, issue time, expiry, and a unique
// token ID.
func (i *TokenIssuer) Issue(accountID int64, username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        ulid.Make().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		AccountID: accountID,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Verify checks the token's signature, algorithm, and expiry, returning
// the identity it asserts. Every failure maps to AUTH_INVALID_TOKEN; the
// caller learns nothing about which check failed.
func (i *TokenIssuer) Verify(tokenString string) (*TokenIdentity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(_ *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_TOKEN").
			Errorf("invalid token")
	}
	if !token.Valid {
		return nil, oops.Code("AUTH_INVALID_TOKEN").Errorf("invalid token")
	}

	return &TokenIdentity{
		AccountID: claims.AccountID,
		Username:  claims.Subject,
	}, nil
}

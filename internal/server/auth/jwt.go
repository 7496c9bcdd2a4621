// Package auth issues and verifies the signed access tokens handed out by
// the identity service.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the standard claims plus the authenticated identity id.
type Claims struct {
	jwt.RegisteredClaims
	IdentityID string
}

// GenerateToken signs an HS256 token for the given identity.
func GenerateToken(identityID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		IdentityID: identityID,
	})

	return token.SignedString(secretKey)
}

// IdentityIDFromToken verifies the signature and expiry and returns the
// identity id the token was issued for.
func IdentityIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", err
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}

	return claims.IdentityID, nil
}

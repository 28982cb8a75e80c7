// Package auth signs and verifies the session token stored in the session
// cookie. The token only carries the session id; the username is looked up
// in the session manager on every request, so removing a session revokes
// its token immediately.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/homevault/internal/common"
)

// Claims are the standard claims plus the decimal session id.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// GenerateToken signs a token for sessionID that expires after validity.
func GenerateToken(sessionID uint64, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		SessionID: strconv.FormatUint(sessionID, 10),
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// SessionIDFromToken validates tokenString and returns the session id in
// it. Expired tokens yield common.ErrTokenExpired, anything else that is
// wrong with the token yields common.ErrInvalidToken.
func SessionIDFromToken(tokenString string, secretKey []byte) (uint64, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, common.ErrTokenExpired
		}
		return 0, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return 0, common.ErrInvalidToken
	}

	id, err := strconv.ParseUint(claims.SessionID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: session id %q", common.ErrInvalidToken, claims.SessionID)
	}

	return id, nil
}

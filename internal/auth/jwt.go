// Package auth issues the short-lived tokens that bind a payment sandbox page
// to its session and a watcher to a cart's event stream.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	SessionTokenTTL = time.Hour
	CartTokenTTL    = 24 * time.Hour
)

type Claims struct {
	SessionID uuid.UUID `json:"session_id,omitempty"`
	CartID    string    `json:"cart_id"`
	jwt.RegisteredClaims
}

// HasSession reports whether the token was issued for a payment session.
func (c *Claims) HasSession() bool { return c.SessionID != uuid.Nil }

// GenerateSessionToken signs a token for one payment session of cartID.
func GenerateSessionToken(secret string, sessionID uuid.UUID, cartID string) (string, error) {
	return sign(secret, Claims{
		SessionID: sessionID,
		CartID:    cartID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(SessionTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

// GenerateCartToken signs a token that lets a client watch cartID's events.
func GenerateCartToken(secret, cartID string) (string, error) {
	return sign(secret, Claims{
		CartID: cartID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cartID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(CartTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

func sign(secret string, claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

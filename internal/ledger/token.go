package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken marks a token that failed signature or shape checks.
// Callers surface it the same way as an unknown batch id.
var ErrInvalidToken = errors.New("ledger: invalid token")

// SignedToken wraps a batch id in a signed token safe to hand to
// external pollers: the id itself never leaves the service unsigned.
func (l *Ledger) SignedToken(batchID string) (string, error) {
	claims := jwt.MapClaims{
		"batch": batchID,
		"iat":   time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(l.secret)
	if err != nil {
		return "", fmt.Errorf("ledger: sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a token and extracts the batch id.
func (l *Ledger) ParseToken(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return l.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	batchID, ok := claims["batch"].(string)
	if !ok || batchID == "" {
		return "", ErrInvalidToken
	}
	return batchID, nil
}

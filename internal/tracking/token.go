package tracking

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("tracking: invalid token")

// Claims carries the contact behind a tracking pixel.
type Claims struct {
	ContactID string `json:"contact_id"`
	StepID    string `json:"step_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies pixel tokens. Tokens are long-lived on
// purpose: recipients open cold emails weeks later.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates an issuer with the given HMAC secret.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: 90 * 24 * time.Hour}
}

// Issue signs a token identifying a contact (and optionally a sequence step).
func (i *TokenIssuer) Issue(contactID, stepID string) (string, error) {
	if len(i.secret) == 0 {
		return "", errors.New("tracking: signing secret not configured")
	}
	now := time.Now().UTC()
	claims := Claims{
		ContactID: contactID,
		StepID:    stepID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("tracking: sign failed: %w", err)
	}
	return signed, nil
}

// Verify parses a pixel token and returns its claims.
func (i *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid || claims.ContactID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Callers are upstream services (wallet, payment webhooks, payout jobs), not
// end users; tokens carry the service name and the ledger scopes it holds.
const (
	ScopePost    = "ledger:post"
	ScopeReverse = "ledger:reverse"
	ScopeRead    = "ledger:read"
	ScopeAdmin   = "ledger:admin"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Service string   `json:"svc"`
	Scopes  []string `json:"scopes"`
	jwt.RegisteredClaims
}

func (c Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope || s == ScopeAdmin {
			return true
		}
	}
	return false
}

func GenerateToken(secret, service string, scopes []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Service: service,
		Scopes:  scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, raw string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

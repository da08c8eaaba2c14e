package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cppla/board/config"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims are the JWT claims of access and refresh tokens. typ tells the two apart.
type Claims struct {
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// GenerateToken issues a JWT of the given type for the specified user identity.
func GenerateToken(userID uint, email, tokenType string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        NewTokenID(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.Get().JWTSecret))
}

var (
	// ErrTokenType is returned when a valid token is presented where the other type is expected.
	ErrTokenType = errors.New("unexpected token type")
	// ErrTokenClaims is returned for a token whose claims cannot be decoded.
	ErrTokenClaims = errors.New("invalid token claims")
)

// ParseToken verifies signature and expiry of tokenStr and checks that it is a tokenType token.
func ParseToken(tokenStr, tokenType string) (*Claims, error) {
	secret := []byte(config.Get().JWTSecret)
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, err
	}
	if claims.UserID == 0 || claims.ID == "" {
		return nil, ErrTokenClaims
	}
	if claims.TokenType != tokenType {
		return nil, ErrTokenType
	}
	return claims, nil
}

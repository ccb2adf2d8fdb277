package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"conduit/errs"
)

// TokenLifetime is how long an issued token stays valid.
const TokenLifetime = 72 * time.Hour

// Claims are the JWT claims carried by conduit tokens.
type Claims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// NewToken mints a signed JWT for the given user ID.
func NewToken(secret string, userID int) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifies a signed JWT and returns the user ID it carries.
func ParseToken(secret, tokenString string) (int, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errs.Errorf(errs.EUNAUTHORIZED, "Unexpected token signing method.")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid || claims.UserID <= 0 {
		return 0, errs.Errorf(errs.EUNAUTHORIZED, "The token provided is not valid.")
	}
	return claims.UserID, nil
}

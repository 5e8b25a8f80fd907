// Package auth extracts identity from bearer tokens. Signature verification
// is delegated to the backend; the portal only reads the payload.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "tramite-portal/internal/common/errors"
)

// Claims is the subset of the token payload the portal cares about.
type Claims struct {
	UserID int64
	Email  string
	Phone  string
	Expiry time.Time
}

// ExtractBearer returns the raw token from an Authorization header value.
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", apperrors.NewTokenMissingError()
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperrors.NewTokenInvalidError("authorization header must be 'Bearer <token>'")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", apperrors.NewTokenMissingError()
	}
	return token, nil
}

// DecodeClaims parses the token payload without verifying the signature.
// The userId may live in different claims depending on the backend.
func DecodeClaims(tokenString string) (*Claims, error) {
	parser := jwt.NewParser()

	claims := jwt.MapClaims{}
	_, _, err := parser.ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, apperrors.NewTokenInvalidError(err.Error())
	}

	out := &Claims{}

	for _, key := range []string{"userId", "id", "sub"} {
		if v, ok := claims[key]; ok {
			if id, ok := asInt64(v); ok {
				out.UserID = id
				break
			}
		}
	}

	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}

	if phone, ok := claims["phone"].(string); ok {
		out.Phone = phone
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.Expiry = exp.Time
	}

	return out, nil
}

// Validate checks the token's expiry. A token without exp counts as expired.
func Validate(tokenString string) (*Claims, error) {
	claims, err := DecodeClaims(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Expiry.IsZero() || claims.Expiry.Before(time.Now()) {
		return nil, apperrors.NewTokenExpiredError()
	}
	return claims, nil
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case string:
		var id int64
		for _, r := range n {
			if r < '0' || r > '9' {
				return 0, false
			}
			id = id*10 + int64(r-'0')
		}
		if n == "" {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

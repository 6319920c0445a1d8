package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Operator is what the client can read from its own credential. The signature
// is not verified here; the check-in service does that on every call.
type Operator struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

// ParseOperator extracts the operator identity from a JWT credential. Opaque
// (non-JWT) credentials return an error and should be treated as identity-less.
func ParseOperator(tokenString string) (Operator, error) {
	if tokenString == "" {
		return Operator{}, ErrEmptyToken
	}

	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return Operator{}, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Operator{}, errors.New("invalid token claims")
	}

	op := Operator{}
	op.Subject, _ = claims["sub"].(string)
	op.Email, _ = claims["email"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		op.ExpiresAt = exp.Time
	}
	return op, nil
}

// Label is a short operator description for logs and audit events.
func (o Operator) Label() string {
	if o.Email != "" {
		return o.Email
	}
	return o.Subject
}

// AuthorizationHeader formats the header value, e.g. "JWT <token>".
func AuthorizationHeader(scheme, token string) string {
	scheme = strings.TrimSpace(scheme)
	if scheme == "" {
		return token
	}
	return scheme + " " + token
}

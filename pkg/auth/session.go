package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession is returned for tokens that fail verification
var ErrInvalidSession = errors.New("invalid session token")

// Session is the verified identity of the console user
type Session struct {
	Subject      string
	Email        string
	Capabilities Capabilities
}

type sessionClaims struct {
	Email        string   `json:"email"`
	Capabilities []string `json:"capabilities"`
	jwt.RegisteredClaims
}

// VerifySession validates an HS256 session token issued by the identity
// provider and extracts the granted capabilities
func VerifySession(token string, secret []byte) (*Session, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidSession)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: no signing secret", ErrInvalidSession)
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidSession)
	}

	return &Session{
		Subject:      claims.Subject,
		Email:        claims.Email,
		Capabilities: Capabilities(claims.Capabilities),
	}, nil
}

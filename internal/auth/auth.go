// Package auth identifies the user a request acts for. Sign-in itself happens
// elsewhere; this package only issues and verifies bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for malformed, expired or badly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// User is the signed-in user. The zero User means nobody is signed in.
type User struct {
	UID         string
	DisplayName string
}

// SignedIn reports whether u identifies a user.
func (u User) SignedIn() bool {
	return u.UID != ""
}

type contextKey string

const userKey contextKey = "user"

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// FromContext returns the user stored in ctx, or the zero User.
func FromContext(ctx context.Context) User {
	u, _ := ctx.Value(userKey).(User)
	return u
}

// Claims is the JWT payload. The subject carries the user id.
type Claims struct {
	DisplayName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens with a shared secret.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens creates a Tokens for secret.
func NewTokens(secret string) (*Tokens, error) {
	if secret == "" {
		return nil, fmt.Errorf("NewTokens: secret is required")
	}
	return &Tokens{secret: []byte(secret), now: time.Now}, nil
}

// Generate issues a token for u valid for ttl (24h when ttl <= 0).
func (t *Tokens) Generate(u User, ttl time.Duration) (string, error) {
	if !u.SignedIn() {
		return "", fmt.Errorf("Generate: user id is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := t.now()
	claims := &Claims{
		DisplayName: u.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.UID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("Generate: failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies tokenStr and returns the user it was issued for.
func (t *Tokens) Parse(tokenStr string) (User, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return User{}, ErrInvalidToken
	}
	return User{UID: claims.Subject, DisplayName: claims.DisplayName}, nil
}

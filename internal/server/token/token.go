// Package token подписывает и проверяет access и refresh токены (JWT, HS256).
// Для каждого класса токена используется свой секрет и свое время жизни.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iudanet/authkeeper/internal/clock"
	"github.com/iudanet/authkeeper/internal/server/config"
)

// Class selects the secret and lifetime used for a token.
type Class int

const (
	// Access is the short-lived token presented on API calls.
	Access Class = iota
	// Refresh is the long-lived token accepted only by the refresh endpoint.
	Refresh
)

func (c Class) String() string {
	switch c {
	case Access:
		return "access"
	case Refresh:
		return "refresh"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Claims is the payload carried by both token classes.
// Refresh tokens carry only SessionID.
type Claims struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId,omitempty"`
	jwt.RegisteredClaims
}

type classParams struct {
	secret []byte
	ttl    time.Duration
}

// Codec signs and verifies tokens.
type Codec struct {
	now      clock.Clock
	audience string
	classes  map[Class]classParams
}

// New creates a Codec from the jwt section of the server config.
// A nil clock means the system clock.
func New(cfg config.JWTConfig, now clock.Clock) (*Codec, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token secrets must not be empty")
	}
	if now == nil {
		now = clock.System
	}

	return &Codec{
		now:      now,
		audience: cfg.Audience,
		classes: map[Class]classParams{
			Access:  {secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
			Refresh: {secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
		},
	}, nil
}

// SignAccess issues an access token bound to a session and its user.
func (c *Codec) SignAccess(sessionID, userID string) (string, error) {
	return c.sign(Claims{SessionID: sessionID, UserID: userID}, Access)
}

// SignRefresh issues a refresh token bound to a session.
func (c *Codec) SignRefresh(sessionID string) (string, error) {
	return c.sign(Claims{SessionID: sessionID}, Refresh)
}

// TTL returns the lifetime of tokens of the given class.
func (c *Codec) TTL(class Class) time.Duration {
	return c.classes[class].ttl
}

func (c *Codec) sign(claims Claims, class Class) (string, error) {
	params, ok := c.classes[class]
	if !ok {
		return "", fmt.Errorf("unknown token class %s", class)
	}

	now := c.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{c.audience},
		ExpiresAt: jwt.NewNumericDate(clock.FromNow(now, params.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(params.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", class, err)
	}

	return signed, nil
}

// Verify checks signature, audience and expiry of a token of the given class.
// It never fails loudly: any problem yields (nil, false).
func (c *Codec) Verify(tokenString string, class Class) (*Claims, bool) {
	params, ok := c.classes[class]
	if !ok || tokenString == "" {
		return nil, false
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return params.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid || claims.SessionID == "" {
		return nil, false
	}

	return claims, true
}

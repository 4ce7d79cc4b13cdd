package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errMissingIdentity = errors.New("missing player identity")
	errInvalidToken    = errors.New("invalid token")
)

// Claims identify a player. The subject is the player id.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator resolves the player behind a request. With an empty secret it trusts the
// userId query parameter, which is only meant for local development.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// Identity is the authenticated player behind a connection.
type Identity struct {
	PlayerID string
	Name     string
}

// Identify returns the player behind r.
func (a *Authenticator) Identify(r *http.Request) (Identity, error) {
	if !a.Enabled() {
		q := r.URL.Query()
		if id := q.Get("userId"); id != "" {
			return Identity{PlayerID: id, Name: q.Get("name")}, nil
		}
		return Identity{}, errMissingIdentity
	}

	raw := r.URL.Query().Get("token")
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return Identity{}, errInvalidToken
		}
		raw = parts[1]
	}
	if raw == "" {
		return Identity{}, errMissingIdentity
	}

	claims, err := a.Parse(raw)
	if err != nil {
		return Identity{}, err
	}
	return Identity{PlayerID: claims.Subject, Name: claims.Name}, nil
}

// Parse validates an HS256 token.
func (a *Authenticator) Parse(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}

// IssueToken signs a token for playerID valid for ttl.
func IssueToken(secret, playerID, name string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Package auth resolves the caller of an API request from a bearer token.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles understood by the API.
const (
	RoleAdmin   = "admin"
	RolePlanner = "planner"
	RoleViewer  = "viewer"
)

// Claims carries the store and role of the caller.
type Claims struct {
	StoreID string `json:"store"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

type Principal struct {
	StoreID string
	Role    string
	Subject string
}

// Verifier validates tokens. In "dev" mode a token is the literal
// "<store>:<role>"; in "hmac" mode it is an HS256 JWT.
type Verifier struct {
	Mode       string
	HMACSecret []byte
}

func NewVerifier(mode, secret string) *Verifier {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = "dev"
	}
	return &Verifier{Mode: mode, HMACSecret: []byte(secret)}
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingStore = errors.New("missing store claim")
)

func (v *Verifier) Verify(token string) (Principal, error) {
	switch v.Mode {
	case "dev":
		store, role, ok := strings.Cut(token, ":")
		if !ok || store == "" || role == "" {
			return Principal{}, errors.New("invalid dev token; expected store:role")
		}
		return Principal{StoreID: store, Role: strings.ToLower(role)}, nil
	case "hmac":
		claims, err := Parse(v.HMACSecret, token)
		if err != nil {
			return Principal{}, err
		}
		if claims.StoreID == "" {
			return Principal{}, ErrMissingStore
		}
		role := strings.ToLower(claims.Role)
		if role == "" {
			role = RoleViewer
		}
		return Principal{StoreID: claims.StoreID, Role: role, Subject: claims.Subject}, nil
	default:
		return Principal{}, errors.New("unsupported auth mode " + v.Mode)
	}
}

// Issue signs an HS256 token for claims valid for ttl.
func Issue(secret []byte, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Parse validates an HS256 token and returns its claims.
func Parse(secret []byte, token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

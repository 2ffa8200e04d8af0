package client

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenCookie is the name of the credential cookie set by the API
const AccessTokenCookie = "access_token"

// ErrNoAccessToken is returned when the jar holds no credential cookie
var ErrNoAccessToken = errors.New("no access token cookie")

// TokenClaims is the unverified content of the access token, for display only
type TokenClaims struct {
	UserID    string
	Username  string
	Email     string
	Role      string
	Issuer    string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
}

type accessClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AccessTokenClaims reads the credential cookie for apiURL and decodes its
// claims without verifying the signature; only the server can verify it
func AccessTokenClaims(jar http.CookieJar, apiURL string) (*TokenClaims, error) {
	if jar == nil {
		return nil, ErrNoAccessToken
	}
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	var raw string
	for _, c := range jar.Cookies(u) {
		if c.Name == AccessTokenCookie {
			raw = c.Value
			break
		}
	}
	if raw == "" {
		return nil, ErrNoAccessToken
	}

	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}

	tc := &TokenClaims{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     claims.Role,
		Issuer:   claims.Issuer,
	}
	if claims.IssuedAt != nil {
		t := claims.IssuedAt.Time
		tc.IssuedAt = &t
	}
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		tc.ExpiresAt = &t
	}
	return tc, nil
}

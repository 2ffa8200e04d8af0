package client

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := accessClaims{
		UserID:   testUserID,
		Username: "alice",
		Email:    "alice@example.com",
		Role:     "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "goshort",
			IssuedAt:  jwt.NewNumericDate(expiresAt.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return token
}

func TestAccessTokenClaims(t *testing.T) {
	jar := newTestJar(t)
	u, _ := url.Parse("https://api.example.com/api/v1/login")
	expiresAt := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	jar.SetCookies(u, []*http.Cookie{{Name: AccessTokenCookie, Value: signedToken(t, expiresAt), Path: "/"}})

	claims, err := AccessTokenClaims(jar, "https://api.example.com/api/v1")
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, testUserID, claims.UserID)
	assert.Equal(t, "goshort", claims.Issuer)
	require.NotNil(t, claims.ExpiresAt)
	assert.True(t, expiresAt.Equal(*claims.ExpiresAt))
	require.NotNil(t, claims.IssuedAt)
}

func TestAccessTokenClaims_ExpiredTokenStillDecodes(t *testing.T) {
	jar := newTestJar(t)
	u, _ := url.Parse("https://api.example.com/")
	jar.SetCookies(u, []*http.Cookie{{Name: AccessTokenCookie, Value: signedToken(t, time.Now().Add(-time.Hour)), Path: "/"}})

	claims, err := AccessTokenClaims(jar, "https://api.example.com/api/v1")
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestAccessTokenClaims_Missing(t *testing.T) {
	_, err := AccessTokenClaims(nil, "https://api.example.com")
	assert.ErrorIs(t, err, ErrNoAccessToken)

	_, err = AccessTokenClaims(newTestJar(t), "https://api.example.com")
	assert.ErrorIs(t, err, ErrNoAccessToken)
}

func TestAccessTokenClaims_Garbage(t *testing.T) {
	jar := newTestJar(t)
	u, _ := url.Parse("https://api.example.com/")
	jar.SetCookies(u, []*http.Cookie{{Name: AccessTokenCookie, Value: "not-a-jwt", Path: "/"}})

	_, err := AccessTokenClaims(jar, "https://api.example.com")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse access token")
}

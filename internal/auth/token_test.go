package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func TestExtractAccessToken(t *testing.T) {
	t.Run("Bearer Header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer header_token")

		assert.Equal(t, "header_token", ExtractAccessToken(req))
	})

	t.Run("Scheme Is Case Insensitive", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer header_token")

		assert.Equal(t, "header_token", ExtractAccessToken(req))
	})

	t.Run("No Token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		assert.Empty(t, ExtractAccessToken(req))
	})

	t.Run("Malformed Header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic user:pass")

		assert.Empty(t, ExtractAccessToken(req))
	})
}

func TestParseToken(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		raw, err := IssueToken("ops", testSecret, time.Minute)
		require.NoError(t, err)

		claims, err := ParseToken(raw, testSecret)
		require.NoError(t, err)
		assert.Equal(t, "ops", claims.Subject)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := ParseToken("", testSecret)
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("Expired", func(t *testing.T) {
		raw, err := IssueToken("ops", testSecret, -time.Minute)
		require.NoError(t, err)

		_, err = ParseToken(raw, testSecret)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		raw, err := IssueToken("ops", []byte("other"), time.Minute)
		require.NoError(t, err)

		_, err = ParseToken(raw, testSecret)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongAlgorithm", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "ops"}).
			SignedString(testSecret)
		require.NoError(t, err)

		_, err = ParseToken(raw, testSecret)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := ParseToken("not.a.token", testSecret)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

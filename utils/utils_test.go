package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentityToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":         "abc-123",
		"email":       "owner@furk.app",
		"custom:role": "merchant",
		"exp":         exp,
	}).SignedString([]byte("irrelevant"))
	require.NoError(t, err)

	claims, err := ParseIdentityToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", claims.Subject)
	assert.Equal(t, "owner@furk.app", claims.Email)
	assert.Equal(t, "merchant", claims.Role)
	assert.Equal(t, exp, claims.ExpiresAt)
}

func TestParseIdentityToken_MissingExp(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = ParseIdentityToken(tok)
	assert.Error(t, err)
}

func TestParseIdentityToken_Garbage(t *testing.T) {
	_, err := ParseIdentityToken("not-a-token")
	assert.Error(t, err)
}

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer("top-secret")
	require.NoError(t, err)

	sealed, err := s.Seal([]byte(`{"role":"user"}`))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "role")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, `{"role":"user"}`, string(opened))
}

func TestSealer_RejectsOtherKey(t *testing.T) {
	a, _ := NewSealer("one")
	b, _ := NewSealer("two")
	sealed, err := a.Seal([]byte("payload"))
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.Error(t, err)
	_, err = b.Open([]byte("short"))
	assert.Error(t, err)
}

func TestNewSealer_EmptySecret(t *testing.T) {
	_, err := NewSealer("")
	assert.Error(t, err)
}

func TestErrorHandler_RecoversPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal Server Error")
}

func TestTokenFingerprint(t *testing.T) {
	assert.Equal(t, "", TokenFingerprint(""))
	assert.Len(t, TokenFingerprint("abc"), 12)
}

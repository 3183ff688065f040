package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// IdentityClaims are the identity-token claims the BFF cares about.
type IdentityClaims struct {
	Subject   string
	Username  string
	Email     string
	Role      string
	ExpiresAt int64 // epoch seconds
}

// Expiry returns the exp claim as a time.
func (c *IdentityClaims) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

var errNoExp = errors.New("token does not contain a valid 'exp' claim")

// ParseIdentityToken reads the claims of an identity token without verifying
// its signature. The token was handed to us by the identity provider over TLS
// and is verified by the backend on every API call; here it is only consulted
// for expiry and role.
func ParseIdentityToken(tokenString string) (*IdentityClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("malformed identity token: %w", err)
	}

	exp, err := numericClaim(claims["exp"])
	if err != nil {
		return nil, err
	}

	out := &IdentityClaims{ExpiresAt: exp}
	out.Subject, _ = claims["sub"].(string)
	out.Username, _ = claims["cognito:username"].(string)
	if out.Username == "" {
		out.Username = out.Subject
	}
	out.Email, _ = claims["email"].(string)
	out.Role, _ = claims["custom:role"].(string)
	return out, nil
}

func numericClaim(v interface{}) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case int64:
		return n, nil
	default:
		return 0, errNoExp
	}
}

// HashToken computes a SHA-256 hash of the token string.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenFingerprint is a short, log-safe identifier for a token.
func TokenFingerprint(token string) string {
	if token == "" {
		return ""
	}
	return HashToken(token)[:12]
}

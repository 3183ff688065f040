// File: models/session.go
package models

import "time"

// MerchantStatus mirrors the verification state the backend keeps for a merchant.
type MerchantStatus string

const (
	MerchantStatusNone     MerchantStatus = ""
	MerchantStatusPending  MerchantStatus = "pending"
	MerchantStatusVerified MerchantStatus = "verified"
	MerchantStatusRejected MerchantStatus = "rejected"
)

// Session is the server-held record behind a browser session cookie.
type Session struct {
	ID               string         `json:"id"`
	IdentityToken    string         `json:"identityToken"`
	AccessToken      string         `json:"accessToken"`
	RefreshToken     string         `json:"refreshToken"`
	Username         string         `json:"username"`
	Email            string         `json:"email"`
	TokenExpiry      int64          `json:"tokenExpiry"` // epoch seconds from the identity token's exp claim
	Role             Role           `json:"role"`
	MerchantStatus   MerchantStatus `json:"merchantStatus,omitempty"`
	HasBusinessHours bool           `json:"hasBusinessHours,omitempty"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// Authenticated reports whether the record carries the minimum a login leaves behind.
func (s *Session) Authenticated() bool {
	return s != nil && s.IdentityToken != "" && s.Role != ""
}

// Expired reports whether the identity token expiry has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return s.TokenExpiry <= now.Unix()
}

// SessionStatus is what the BFF reports to the browser about its session.
type SessionStatus struct {
	Authenticated    bool           `json:"authenticated"`
	Role             Role           `json:"role,omitempty"`
	Email            string         `json:"email,omitempty"`
	MerchantStatus   MerchantStatus `json:"merchantStatus,omitempty"`
	HasBusinessHours bool           `json:"hasBusinessHours,omitempty"`
	Notice           string         `json:"notice,omitempty"`
}

// File: models/role.go
package models

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles issued by the identity provider.
type Role string

const (
	RoleUser      Role = "user"
	RoleMerchant  Role = "merchant"
	RoleAdmin     Role = "admin"
	RoleAffiliate Role = "affiliate"
)

// AllRoles lists every valid role in display order.
var AllRoles = []Role{RoleUser, RoleMerchant, RoleAdmin, RoleAffiliate}

// ParseRole normalises s into a Role and rejects anything outside the enum.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleMerchant, RoleAdmin, RoleAffiliate:
		return true
	}
	return false
}

// Satisfies is the single role predicate shared by guards and login.
// Membership is exact: an admin does not stand in for a user. An empty
// requirement is satisfied by any valid role.
func (r Role) Satisfies(required ...Role) bool {
	if !r.Valid() {
		return false
	}
	if len(required) == 0 {
		return true
	}
	for _, want := range required {
		if r == want {
			return true
		}
	}
	return false
}

// LandingPath is where an authenticated caller with role r is sent when a
// page only makes sense for anonymous visitors.
func (r Role) LandingPath() string {
	switch r {
	case RoleMerchant:
		return "/merchant/dashboard"
	case RoleAdmin:
		return "/admin/applications"
	case RoleAffiliate:
		return "/affiliate/dashboard"
	default:
		return "/"
	}
}

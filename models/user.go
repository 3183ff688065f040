// models/user.go
package models

// UserProfile is the backend profile row that sits next to the identity account.
type UserProfile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	Address      string    `json:"address,omitempty"`
	ProfileImage string    `json:"profile_image,omitempty"`
	Role         Role      `json:"role"`
	ReferralCode string    `json:"referral_code,omitempty"`
	CreatedAt    Timestamp `json:"created_at"`
}

// ProfileUpdate carries the editable subset of a profile.
type ProfileUpdate struct {
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	Address      string `json:"address,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// SignUpRequest is the sign-up form as posted by the browser.
type SignUpRequest struct {
	Role         string `json:"role" binding:"required,furkrole"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name" binding:"required"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	BusinessName string `json:"business_name,omitempty"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// LoginRequest is the login form as posted by the browser.
type LoginRequest struct {
	Role     string `json:"role" binding:"required,furkrole"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Redirect string `json:"redirect,omitempty"`
}

// NewProfile is the backend profile row created right after a provider sign-up.
type NewProfile struct {
	UserSub      string `json:"user_sub"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	Role         Role   `json:"role"`
	BusinessName string `json:"business_name,omitempty"`
	ReferralCode string `json:"referral_code,omitempty"`
}

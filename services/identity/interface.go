// Package identity adapts the hosted identity provider (a Cognito user pool)
// behind a small interface the auth service can be tested against.
package identity

import (
	"context"
	"time"
)

// Challenge names a secondary step the provider demands before issuing tokens.
type Challenge string

const (
	ChallengeNone        Challenge = ""
	ChallengeNewPassword Challenge = "NEW_PASSWORD_REQUIRED"
)

// Tokens is what a successful authentication yields.
type Tokens struct {
	IdentityToken string
	AccessToken   string
	RefreshToken  string
	ExpiresIn     time.Duration
}

// SignInResult is either Tokens or a Challenge with its opaque session.
type SignInResult struct {
	Tokens           *Tokens
	Challenge        Challenge
	ChallengeSession string
}

// SignUpResult reports where the confirmation code went.
type SignUpResult struct {
	UserSub       string
	UserConfirmed bool
	Destination   string
}

// User is the provider's view of the signed-in account.
type User struct {
	Username   string
	Attributes map[string]string
}

// Provider is the set of identity operations the BFF relies on.
type Provider interface {
	SignIn(ctx context.Context, username, password string) (*SignInResult, error)
	RespondNewPassword(ctx context.Context, username, challengeSession, newPassword string) (*Tokens, error)
	SignUp(ctx context.Context, username, password string, attributes map[string]string) (*SignUpResult, error)
	ConfirmSignUp(ctx context.Context, username, code string) error
	ResendCode(ctx context.Context, username string) (string, error)
	ForgotPassword(ctx context.Context, username string) (string, error)
	ConfirmForgotPassword(ctx context.Context, username, code, newPassword string) error
	// Refresh exchanges a refresh token for fresh tokens. The returned
	// RefreshToken is empty when the provider keeps the old one valid.
	Refresh(ctx context.Context, username, refreshToken string) (*Tokens, error)
	SignOut(ctx context.Context, accessToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*User, error)
}

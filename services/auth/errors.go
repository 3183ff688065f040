package auth

import (
	"errors"

	"furk/services/identity"
)

// Kind is the auth failure taxonomy surfaced to handlers.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindUserNotFound       Kind = "user_not_found"
	KindUnconfirmed        Kind = "user_not_confirmed"
	KindResetRequired      Kind = "password_reset_required"
	KindThrottled          Kind = "throttled"
	KindInvalidInput       Kind = "invalid_input"
	KindPasswordPolicy     Kind = "password_policy"
	KindCodeExpired        Kind = "code_expired"
	KindCodeMismatch       Kind = "code_mismatch"
	KindUserExists         Kind = "user_exists"
	KindRoleMismatch       Kind = "role_mismatch"
	KindReferralInvalid    Kind = "referral_invalid"
	KindSessionExpired     Kind = "session_expired"
	KindNotAuthenticated   Kind = "not_authenticated"
	KindBackend            Kind = "backend"
	KindUnknown            Kind = "unknown"
)

var messages = map[Kind]string{
	KindInvalidCredentials: "Incorrect email or password.",
	KindUserNotFound:       "No account exists for that email.",
	KindUnconfirmed:        "Please verify your email before logging in.",
	KindResetRequired:      "A password reset is required for this account.",
	KindThrottled:          "Too many attempts. Please wait a moment and try again.",
	KindInvalidInput:       "Some of the details you entered are invalid.",
	KindPasswordPolicy:     "Password does not meet the requirements.",
	KindCodeExpired:        "The verification code has expired. Please request a new one.",
	KindCodeMismatch:       "The verification code is incorrect.",
	KindUserExists:         "An account with this email already exists.",
	KindRoleMismatch:       "This account is not registered for the selected role.",
	KindReferralInvalid:    "The referral code is invalid.",
	KindSessionExpired:     "Your session has expired. Please log in again.",
	KindNotAuthenticated:   "Please log in to continue.",
	KindBackend:            "Something went wrong. Please try again.",
	KindUnknown:            "Something went wrong. Please try again.",
}

// MessageFor returns the fixed user-facing message for k.
func MessageFor(k Kind) string {
	if m, ok := messages[k]; ok {
		return m
	}
	return messages[KindUnknown]
}

// Error is returned by every Service operation that fails.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can write errors.Is(err, auth.ErrRoleMismatch).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

var (
	ErrRoleMismatch     = newError(KindRoleMismatch, nil)
	ErrNotAuthenticated = newError(KindNotAuthenticated, nil)
	ErrReferralInvalid  = newError(KindReferralInvalid, nil)
)

func newError(k Kind, err error) *Error {
	return &Error{Kind: k, Message: MessageFor(k), Err: err}
}

// KindOf returns the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

var identityKinds = map[identity.Kind]Kind{
	identity.KindInvalidCredentials:    KindInvalidCredentials,
	identity.KindUserNotFound:          KindUserNotFound,
	identity.KindUnconfirmed:           KindUnconfirmed,
	identity.KindPasswordResetRequired: KindResetRequired,
	identity.KindThrottled:             KindThrottled,
	identity.KindInvalidParameter:      KindInvalidInput,
	identity.KindWeakPassword:          KindPasswordPolicy,
	identity.KindCodeExpired:           KindCodeExpired,
	identity.KindCodeMismatch:          KindCodeMismatch,
	identity.KindUserExists:            KindUserExists,
	identity.KindRefreshInvalid:        KindSessionExpired,
	identity.KindUnavailable:           KindBackend,
}

// fromProvider translates an identity provider error.
func fromProvider(err error) *Error {
	k, ok := identityKinds[identity.KindOf(err)]
	if !ok {
		k = KindUnknown
	}
	return newError(k, err)
}

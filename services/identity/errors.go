package identity

import (
	"errors"
	"fmt"
)

// Kind classifies identity-provider failures into the taxonomy the rest of
// the BFF reasons about.
type Kind string

const (
	KindInvalidCredentials    Kind = "invalid_credentials"
	KindUserNotFound          Kind = "user_not_found"
	KindUnconfirmed           Kind = "user_not_confirmed"
	KindPasswordResetRequired Kind = "password_reset_required"
	KindThrottled             Kind = "throttled"
	KindInvalidParameter      Kind = "invalid_parameter"
	KindWeakPassword          Kind = "weak_password"
	KindCodeExpired           Kind = "code_expired"
	KindCodeMismatch          Kind = "code_mismatch"
	KindUserExists            Kind = "user_exists"
	KindRefreshInvalid        Kind = "refresh_token_invalid"
	KindUnavailable           Kind = "unavailable"
	KindUnknown               Kind = "unknown"
)

// Transient kinds are worth retrying and do not warrant clearing local state.
func (k Kind) Transient() bool {
	return k == KindThrottled || k == KindUnavailable
}

// Error is a provider failure tagged with its Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("identity %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("identity %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return KindUnknown
}

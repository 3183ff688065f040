// Package auth is the one place that talks to the identity provider and the
// only holder of a session.Writer. Guards and handlers ask it whether a
// browser session is authenticated; it refreshes expired tokens on the way.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"furk/models"
	"furk/services/api"
	"furk/services/identity"
	"furk/services/session"
	"furk/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "furk_auth_refresh_total",
	Help: "Identity token refresh attempts by outcome.",
}, []string{"outcome"})

// refreshTimeout bounds a shared refresh so one caller's cancellation does
// not fail everyone waiting on it.
const refreshTimeout = 15 * time.Second

// MerchantLookup fetches the merchant flags cached on the session.
type MerchantLookup interface {
	Profile(ctx context.Context) (*models.MerchantProfile, error)
}

// ReferralValidator checks referral codes before an account is created.
type ReferralValidator interface {
	Validate(ctx context.Context, code string) (*models.ReferralValidation, error)
}

// ProfileCreator creates the backend profile row after sign-up.
type ProfileCreator interface {
	Create(ctx context.Context, p models.NewProfile) error
}

// LoginOutcome says how a login attempt ended when it did not fail.
type LoginOutcome int

const (
	LoginOK LoginOutcome = iota
	LoginNewPasswordRequired
	LoginUnconfirmed
)

// LoginResult is returned by Login and CompleteNewPassword.
type LoginResult struct {
	Outcome          LoginOutcome
	Role             models.Role
	ChallengeSession string
}

// SignUpResult reports where the confirmation code was delivered.
type SignUpResult struct {
	CodeDeliveryPending bool
	Destination         string
}

type Options struct {
	Provider  identity.Provider
	Store     session.Store
	Merchants MerchantLookup
	Referrals ReferralValidator
	Profiles  ProfileCreator
	Now       func() time.Time
}

type Service struct {
	provider  identity.Provider
	store     session.Store
	merchants MerchantLookup
	referrals ReferralValidator
	profiles  ProfileCreator
	now       func() time.Time
	flight    singleflight.Group
	logger    *zap.Logger
}

func NewService(opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		provider:  opts.Provider,
		store:     opts.Store,
		merchants: opts.Merchants,
		referrals: opts.Referrals,
		profiles:  opts.Profiles,
		now:       now,
		logger:    utils.GetLogger(),
	}
}

// Reader exposes the read side of the store to guards and other services.
func (s *Service) Reader() session.Reader { return s.store }

// Login signs in with email and password and, on success, persists the
// session for sid. The role carried by the identity token must satisfy the
// role the caller chose; otherwise the provider session is revoked and nothing
// is kept locally.
func (s *Service) Login(ctx context.Context, sid string, role models.Role, email, password string) (*LoginResult, error) {
	res, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		if identity.KindOf(err) == identity.KindUnconfirmed {
			return &LoginResult{Outcome: LoginUnconfirmed, Role: role}, nil
		}
		s.logger.Info("login failed", zap.String("email", email), zap.String("kind", string(identity.KindOf(err))))
		s.clearUnlessTransient(ctx, sid, err)
		return nil, fromProvider(err)
	}
	if res.Challenge == identity.ChallengeNewPassword {
		return &LoginResult{Outcome: LoginNewPasswordRequired, Role: role, ChallengeSession: res.ChallengeSession}, nil
	}
	if res.Tokens == nil {
		return nil, newError(KindUnknown, fmt.Errorf("unsupported challenge %q", res.Challenge))
	}
	return s.establish(ctx, sid, role, email, res.Tokens)
}

// CompleteNewPassword answers a NEW_PASSWORD_REQUIRED challenge and logs in.
func (s *Service) CompleteNewPassword(ctx context.Context, sid string, role models.Role, email, challengeSession, newPassword string) (*LoginResult, error) {
	tokens, err := s.provider.RespondNewPassword(ctx, email, challengeSession, newPassword)
	if err != nil {
		s.clearUnlessTransient(ctx, sid, err)
		return nil, fromProvider(err)
	}
	return s.establish(ctx, sid, role, email, tokens)
}

func (s *Service) establish(ctx context.Context, sid string, role models.Role, email string, tokens *identity.Tokens) (*LoginResult, error) {
	claims, err := utils.ParseIdentityToken(tokens.IdentityToken)
	if err != nil {
		s.revoke(ctx, tokens.AccessToken)
		return nil, newError(KindUnknown, err)
	}

	tokenRole, err := models.ParseRole(claims.Role)
	if err != nil || !tokenRole.Satisfies(role) {
		s.logger.Warn("login role mismatch",
			zap.String("email", email),
			zap.String("requested", string(role)),
			zap.String("provisioned", claims.Role))
		s.revoke(ctx, tokens.AccessToken)
		if cerr := s.store.Clear(ctx, sid); cerr != nil {
			s.logger.Error("failed to clear session after role mismatch", zap.Error(cerr))
		}
		return nil, ErrRoleMismatch
	}

	// Tokens minted without the email scope fall back to the user's attributes.
	if claims.Email != "" {
		email = claims.Email
	} else if u, err := s.provider.CurrentUser(ctx, tokens.AccessToken); err != nil {
		s.logger.Warn("failed to read user attributes", zap.Error(err))
	} else if v := u.Attributes["email"]; v != "" {
		email = v
	}
	sess := &models.Session{
		ID:            sid,
		IdentityToken: tokens.IdentityToken,
		AccessToken:   tokens.AccessToken,
		RefreshToken:  tokens.RefreshToken,
		Username:      claims.Username,
		Email:         email,
		TokenExpiry:   claims.ExpiresAt,
		Role:          tokenRole,
	}
	if tokenRole == models.RoleMerchant {
		s.loadMerchantFlags(ctx, sess)
	}

	if err := s.store.Save(ctx, sess); err != nil {
		s.revoke(ctx, tokens.AccessToken)
		return nil, newError(KindBackend, err)
	}
	s.logger.Info("login succeeded",
		zap.String("email", email),
		zap.String("role", string(tokenRole)),
		zap.String("token", utils.TokenFingerprint(tokens.IdentityToken)))
	return &LoginResult{Outcome: LoginOK, Role: tokenRole}, nil
}

// loadMerchantFlags is best effort: a merchant with unknown flags is treated
// as unverified without business hours.
func (s *Service) loadMerchantFlags(ctx context.Context, sess *models.Session) {
	if s.merchants == nil {
		return
	}
	profile, err := s.merchants.Profile(api.WithToken(ctx, sess.IdentityToken))
	if err != nil {
		s.logger.Warn("failed to load merchant flags", zap.String("email", sess.Email), zap.Error(err))
		return
	}
	sess.MerchantStatus = profile.Status
	sess.HasBusinessHours = profile.HasBusinessHours
}

// RefreshMerchantFlags re-reads the merchant flags, e.g. after business hours
// were saved.
func (s *Service) RefreshMerchantFlags(ctx context.Context, sid string) error {
	sess, err := s.store.Load(ctx, sid)
	if err != nil {
		return err
	}
	if sess.Role != models.RoleMerchant {
		return nil
	}
	s.loadMerchantFlags(ctx, sess)
	return s.store.Save(ctx, sess)
}

// SignUp validates the referral code first, then creates the provider account
// and the backend profile row.
func (s *Service) SignUp(ctx context.Context, in models.SignUpRequest) (*SignUpResult, error) {
	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, newError(KindInvalidInput, err)
	}

	if in.ReferralCode != "" && s.referrals != nil {
		v, err := s.referrals.Validate(ctx, in.ReferralCode)
		if err != nil {
			return nil, &Error{Kind: KindBackend, Message: api.Message(err), Err: err}
		}
		if !v.Valid {
			return nil, ErrReferralInvalid
		}
	}

	attrs := map[string]string{
		"email":       in.Email,
		"given_name":  in.FirstName,
		"family_name": in.LastName,
		"custom:role": string(role),
	}
	if in.PhoneNumber != "" {
		attrs["phone_number"] = in.PhoneNumber
	}
	res, err := s.provider.SignUp(ctx, in.Email, in.Password, attrs)
	if err != nil {
		return nil, fromProvider(err)
	}

	if s.profiles != nil {
		err := s.profiles.Create(ctx, models.NewProfile{
			UserSub:      res.UserSub,
			Email:        in.Email,
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			PhoneNumber:  in.PhoneNumber,
			Role:         role,
			BusinessName: in.BusinessName,
			ReferralCode: in.ReferralCode,
		})
		if err != nil {
			s.logger.Error("failed to create profile after sign-up", zap.String("email", in.Email), zap.Error(err))
			return nil, &Error{Kind: KindBackend, Message: api.Message(err), Err: err}
		}
	}

	return &SignUpResult{CodeDeliveryPending: !res.UserConfirmed, Destination: res.Destination}, nil
}

func (s *Service) VerifySignUp(ctx context.Context, email, code string) error {
	if err := s.provider.ConfirmSignUp(ctx, email, code); err != nil {
		return fromProvider(err)
	}
	return nil
}

func (s *Service) ResendVerificationCode(ctx context.Context, email string) (string, error) {
	dest, err := s.provider.ResendCode(ctx, email)
	if err != nil {
		return "", fromProvider(err)
	}
	return dest, nil
}

func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	dest, err := s.provider.ForgotPassword(ctx, email)
	if err != nil {
		return "", fromProvider(err)
	}
	return dest, nil
}

func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := s.provider.ConfirmForgotPassword(ctx, email, code, newPassword); err != nil {
		return fromProvider(err)
	}
	return nil
}

// IsAuthenticated reports whether sid holds a usable session, refreshing an
// expired identity token first. It never panics.
func (s *Service) IsAuthenticated(ctx context.Context, sid string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while checking authentication", zap.Any("panic", r))
			ok = false
		}
	}()

	if sid == "" {
		return false
	}
	sess, err := s.store.Load(ctx, sid)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			s.logger.Warn("failed to load session", zap.Error(err))
		}
		return false
	}
	if !sess.Authenticated() {
		return false
	}
	if !sess.Expired(s.now()) {
		return true
	}
	_, err = s.refresh(ctx, sid)
	return err == nil
}

// refresh runs at most one provider refresh per session at a time; concurrent
// callers share its result.
func (s *Service) refresh(ctx context.Context, sid string) (*models.Session, error) {
	v, err, _ := s.flight.Do(sid, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return s.doRefresh(rctx, sid)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Session), nil
}

func (s *Service) doRefresh(ctx context.Context, sid string) (*models.Session, error) {
	sess, err := s.store.Load(ctx, sid)
	if err != nil {
		return nil, err
	}
	// a flight that finished just before this one already refreshed it
	if !sess.Expired(s.now()) {
		return sess, nil
	}
	if sess.RefreshToken == "" {
		s.clear(ctx, sid)
		refreshTotal.WithLabelValues("missing").Inc()
		return nil, ErrNotAuthenticated
	}

	tokens, err := s.provider.Refresh(ctx, sess.Username, sess.RefreshToken)
	if err != nil {
		kind := identity.KindOf(err)
		refreshTotal.WithLabelValues(string(kind)).Inc()
		if kind == identity.KindRefreshInvalid {
			s.logger.Info("refresh token rejected, logging out", zap.String("email", sess.Email))
			_ = s.Logout(ctx, sid)
			if nerr := s.store.SetNotice(ctx, sid, MessageFor(KindSessionExpired)); nerr != nil {
				s.logger.Warn("failed to set session notice", zap.Error(nerr))
			}
			return nil, newError(KindSessionExpired, err)
		}
		s.logger.Warn("token refresh failed, clearing session", zap.String("email", sess.Email), zap.Error(err))
		s.clear(ctx, sid)
		return nil, fromProvider(err)
	}

	claims, err := utils.ParseIdentityToken(tokens.IdentityToken)
	if err != nil {
		refreshTotal.WithLabelValues("malformed").Inc()
		s.clear(ctx, sid)
		return nil, newError(KindUnknown, err)
	}

	updated := *sess
	updated.IdentityToken = tokens.IdentityToken
	updated.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		updated.RefreshToken = tokens.RefreshToken
	}
	updated.TokenExpiry = claims.ExpiresAt
	if err := s.store.Save(ctx, &updated); err != nil {
		refreshTotal.WithLabelValues("store").Inc()
		return nil, newError(KindBackend, err)
	}
	refreshTotal.WithLabelValues("ok").Inc()
	return &updated, nil
}

// Logout revokes the provider session and always clears the local record.
func (s *Service) Logout(ctx context.Context, sid string) error {
	if sess, err := s.store.Load(ctx, sid); err == nil {
		s.revoke(ctx, sess.AccessToken)
	}
	if err := s.store.Clear(ctx, sid); err != nil {
		return newError(KindBackend, err)
	}
	return nil
}

// Current returns the session for sid after IsAuthenticated has vouched for it.
func (s *Service) Current(ctx context.Context, sid string) (*models.Session, error) {
	if !s.IsAuthenticated(ctx, sid) {
		return nil, ErrNotAuthenticated
	}
	return s.store.Load(ctx, sid)
}

// Status summarises sid for the browser and hands over any pending notice.
func (s *Service) Status(ctx context.Context, sid string) models.SessionStatus {
	var st models.SessionStatus
	if sess, err := s.Current(ctx, sid); err == nil {
		st = models.SessionStatus{
			Authenticated:    true,
			Role:             sess.Role,
			Email:            sess.Email,
			MerchantStatus:   sess.MerchantStatus,
			HasBusinessHours: sess.HasBusinessHours,
		}
	}
	if sid != "" {
		if n, err := s.store.PopNotice(ctx, sid); err == nil {
			st.Notice = n
		}
	}
	return st
}

func (s *Service) revoke(ctx context.Context, accessToken string) {
	if accessToken == "" {
		return
	}
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		s.logger.Warn("provider sign-out failed", zap.Error(err))
	}
}

// clearUnlessTransient drops whatever sid held after a failed provider call,
// except for failures worth retrying.
func (s *Service) clearUnlessTransient(ctx context.Context, sid string, err error) {
	if sid == "" || identity.KindOf(err).Transient() {
		return
	}
	s.clear(ctx, sid)
}

func (s *Service) clear(ctx context.Context, sid string) {
	if err := s.store.Clear(ctx, sid); err != nil {
		s.logger.Error("failed to clear session", zap.String("sid", sid), zap.Error(err))
	}
}

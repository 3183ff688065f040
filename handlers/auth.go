package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"furk/middleware"
	"furk/models"
	"furk/services/auth"
	"furk/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler serves the auth pages and the /auth API.
type AuthHandler struct {
	Auth *auth.Service
}

func NewAuthHandler(a *auth.Service) *AuthHandler {
	return &AuthHandler{Auth: a}
}

var authStatus = map[auth.Kind]int{
	auth.KindInvalidCredentials: http.StatusUnauthorized,
	auth.KindUserNotFound:       http.StatusUnauthorized,
	auth.KindUnconfirmed:        http.StatusForbidden,
	auth.KindResetRequired:      http.StatusForbidden,
	auth.KindRoleMismatch:       http.StatusForbidden,
	auth.KindThrottled:          http.StatusTooManyRequests,
	auth.KindInvalidInput:       http.StatusBadRequest,
	auth.KindPasswordPolicy:     http.StatusBadRequest,
	auth.KindCodeExpired:        http.StatusBadRequest,
	auth.KindCodeMismatch:       http.StatusBadRequest,
	auth.KindReferralInvalid:    http.StatusBadRequest,
	auth.KindUserExists:         http.StatusConflict,
	auth.KindSessionExpired:     http.StatusUnauthorized,
	auth.KindNotAuthenticated:   http.StatusUnauthorized,
	auth.KindBackend:            http.StatusBadGateway,
}

func authError(c *gin.Context, err error) {
	kind := auth.KindOf(err)
	status, ok := authStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	msg := auth.MessageFor(kind)
	var ae *auth.Error
	if errors.As(err, &ae) && ae.Message != "" {
		msg = ae.Message
	}
	getLogger(c).Info("auth request failed", zap.String("kind", string(kind)), zap.Error(err))
	utils.JSONCodedError(c, status, string(kind), msg)
}

func bindError(c *gin.Context, err error) {
	utils.JSONCodedError(c, http.StatusBadRequest, string(auth.KindInvalidInput), "Invalid request: "+err.Error())
}

// AuthPage returns the page model for an anonymous-only auth page.
func (h *AuthHandler) AuthPage(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"page":     name,
			"redirect": middleware.SafeRedirect(c.Query("redirect"), ""),
			"email":    c.Query("email"),
		})
	}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		bindError(c, err)
		return
	}

	res, err := h.Auth.Login(c.Request.Context(), middleware.SessionID(c), role, req.Email, req.Password)
	if err != nil {
		authError(c, err)
		return
	}
	h.loginResponse(c, res, req.Email, req.Redirect)
}

type newPasswordRequest struct {
	Role             string `json:"role" binding:"required,furkrole"`
	Email            string `json:"email" binding:"required,email"`
	ChallengeSession string `json:"challengeSession" binding:"required"`
	NewPassword      string `json:"newPassword" binding:"required,min=8"`
	Redirect         string `json:"redirect,omitempty"`
}

// CompleteNewPassword handles POST /auth/new-password.
func (h *AuthHandler) CompleteNewPassword(c *gin.Context) {
	var req newPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	role, _ := models.ParseRole(req.Role)
	res, err := h.Auth.CompleteNewPassword(c.Request.Context(), middleware.SessionID(c), role, req.Email, req.ChallengeSession, req.NewPassword)
	if err != nil {
		authError(c, err)
		return
	}
	h.loginResponse(c, res, req.Email, req.Redirect)
}

func (h *AuthHandler) loginResponse(c *gin.Context, res *auth.LoginResult, email, redirect string) {
	switch res.Outcome {
	case auth.LoginNewPasswordRequired:
		c.JSON(http.StatusOK, gin.H{
			"next":             "/new-password",
			"challengeSession": res.ChallengeSession,
			"redirect":         middleware.SafeRedirect(redirect, ""),
		})
	case auth.LoginUnconfirmed:
		c.JSON(http.StatusOK, gin.H{
			"next":    "/verify?email=" + url.QueryEscape(email),
			"message": auth.MessageFor(auth.KindUnconfirmed),
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"role":     res.Role,
			"redirect": middleware.SafeRedirect(redirect, res.Role.LandingPath()),
		})
	}
}

// SignUp handles POST /auth/signup.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.Auth.SignUp(c.Request.Context(), req)
	if err != nil {
		authError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"codeDeliveryPending": res.CodeDeliveryPending,
		"destination":         res.Destination,
		"next":                "/verify?email=" + url.QueryEscape(req.Email),
	})
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type codeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

type resetRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

// Verify handles POST /auth/verify.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Auth.VerifySignUp(c.Request.Context(), req.Email, req.Code); err != nil {
		authError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Your email has been verified. You can now log in.", "next": "/login"})
}

// Resend handles POST /auth/resend.
func (h *AuthHandler) Resend(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	dest, err := h.Auth.ResendVerificationCode(c.Request.Context(), req.Email)
	if err != nil {
		authError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"destination": dest})
}

// Forgot handles POST /auth/forgot.
func (h *AuthHandler) Forgot(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	dest, err := h.Auth.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		authError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"destination": dest})
}

// Reset handles POST /auth/reset.
func (h *AuthHandler) Reset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.Auth.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		authError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Your password has been reset.", "next": "/login"})
}

// Logout handles POST /auth/logout. It always succeeds from the browser's view.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Auth.Logout(c.Request.Context(), middleware.SessionID(c)); err != nil {
		getLogger(c).Error("logout failed to clear session", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"redirect": middleware.LoginPath})
}

// Status handles GET /auth/status.
func (h *AuthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.Auth.Status(c.Request.Context(), middleware.SessionID(c)))
}

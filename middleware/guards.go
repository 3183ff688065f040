package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"furk/models"
	"furk/utils"

	"github.com/gin-gonic/gin"
)

const (
	// ContextSession holds the *models.Session of an authenticated request.
	ContextSession = "session"
	// ContextAuthenticated holds the bool answer of AuthWatch.
	ContextAuthenticated = "authenticated"

	AuthStatusHeader = "X-Auth-Status"
	LoginPath        = "/login"
)

// Authenticator is the part of the auth service the guards need.
type Authenticator interface {
	IsAuthenticated(ctx context.Context, sid string) bool
	Current(ctx context.Context, sid string) (*models.Session, error)
}

// RequireAuth lets the request through only for an authenticated session
// whose role satisfies roles. Anonymous callers go to the login page with the
// original location; authenticated callers with the wrong role go to "/".
// Nothing is written before the decision is made.
func RequireAuth(a Authenticator, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := a.Current(c.Request.Context(), SessionID(c))
		if err != nil {
			redirect(c, http.StatusUnauthorized, LoginURL(c.Request.URL.RequestURI()), "Please log in to continue.")
			return
		}
		if !sess.Role.Satisfies(roles...) {
			redirect(c, http.StatusForbidden, "/", "This page is not available for your account.")
			return
		}
		c.Set(ContextSession, sess)
		c.Next()
	}
}

// RequireAnonymous sends authenticated callers to their role's landing page.
func RequireAnonymous(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess, err := a.Current(c.Request.Context(), SessionID(c)); err == nil {
			redirect(c, http.StatusConflict, sess.Role.LandingPath(), "You are already logged in.")
			return
		}
		c.Next()
	}
}

// AuthWatch runs on every request. It reports the authentication state in the
// X-Auth-Status header and the gin context, and sends anonymous callers to
// the login page unless the path is public. Public entries match exactly, or
// as a prefix when they end in "/*".
func AuthWatch(a Authenticator, publicPaths []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok := a.IsAuthenticated(c.Request.Context(), SessionID(c))
		c.Set(ContextAuthenticated, ok)
		if ok {
			c.Header(AuthStatusHeader, "authenticated")
		} else {
			c.Header(AuthStatusHeader, "anonymous")
		}
		if !ok && !IsPublicPath(c.Request.URL.Path, publicPaths) {
			redirect(c, http.StatusUnauthorized, LoginURL(c.Request.URL.RequestURI()), "Please log in to continue.")
			return
		}
		c.Next()
	}
}

// IsPublicPath matches path against the allow-list.
func IsPublicPath(path string, publicPaths []string) bool {
	for _, p := range publicPaths {
		if prefix, ok := strings.CutSuffix(p, "/*"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

// LoginURL is the login page that returns to target afterwards.
func LoginURL(target string) string {
	if target == "" || target == "/" {
		return LoginPath
	}
	return LoginPath + "?redirect=" + url.QueryEscape(target)
}

// SafeRedirect accepts only local absolute paths, falling back to fallback.
func SafeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return target
}

// CurrentSession returns the session RequireAuth stored, or nil.
func CurrentSession(c *gin.Context) *models.Session {
	if v, ok := c.Get(ContextSession); ok {
		if s, ok := v.(*models.Session); ok {
			return s
		}
	}
	return nil
}

// redirect issues a 302 for page navigations and a JSON error carrying the
// target for API calls.
func redirect(c *gin.Context, apiStatus int, target, message string) {
	if wantsJSON(c) {
		c.AbortWithStatusJSON(apiStatus, utils.ErrorResponse{Message: message, Redirect: target})
		return
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
}

func wantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") || strings.HasPrefix(c.Request.URL.Path, "/auth/") {
		return true
	}
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

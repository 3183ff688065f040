package middleware

import (
	"net/http"

	"furk/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// ContextSessionID is the gin context key holding the browser session id.
const ContextSessionID = "sessionID"

const sidValue = "sid"

// NewCookieStore returns the signed cookie store that carries only the
// browser session id. Everything else lives server-side.
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(utils.SessionRefreshWindow.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// BrowserSession makes sure every request has a session id, issuing a new
// cookie when the browser has none or presents a tampered one.
func BrowserSession(store sessions.Store, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get returns a fresh session alongside a decode error for bad cookies.
		sess, err := store.Get(c.Request, cookieName)
		if err != nil {
			zap.L().Debug("discarding unreadable session cookie", zap.Error(err))
		}
		sid, _ := sess.Values[sidValue].(string)
		if _, perr := uuid.Parse(sid); perr != nil {
			sid = uuid.NewString()
			sess.Values[sidValue] = sid
			if err := sess.Save(c.Request, c.Writer); err != nil {
				utils.JSONError(c, http.StatusInternalServerError, "Failed to start session", err.Error())
				return
			}
		}
		c.Set(ContextSessionID, sid)
		c.Next()
	}
}

// SessionID returns the browser session id set by BrowserSession.
func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}

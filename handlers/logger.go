package handlers

import (
	"context"

	"furk/middleware"
	"furk/services/api"
	"furk/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getLogger retrieves the request-scoped logger from the Gin context or falls back to the global one.
func getLogger(c *gin.Context) *zap.Logger {
	if l, exists := c.Get("logger"); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return utils.GetLogger()
}

// tokenContext is the request context carrying the caller's identity token
// for backend calls.
func tokenContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if sess := middleware.CurrentSession(c); sess != nil {
		ctx = api.WithToken(ctx, sess.IdentityToken)
	}
	return ctx
}

// backendError relays a failed backend call with its user-facing message.
func backendError(c *gin.Context, err error) {
	getLogger(c).Warn("backend call failed", zap.Error(err))
	utils.JSONError(c, api.StatusOf(err), api.Message(err), "")
}

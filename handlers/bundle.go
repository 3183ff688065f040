// File: furk/handlers/bundle.go
package handlers

import (
	"net/http"

	"furk/utils"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all your endpoint handlers into one struct.
type HandlerBundle struct {
	Auth     *AuthHandler
	Pages    *PageHandler
	Progress *ProgressHandler

	// PublicPaths are reachable without a session.
	PublicPaths []string
}

// Health reports the last background health check.
func Health(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	if !status.CheckedAt.IsZero() && (!status.Redis || !status.Backend) {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "message": "Hi, I'm FURK"})
}

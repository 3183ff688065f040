package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message  string `json:"message"`
	Details  string `json:"details,omitempty"`
	Code     string `json:"code,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err), zap.String("path", c.Request.URL.Path))

				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	Logger := GetLogger()
	Logger.Warn(message, zap.String("details", details), zap.String("path", c.Request.URL.Path))
	c.AbortWithStatusJSON(status, ErrorResponse{Message: message, Details: details})
}

// JSONCodedError is JSONError with a machine-readable code the browser can branch on.
func JSONCodedError(c *gin.Context, status int, code, message string) {
	GetLogger().Warn(message, zap.String("code", code), zap.String("path", c.Request.URL.Path))
	c.AbortWithStatusJSON(status, ErrorResponse{Message: message, Code: code})
}
